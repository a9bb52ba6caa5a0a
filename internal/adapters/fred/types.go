package fred

// observationsResponse es la respuesta de /series/observations.
type observationsResponse struct {
	ObservationStart string        `json:"observation_start"`
	ObservationEnd   string        `json:"observation_end"`
	Count            int           `json:"count"`
	Observations     []observation `json:"observations"`
}

// observation trae el valor como string: "." significa que no hubo dato ese día.
type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}
