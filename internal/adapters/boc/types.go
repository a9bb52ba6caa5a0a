package boc

import (
	"encoding/json"
	"strings"
)

// observationsResponse es la respuesta de Valet para una serie o un grupo.
// Cada observación trae la fecha en "d" y una clave por serie: {"<id>": {"v": "3.28"}}.
type observationsResponse struct {
	Observations []rawObservation `json:"observations"`
}

type rawObservation map[string]json.RawMessage

type seriesValue struct {
	V json.RawMessage `json:"v"`
}

func (o rawObservation) date() string {
	var d string
	if err := json.Unmarshal(o["d"], &d); err != nil {
		return ""
	}
	return d
}

// value devuelve el valor crudo de la serie, o "" si falta o está vacío.
func (o rawObservation) value(seriesID string) string {
	raw, ok := o[seriesID]
	if !ok {
		return ""
	}
	var sv seriesValue
	if err := json.Unmarshal(raw, &sv); err != nil {
		return ""
	}
	s := strings.TrimSpace(string(sv.V))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(sv.V, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return s
}
