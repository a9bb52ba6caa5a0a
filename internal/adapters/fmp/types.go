package fmp

import (
	"encoding/json"
	"strings"
)

// treasuryRow es una fila cruda de /treasury. Llega en dos formatos:
//   - par:   {"maturity": "10Y", "yield": 4.62}
//   - ancho: {"date": "2025-01-08", "month1": 4.32, ..., "year30": 4.91}
type treasuryRow map[string]json.RawMessage

func (r treasuryRow) isPair() bool {
	_, ok := r["maturity"]
	return ok
}

func (r treasuryRow) str(key string) string {
	return rawString(r[key])
}

// rawString acepta números y strings JSON indistintamente.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return s
}
