package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Errores centinela del dominio.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidRange     = errors.New("invalid date range")
)

// ErrorKind clasifica los fallos de una fuente externa.
type ErrorKind int

const (
	// KindTransient: sobrecarga del gateway, timeout o error de red. Se reintenta.
	KindTransient ErrorKind = iota
	// KindAuth: API key inválida o sin permisos.
	KindAuth
	// KindNotFound: serie inexistente.
	KindNotFound
	// KindBadRequest: parámetros rechazados por el proveedor.
	KindBadRequest
	// KindMalformed: respuesta 2xx que no se puede decodificar.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindMalformed:
		return "malformed"
	}
	return "unknown"
}

// FetchError es el fallo de transporte o de formato de una llamada a una fuente.
// "Sin datos" nunca es un FetchError: se representa con una lista vacía.
type FetchError struct {
	Kind   ErrorKind
	Source DataSource
	Series string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Source, e.Series, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient indica si vale la pena reintentar.
func (e *FetchError) Transient() bool { return e.Kind == KindTransient }

// IsTransient indica si err (o algún error envuelto) es un FetchError transitorio.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Transient()
}

// KindForStatus mapea un status HTTP no-2xx a su categoría.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		return KindTransient
	}
	return KindBadRequest
}
