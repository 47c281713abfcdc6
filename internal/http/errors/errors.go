// Package errors define el AppError estándar del API y su mapeo a la
// respuesta estable {success:false, error}.
package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la aplicación.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"` // no se serializa, usado para el header
	Err        error  `json:"-"` // causa original; para logs, nunca expuesta
}

// Error implementa la interfaz error.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithMessage devuelve una COPIA con otro mensaje (no muta las globales).
func (e *AppError) WithMessage(msg string) *AppError {
	n := *e
	n.Message = msg
	return &n
}

// WithCause devuelve una COPIA con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	n := *e
	n.Err = err
	return &n
}

// FromError convierte un error genérico en AppError; si no lo es, lo
// envuelve como error interno conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// =================================================================================
// TAXONOMÍA
// =================================================================================

var (
	// ValidationError: input malformado; el caller corrige y reintenta.
	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "invalid request",
		HTTPStatus: http.StatusBadRequest,
	}

	// NotFoundError: guest/identidad/pending conversion ausente o vencida.
	// Nunca se reintenta automáticamente.
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "not found",
		HTTPStatus: http.StatusNotFound,
	}

	// ConflictError: ya convertido, email en uso, credencial duplicada.
	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "conflict with current state",
		HTTPStatus: http.StatusConflict,
	}

	// AuthenticationError: fallo genérico, sin filtrar qué sub-chequeo falló
	// (evita oráculos sobre existencia de credenciales).
	ErrAuthentication = &AppError{
		Code:       "AUTHENTICATION_FAILED",
		Message:    "authentication failed",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "insufficient permissions",
		HTTPStatus: http.StatusForbidden,
	}

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "too many requests, try again later",
		HTTPStatus: http.StatusTooManyRequests,
	}

	// Fallos de transacción no clasificados: transitorios, reintentables a
	// criterio del caller.
	ErrUnavailable = &AppError{
		Code:       "TEMPORARILY_UNAVAILABLE",
		Message:    "temporary failure, safe to retry",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}
)
