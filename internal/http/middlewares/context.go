package middlewares

import (
	"context"

	"github.com/dropDatabas3/eventgate/internal/session"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	// ctxSessionKey guarda las claims de sesión validadas
	ctxSessionKey ctxKey = "session"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithSession inyecta las claims de sesión en el contexto.
func WithSession(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, ctxSessionKey, claims)
}

// GetSession obtiene las claims de sesión del contexto.
// Retorna nil si la ruta no pasó por el middleware de auth.
func GetSession(ctx context.Context) *session.Claims {
	if v := ctx.Value(ctxSessionKey); v != nil {
		if c, ok := v.(*session.Claims); ok {
			return c
		}
	}
	return nil
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
