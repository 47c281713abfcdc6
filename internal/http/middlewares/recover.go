package middlewares

import (
	"net/http"

	httperrors "github.com/dropDatabas3/eventgate/internal/http/errors"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
)

// Recover captura panics de los handlers y responde 500 sin tirar el proceso.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("panic recovered",
					logger.Path(r.URL.Path),
					logger.Any("panic", rec),
				)
				httperrors.WriteError(w, r, httperrors.ErrInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
