package middlewares

import (
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/eventgate/internal/http/errors"
	"github.com/dropDatabas3/eventgate/internal/session"
)

// Auth valida la sesión (cookie, o Bearer para clients no-browser) en cada
// request protegido. El chequeo de revocación dentro de Validate es
// security-critical y nunca se saltea por latencia. Cualquier fallo se
// responde como authentication error genérico.
func Auth(mgr *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, mgr.CookieName())
			if token == "" {
				httperrors.WriteError(w, r, httperrors.ErrAuthentication)
				return
			}

			claims, err := mgr.Validate(r.Context(), token)
			if err != nil {
				httperrors.WriteError(w, r, httperrors.ErrAuthentication.WithCause(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
		})
	}
}

// RequireAdmin exige rol admin en la sesión ya validada por Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetSession(r.Context())
		if claims == nil || claims.Role != "admin" {
			httperrors.WriteError(w, r, httperrors.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
