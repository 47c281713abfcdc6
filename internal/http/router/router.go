// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	convertctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/convert"
	credentialctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/credential"
	guestctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/guest"
	healthctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/health"
	sessionctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/session"
	mw "github.com/dropDatabas3/eventgate/internal/http/middlewares"
	"github.com/dropDatabas3/eventgate/internal/rate"
	"github.com/dropDatabas3/eventgate/internal/session"
)

// Deps agrupa todo lo que el router necesita para armar los handlers.
type Deps struct {
	Guest      *guestctrl.Controller
	Convert    *convertctrl.Controller
	Credential *credentialctrl.Controller
	Session    *sessionctrl.Controller
	Health     *healthctrl.Controller

	Sessions *session.Manager

	// RegisterLimiter y ConvertLimiter son nil cuando el rate limiting está
	// deshabilitado por configuración.
	RegisterLimiter rate.Limiter
	ConvertLimiter  rate.Limiter
}

// New arma el router con middlewares globales y todas las rutas.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Recover)
	r.Use(mw.RequestContext)
	r.Use(mw.SecurityHeaders)

	// Probes y métricas, fuera del versionado.
	r.Get("/healthz", d.Health.Live)
	r.Get("/readyz", d.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Públicas: check-in de guests.
		r.Group(func(r chi.Router) {
			if d.RegisterLimiter != nil {
				r.Use(mw.RateLimit(d.RegisterLimiter))
			}
			r.Post("/guest/validate-code", d.Guest.ValidateCode)
			r.Post("/guest/register", d.Guest.Register)
		})

		// Públicas: flujo de conversión (limitado más agresivamente, manda
		// emails).
		r.Group(func(r chi.Router) {
			if d.ConvertLimiter != nil {
				r.Use(mw.RateLimit(d.ConvertLimiter))
			}
			r.Post("/convert/start", d.Convert.Start)
			r.Post("/convert/complete", d.Convert.Complete)
			r.Post("/convert/upgrade", d.Convert.Upgrade)
		})

		// Pública: resolución credential id -> identidad (pre-auth).
		r.Get("/credentials/{credentialID}", d.Credential.Lookup)

		// Autenticadas.
		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(d.Sessions))
			r.Post("/credentials", d.Credential.Register)
			r.Delete("/credentials/{credentialID}", d.Credential.Remove)
			r.Post("/sessions/revoke", d.Session.Revoke)

			// Admin.
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAdmin)
				r.Post("/admin/link-guest", d.Convert.Link)
				r.Post("/admin/sessions/revoke", d.Session.AdminRevoke)
			})
		})
	})

	return r
}
