// Package session expone la revocación de sesiones (self-service y admin).
package session

import (
	"net/http"

	"github.com/dropDatabas3/eventgate/internal/domain/types"
	dto "github.com/dropDatabas3/eventgate/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/eventgate/internal/http/errors"
	"github.com/dropDatabas3/eventgate/internal/http/helpers"
	mw "github.com/dropDatabas3/eventgate/internal/http/middlewares"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/session"
)

// Controller maneja los endpoints de revocación.
type Controller struct {
	manager *session.Manager
}

// NewController crea el controller.
func NewController(manager *session.Manager) *Controller {
	return &Controller{manager: manager}
}

// Revoke maneja POST /v1/sessions/revoke: el user logueado revoca todas sus
// sesiones (todos los dispositivos) y pierde también la actual.
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Session.Revoke"))

	claims := mw.GetSession(ctx)

	var req dto.RevokeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	// El caller solo puede declarar motivos self-service; lo demás cae en
	// user_request.
	reason := types.RevocationUserRequest
	if types.RevocationReason(req.Reason) == types.RevocationCredentialRotation {
		reason = types.RevocationCredentialRotation
	}

	if err := c.manager.Revoke(ctx, claims.Subject, reason, claims.Subject); err != nil {
		log.Error("session revocation failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
		return
	}

	http.SetCookie(w, c.manager.DeletionCookie())
	helpers.WriteJSON(w, http.StatusOK, dto.RevokeResponse{Success: true})
}

// AdminRevoke maneja POST /v1/admin/sessions/revoke: un admin revoca las
// sesiones de otro user. Revocarse a sí mismo va por el endpoint
// self-service, no por acá.
func (c *Controller) AdminRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Session.AdminRevoke"))

	claims := mw.GetSession(ctx)

	var req dto.AdminRevokeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("user_id is required"))
		return
	}
	if req.UserID == claims.Subject {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("use the self-service endpoint to revoke your own sessions"))
		return
	}
	reason := types.RevocationReason(req.Reason)
	if reason == "" {
		reason = types.RevocationAdminAction
	}

	if err := c.manager.Revoke(ctx, req.UserID, reason, claims.Subject); err != nil {
		log.Error("admin session revocation failed", logger.UserID(req.UserID), logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.AdminRevokeResponse{Success: true, RevokedBy: claims.Subject})
}
