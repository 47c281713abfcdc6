// Package convert expone los endpoints del flujo de conversión.
package convert

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dropDatabas3/eventgate/internal/conversion"
	dto "github.com/dropDatabas3/eventgate/internal/http/dto/convert"
	httperrors "github.com/dropDatabas3/eventgate/internal/http/errors"
	"github.com/dropDatabas3/eventgate/internal/http/helpers"
	svc "github.com/dropDatabas3/eventgate/internal/http/services/convert"
	"github.com/dropDatabas3/eventgate/internal/identity"
	"github.com/dropDatabas3/eventgate/internal/migration"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/session"
)

// Controller maneja los endpoints de conversión.
type Controller struct {
	service  *svc.Service
	sessions *session.Manager
}

// NewController crea el controller.
func NewController(service *svc.Service, sessions *session.Manager) *Controller {
	return &Controller{service: service, sessions: sessions}
}

// Start maneja POST /v1/convert/start.
func (c *Controller) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Convert.Start"))

	var req dto.StartRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.GuestID == "" || req.Email == "" {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("guest_id and email are required"))
		return
	}

	res, err := c.service.Start(ctx, req.GuestID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrInvalidEmail):
			httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("invalid email"))
		case errors.Is(err, conversion.ErrGuestNotFound):
			httperrors.WriteError(w, r, httperrors.ErrNotFound.WithMessage("guest not found"))
		case errors.Is(err, conversion.ErrGuestConverted):
			httperrors.WriteError(w, r, httperrors.ErrConflict.WithMessage("guest already converted"))
		default:
			log.Error("conversion start failed", logger.Err(err))
			httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
		}
		return
	}

	helpers.WriteJSON(w, http.StatusAccepted, dto.StartResponse{Success: true, DebugLink: res.DebugLink})
}

// Complete maneja POST /v1/convert/complete: el callback del mecanismo de
// entrega con la identidad ya verificada.
func (c *Controller) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Convert.Complete"))

	var req dto.CompleteRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Token == "" || req.UserID == "" {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("email, token and user_id are required"))
		return
	}

	res, err := c.service.Complete(ctx, req.Email, req.Token, req.UserID)
	if err != nil {
		c.writeMigrationError(w, r, log, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.CompleteResponse{
		Success:                 true,
		UserID:                  res.UserID,
		MigratedAttendanceCount: res.MigratedAttendanceCount,
	})
}

// Upgrade maneja POST /v1/convert/upgrade: crea la identidad con password y
// deja al caller logueado (cookie de sesión).
func (c *Controller) Upgrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Convert.Upgrade"))

	var req dto.UpgradeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Token == "" || req.Password == "" {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("email, token and password are required"))
		return
	}

	res, user, err := c.service.Upgrade(ctx, req.Email, req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrInvalidEmail):
			httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("invalid email"))
		case errors.Is(err, svc.ErrWeakPassword), errors.Is(err, identity.ErrWeakPassword):
			httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("password does not meet policy"))
		case errors.Is(err, identity.ErrEmailInUse):
			httperrors.WriteError(w, r, httperrors.ErrConflict.WithMessage("email already has an account"))
		default:
			c.writeMigrationError(w, r, log, err)
		}
		return
	}

	token, err := c.sessions.Issue(ctx, user)
	if err != nil {
		// La migración ya commiteó; el user existe y puede loguearse aparte.
		log.Error("session issue after upgrade failed", logger.UserID(user.ID), logger.Err(err))
	} else {
		http.SetCookie(w, c.sessions.BuildCookie(token))
	}

	helpers.WriteJSON(w, http.StatusOK, dto.CompleteResponse{
		Success:                 true,
		UserID:                  res.UserID,
		MigratedAttendanceCount: res.MigratedAttendanceCount,
	})
}

// Link maneja POST /v1/admin/link-guest (solo admin).
func (c *Controller) Link(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Convert.Link"))

	var req dto.LinkRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.GuestID == "" || req.TargetUserID == "" {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("guest_id and target_user_id are required"))
		return
	}

	res, err := c.service.Link(ctx, req.GuestID, req.TargetUserID)
	if err != nil {
		c.writeMigrationError(w, r, log, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.CompleteResponse{
		Success:                 true,
		UserID:                  res.UserID,
		MigratedAttendanceCount: res.MigratedAttendanceCount,
	})
}

// writeMigrationError mapea los errores compartidos de registry/engine.
func (c *Controller) writeMigrationError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, conversion.ErrBadToken):
		// Genérico: no confirmar si la pending existe ni qué chequeo falló.
		httperrors.WriteError(w, r, httperrors.ErrAuthentication)
	case errors.Is(err, conversion.ErrNoPending):
		httperrors.WriteError(w, r, httperrors.ErrNotFound.WithMessage("no pending conversion for that email"))
	case errors.Is(err, conversion.ErrExpired):
		httperrors.WriteError(w, r, httperrors.ErrNotFound.WithMessage("conversion link expired, start again"))
	case errors.Is(err, migration.ErrGuestNotFound):
		httperrors.WriteError(w, r, httperrors.ErrNotFound.WithMessage("guest not found"))
	case errors.Is(err, migration.ErrTargetNotFound):
		httperrors.WriteError(w, r, httperrors.ErrNotFound.WithMessage("target user not found"))
	case errors.Is(err, migration.ErrAlreadyConverted):
		httperrors.WriteError(w, r, httperrors.ErrConflict.WithMessage("guest already converted"))
	default:
		log.Error("migration failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
	}
}
