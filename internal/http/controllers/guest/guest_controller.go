// Package guest expone los endpoints de registro y validación de código.
package guest

import (
	"errors"
	"net/http"

	svc "github.com/dropDatabas3/eventgate/internal/guest"
	dto "github.com/dropDatabas3/eventgate/internal/http/dto/guest"
	httperrors "github.com/dropDatabas3/eventgate/internal/http/errors"
	"github.com/dropDatabas3/eventgate/internal/http/helpers"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/validation"
)

// Controller maneja los endpoints públicos de guests.
type Controller struct {
	service *svc.Service
}

// NewController crea el controller.
func NewController(service *svc.Service) *Controller {
	return &Controller{service: service}
}

// ValidateCode maneja POST /v1/guest/validate-code.
func (c *Controller) ValidateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Guest.ValidateCode"))

	var req dto.ValidateCodeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	ev, err := c.service.ValidateCode(ctx, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrInvalidCode):
			httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("event code must be exactly 4 digits"))
		case errors.Is(err, svc.ErrEventNotFound):
			httperrors.WriteError(w, r, httperrors.ErrNotFound.WithMessage("no event for that code"))
		default:
			log.Error("validate code failed", logger.Err(err))
			httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
		}
		return
	}

	resp := dto.ValidateCodeResponse{
		Success:   true,
		Valid:     true,
		EventID:   ev.ID,
		EventName: ev.Name,
	}
	if ev.StartDate != nil {
		s := ev.StartDate.Format("2006-01-02")
		resp.StartDate = &s
	}
	if ev.EndDate != nil {
		e := ev.EndDate.Format("2006-01-02")
		resp.EndDate = &e
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// Register maneja POST /v1/guest/register.
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Guest.Register"))

	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	for field, value := range map[string]string{
		"first_name":        req.FirstName,
		"last_name":         req.LastName,
		"consent_signature": req.ConsentSignature,
	} {
		if err := validation.Required(field, value); err != nil {
			httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage(err.Error()))
			return
		}
	}
	if req.Email != "" {
		if err := validation.Email(req.Email); err != nil {
			httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("invalid email"))
			return
		}
	}

	g, ev, err := c.service.Register(ctx, svc.RegisterRequest{
		EventCode:        req.EventCode,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		ConsentSignature: req.ConsentSignature,
	})
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrInvalidCode):
			httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("event code must be exactly 4 digits"))
		case errors.Is(err, svc.ErrEventNotFound):
			httperrors.WriteError(w, r, httperrors.ErrNotFound.WithMessage("no event for that code"))
		default:
			log.Error("guest registration failed", logger.Err(err))
			httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
		}
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, dto.RegisterResponse{
		Success:   true,
		GuestID:   g.ID,
		EventID:   ev.ID,
		EventName: ev.Name,
		FirstName: g.FirstName,
	})
}
