// Package credential expone el ciclo de vida de passkeys del user logueado
// y el lookup del índice para la ceremonia de autenticación.
package credential

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	svc "github.com/dropDatabas3/eventgate/internal/credential"
	"github.com/dropDatabas3/eventgate/internal/domain/types"
	dto "github.com/dropDatabas3/eventgate/internal/http/dto/credential"
	httperrors "github.com/dropDatabas3/eventgate/internal/http/errors"
	"github.com/dropDatabas3/eventgate/internal/http/helpers"
	mw "github.com/dropDatabas3/eventgate/internal/http/middlewares"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/session"
)

// Controller maneja los endpoints de credenciales.
type Controller struct {
	index    *svc.Index
	sessions *session.Manager
}

// NewController crea el controller.
func NewController(index *svc.Index, sessions *session.Manager) *Controller {
	return &Controller{index: index, sessions: sessions}
}

// Register maneja POST /v1/credentials (requiere sesión).
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Credential.Register"))

	claims := mw.GetSession(ctx)

	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.CredentialID == "" || req.PublicKey == "" {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("credential_id and public_key are required"))
		return
	}
	if _, err := base64.RawURLEncoding.DecodeString(req.CredentialID); err != nil {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("credential_id must be base64url"))
		return
	}
	pubKey, err := base64.RawURLEncoding.DecodeString(req.PublicKey)
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("public_key must be base64url"))
		return
	}

	cred := &types.CredentialRecord{
		ID:         req.CredentialID,
		PublicKey:  pubKey,
		Transports: req.Transports,
	}
	if err := c.index.Register(ctx, claims.Subject, cred); err != nil {
		switch {
		case errors.Is(err, svc.ErrDuplicate):
			httperrors.WriteError(w, r, httperrors.ErrConflict.WithMessage("credential already registered"))
		default:
			log.Error("credential registration failed", logger.Err(err))
			httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
		}
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, dto.RegisterResponse{Success: true, CredentialID: cred.ID})
}

// Remove maneja DELETE /v1/credentials/{credentialID} (requiere sesión).
func (c *Controller) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Credential.Remove"))

	claims := mw.GetSession(ctx)
	credID := chi.URLParam(r, "credentialID")
	if credID == "" {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("credential id is required"))
		return
	}

	remaining, err := c.index.Remove(ctx, claims.Subject, credID)
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrNotFound):
			httperrors.WriteError(w, r, httperrors.ErrNotFound.WithMessage("credential not found"))
		default:
			log.Error("credential removal failed", logger.Err(err))
			httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
		}
		return
	}

	// Sacar una credencial invalida toda sesión viva del user, la de este
	// request incluida: lo que autenticaba esas sesiones ya no existe.
	if err := c.sessions.Revoke(ctx, claims.Subject, types.RevocationCredentialRemoved, claims.Subject); err != nil {
		log.Error("session revocation after credential removal failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
		return
	}
	http.SetCookie(w, c.sessions.DeletionCookie())

	helpers.WriteJSON(w, http.StatusOK, dto.RemoveResponse{Success: true, Remaining: remaining})
}

// Lookup maneja GET /v1/credentials/{credentialID}. Resuelve credential id
// a identidad durante la ceremonia de autenticación; es pre-auth por
// naturaleza (el caller todavía no tiene sesión).
func (c *Controller) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Credential.Lookup"))

	credID := chi.URLParam(r, "credentialID")
	if credID == "" {
		httperrors.WriteError(w, r, httperrors.ErrValidation.WithMessage("credential id is required"))
		return
	}

	rec, err := c.index.Lookup(ctx, credID)
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrNotFound):
			// Genérico: no filtrar si la credencial existió alguna vez.
			httperrors.WriteError(w, r, httperrors.ErrAuthentication)
		default:
			log.Error("credential lookup failed", logger.Err(err))
			httperrors.WriteError(w, r, httperrors.ErrUnavailable.WithCause(err))
		}
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.LookupResponse{
		Success:      true,
		CredentialID: rec.ID,
		UserID:       rec.UserID,
		PublicKey:    base64.RawURLEncoding.EncodeToString(rec.PublicKey),
		SignCount:    rec.SignCount,
		Transports:   rec.Transports,
	})
}
