// Package convert orquesta el flujo de conversión guest -> identidad
// durable: start (pending + email de verificación), complete (callback con
// identidad verificada), upgrade (alta con password) y el link
// administrativo a un user existente.
package convert

import (
	"context"
	"errors"

	"github.com/dropDatabas3/eventgate/internal/conversion"
	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/email"
	"github.com/dropDatabas3/eventgate/internal/identity"
	"github.com/dropDatabas3/eventgate/internal/migration"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/security/password"
	"github.com/dropDatabas3/eventgate/internal/validation"
)

// Errores del orquestador.
var (
	ErrInvalidEmail = errors.New("convert: invalid email")
	ErrWeakPassword = errors.New("convert: password does not meet policy")
)

const minPasswordLen = 10

// Deps agrupa las dependencias del service.
type Deps struct {
	Registry *conversion.Registry
	Engine   *migration.Engine
	Provider identity.Provider
	Mailer   *email.VerificationMailer

	// EchoLinks, en entornos de desarrollo, devuelve el link de verificación
	// en la respuesta en vez de (además de) mandarlo por email.
	EchoLinks bool
}

// Service implementa el flujo de conversión.
type Service struct {
	d Deps
}

// NewService crea el service.
func NewService(d Deps) *Service {
	return &Service{d: d}
}

// StartResult reporta el inicio de una conversión.
type StartResult struct {
	// DebugLink solo se puebla con EchoLinks habilitado.
	DebugLink string
}

// Start registra la pending conversion y despacha el link de verificación.
// El token lo emite el registry: presentar ese token es el único modo de
// cerrar la conversión, así que solo viaja por email (y por DebugLink en
// dev).
func (s *Service) Start(ctx context.Context, guestID, rawEmail string) (*StartResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("convert"), logger.Op("Start"), logger.GuestID(guestID))

	if err := validation.Email(rawEmail); err != nil {
		return nil, ErrInvalidEmail
	}

	p, tok, err := s.d.Registry.Create(ctx, guestID, rawEmail)
	if err != nil {
		return nil, err
	}

	if err := s.d.Mailer.SendConversionLink(ctx, p.Email, tok); err != nil {
		// La pending ya está registrada; el guest puede reintentar el start
		// (last request wins) si el mail no llegó.
		log.Error("failed to send verification email", logger.Email(p.Email), logger.Err(err))
		return nil, err
	}

	log.Info("conversion started", logger.Email(p.Email))
	res := &StartResult{}
	if s.d.EchoLinks {
		res.DebugLink = s.d.Mailer.ConversionLink(tok)
	}
	return res, nil
}

// Complete cierra la conversión hacia una identidad ya verificada. El token
// es el del link de verificación: sin él el registry rechaza el cierre.
func (s *Service) Complete(ctx context.Context, rawEmail, token, verifiedUserID string) (*migration.Result, error) {
	return s.d.Registry.Complete(ctx, rawEmail, token, verifiedUserID)
}

// Upgrade cierra la conversión creando la identidad con password dentro de
// la migración. El email y el token deben coincidir con la pending
// conversion; los datos del perfil salen del guest original.
func (s *Service) Upgrade(ctx context.Context, rawEmail, token, pw string) (*migration.Result, *types.User, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("convert"), logger.Op("Upgrade"))

	if err := validation.Email(rawEmail); err != nil {
		return nil, nil, ErrInvalidEmail
	}
	if len(pw) < minPasswordLen {
		return nil, nil, ErrWeakPassword
	}
	norm := validation.NormalizeEmail(rawEmail)

	// El email no puede tener ya una identidad: upgrade crea, no linkea.
	if _, err := s.d.Provider.LookupByEmail(ctx, norm); err == nil {
		return nil, nil, identity.ErrEmailInUse
	} else if !errors.Is(err, identity.ErrNotFound) {
		return nil, nil, err
	}

	hash, err := password.Hash(password.Default, pw)
	if err != nil {
		return nil, nil, err
	}

	p, err := s.d.Registry.Get(ctx, norm, token)
	if err != nil {
		return nil, nil, err
	}
	guest, err := s.d.Registry.Guest(ctx, p.GuestID)
	if err != nil {
		return nil, nil, err
	}

	u := identity.BuildUser(norm, guest.FirstName, guest.LastName, guest.Phone, hash)
	res, err := s.d.Registry.CompleteWithIdentity(ctx, norm, token, u)
	if err != nil {
		return nil, nil, err
	}

	log.Info("guest upgraded with password", logger.UserID(u.ID), logger.Count(res.MigratedAttendanceCount))
	return res, u, nil
}

// Link ejecuta el path administrativo: migra el guest hacia un user
// preexistente sin crear identidad ni consumir pending conversions.
func (s *Service) Link(ctx context.Context, guestID, targetUserID string) (*migration.Result, error) {
	return s.d.Engine.Migrate(ctx, migration.Request{
		GuestID:      guestID,
		TargetUserID: targetUserID,
	})
}
