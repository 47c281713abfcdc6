// Package conversion implementa el registro de pending conversions: el
// puente email-keyed entre "link de verificación enviado" y "link clickeado",
// posiblemente en otro dispositivo.
//
// El lookup es por email (no por token) porque la verificación autentica por
// un mecanismo aparte (link por email o passkey) que produce una identidad
// pero no el guest id original: el registro es el único vínculo entre ambos.
package conversion

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dropDatabas3/eventgate/internal/audit"
	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/migration"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	tokens "github.com/dropDatabas3/eventgate/internal/security/token"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
	"github.com/dropDatabas3/eventgate/internal/validation"
)

// TTL de una pending conversion.
const TTL = 24 * time.Hour

// Errores del registro.
var (
	// ErrGuestNotFound: el guest no existe.
	ErrGuestNotFound = errors.New("conversion: guest not found")

	// ErrGuestConverted: el guest ya tiene identidad durable.
	ErrGuestConverted = errors.New("conversion: guest already converted")

	// ErrNoPending: no hay pending conversion para ese email.
	ErrNoPending = errors.New("conversion: no pending conversion found")

	// ErrExpired: la pending conversion venció; el registro fue eliminado.
	ErrExpired = errors.New("conversion: pending conversion expired")

	// ErrBadToken: el token de verificación no coincide con la pending.
	// Conocer el email no alcanza para cerrar la conversión.
	ErrBadToken = errors.New("conversion: verification token mismatch")
)

// tokenBytes es el largo del token de verificación.
const tokenBytes = 32

// Registry gestiona pending conversions y delega la migración al engine.
type Registry struct {
	store  docstore.Store
	engine *migration.Engine
	now    func() time.Time
}

// NewRegistry crea el registry.
func NewRegistry(s docstore.Store, e *migration.Engine) *Registry {
	return &Registry{store: s, engine: e, now: time.Now}
}

// Create registra la intención de conversión para el guest, keyed por email
// normalizado, y emite el token de verificación que la cierra. Pisa
// cualquier pending previa del mismo email (last request wins), token
// incluido. Pre-flight: el guest existe y no está convertido.
//
// El token se retorna una sola vez, para el email; solo su hash persiste.
func (r *Registry) Create(ctx context.Context, guestID, email string) (*types.PendingConversion, string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("conversion"), logger.Op("Create"), logger.GuestID(guestID))

	var guest types.GuestRecord
	err := r.store.Get(ctx, docstore.GuestPath(guestID), &guest)
	if docstore.IsNotFound(err) {
		return nil, "", ErrGuestNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if guest.Converted() {
		return nil, "", ErrGuestConverted
	}

	token, err := tokens.GenerateOpaqueToken(tokenBytes)
	if err != nil {
		return nil, "", err
	}

	now := r.now().UTC()
	p := &types.PendingConversion{
		Email:     validation.NormalizeEmail(email),
		GuestID:   guestID,
		TokenHash: tokens.SHA256Base64URL(token),
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}
	if err := r.store.Set(ctx, docstore.PendingPath(p.Email), p); err != nil {
		return nil, "", err
	}
	log.Info("pending conversion created", logger.Email(p.Email))
	return p, token, nil
}

// Get lee la pending conversion del email, exigiendo el token de
// verificación. Si existe pero venció, la borra (delete oportunista) y
// reporta ErrNoPending: una pending vencida es indistinguible de una
// inexistente y nunca se resucita.
func (r *Registry) Get(ctx context.Context, email, token string) (*types.PendingConversion, error) {
	p, err := r.read(ctx, email, token)
	if errors.Is(err, ErrExpired) {
		return nil, ErrNoPending
	}
	return p, err
}

// Complete consume la pending conversion y ejecuta la migración hacia la
// identidad verificada. El delete del registro viaja dentro de la misma
// transacción final de la migración: se consume exactamente una vez.
func (r *Registry) Complete(ctx context.Context, email, token, verifiedUserID string) (*migration.Result, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("conversion"), logger.Op("Complete"))

	p, err := r.read(ctx, email, token)
	if err != nil {
		return nil, err
	}

	res, err := r.engine.Migrate(ctx, migration.Request{
		GuestID:            p.GuestID,
		TargetUserID:       verifiedUserID,
		DeletePendingEmail: p.Email,
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, "conversion.completed", map[string]any{
		"guest_id": p.GuestID,
		"user_id":  res.UserID,
		"email":    p.Email,
	})
	log.Info("conversion completed", logger.GuestID(p.GuestID), logger.UserID(res.UserID))
	return res, nil
}

// CompleteWithIdentity consume la pending conversion creando la identidad
// dentro de la migración (upgrade con password u otro alta nueva).
func (r *Registry) CompleteWithIdentity(ctx context.Context, email, token string, newIdentity *types.User) (*migration.Result, error) {
	p, err := r.read(ctx, email, token)
	if err != nil {
		return nil, err
	}
	return r.engine.Migrate(ctx, migration.Request{
		GuestID:            p.GuestID,
		NewIdentity:        newIdentity,
		DeletePendingEmail: p.Email,
	})
}

// Guest lee el GuestRecord referenciado por una pending conversion.
func (r *Registry) Guest(ctx context.Context, guestID string) (*types.GuestRecord, error) {
	var g types.GuestRecord
	err := r.store.Get(ctx, docstore.GuestPath(guestID), &g)
	if docstore.IsNotFound(err) {
		return nil, ErrGuestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// read valida existencia, expiración y token; borra registros vencidos.
func (r *Registry) read(ctx context.Context, email, token string) (*types.PendingConversion, error) {
	norm := validation.NormalizeEmail(email)

	var p types.PendingConversion
	err := r.store.Get(ctx, docstore.PendingPath(norm), &p)
	if docstore.IsNotFound(err) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, err
	}
	if p.Expired(r.now().UTC()) {
		if delErr := r.store.Delete(ctx, docstore.PendingPath(norm)); delErr != nil {
			logger.From(ctx).Warn("failed to delete expired pending conversion", logger.Email(norm), logger.Err(delErr))
		}
		return nil, ErrExpired
	}

	// Comparación contra el hash persistido, en tiempo constante. Sin el
	// token del email no hay conversión.
	hash := tokens.SHA256Base64URL(token)
	if token == "" || subtle.ConstantTimeCompare([]byte(hash), []byte(p.TokenHash)) != 1 {
		logger.From(ctx).Warn("verification token mismatch", logger.Email(norm), logger.GuestID(p.GuestID))
		return nil, ErrBadToken
	}
	return &p, nil
}
