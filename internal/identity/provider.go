// Package identity define el boundary con la capa identity-provider:
// alta y actualización de identidades, lookup por email y revocación global
// de refresh tokens. El core solo depende de esta interfaz.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/eventgate/internal/domain/types"
)

// Errores del provider.
var (
	ErrNotFound     = errors.New("identity: not found")
	ErrEmailInUse   = errors.New("identity: email already in use")
	ErrWeakPassword = errors.New("identity: password does not meet policy")
)

// NewIdentity son los datos para crear una identidad durable.
type NewIdentity struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Password  string // vacío para identidades passwordless
}

// Update son los campos actualizables de una identidad.
// Punteros nil = sin cambio.
type Update struct {
	Email         *string
	Password      *string
	EmailVerified *bool
}

// BuildUser arma un *types.User nuevo listo para ser creado dentro de una
// transacción externa (las migraciones crean la identidad en el mismo commit
// que copia la asistencia, no a través del provider).
func BuildUser(email, firstName, lastName, phone, passwordHash string) *types.User {
	now := time.Now().UTC()
	return &types.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        phone,
		Role:         "user",
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Provider es la autoridad de credenciales/passwords.
type Provider interface {
	// CreateIdentity crea una identidad nueva. ErrEmailInUse si el email ya
	// tiene identidad.
	CreateIdentity(ctx context.Context, n NewIdentity) (*types.User, error)

	// UpdateIdentity aplica cambios parciales. ErrNotFound si no existe.
	UpdateIdentity(ctx context.Context, id string, upd Update) error

	// LookupByEmail busca una identidad por email normalizado.
	// ErrNotFound si no existe.
	LookupByEmail(ctx context.Context, email string) (*types.User, error)

	// RevokeAllTokens invalida todos los refresh tokens vigentes de la
	// identidad. Belt-and-suspenders junto al revocation log de sesiones.
	RevokeAllTokens(ctx context.Context, id string) error
}
