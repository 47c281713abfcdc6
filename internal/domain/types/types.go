// Package types contiene las entidades del dominio.
package types

import "time"

// Event es un evento con check-in habilitado. El código de 4 dígitos es lo
// único que un guest necesita para registrarse.
type Event struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Code      string     `json:"code" yaml:"code"` // 4 dígitos
	StartDate *time.Time `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
}

// GuestRecord identifica a un asistente sin identidad durable.
//
// Una vez seteado ConvertedToUserID el registro es inmutable (salvo
// UpdatedAt): nunca se borra, preserva el audit trail de la conversión.
type GuestRecord struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	OriginEventID     string     `json:"origin_event_id"`
	ConsentSignature  string     `json:"consent_signature"`
	ConsentSignedAt   time.Time  `json:"consent_signed_at"`
	ConvertedToUserID string     `json:"converted_to_user_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Converted indica si el guest ya fue migrado a una identidad durable.
func (g *GuestRecord) Converted() bool { return g.ConvertedToUserID != "" }

// AttendanceLink es el registro de un guest o user para un evento concreto.
// Durante la migración se crean links nuevos (nunca se mutan los del guest);
// MigratedFrom conserva la procedencia.
type AttendanceLink struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"` // guest id o user id
	EventID      string    `json:"event_id"`
	RegisteredAt time.Time `json:"registered_at"`
	MigratedFrom string    `json:"migrated_from,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PendingConversion vincula un guest con un upgrade de identidad en curso.
// Keyed por email normalizado; a lo sumo una viva por email. TokenHash es
// sha256 del token single-use enviado por email: cerrar la conversión exige
// presentar el token, que nunca se persiste en claro.
type PendingConversion struct {
	Email     string    `json:"email"`
	GuestID   string    `json:"guest_id"`
	TokenHash string    `json:"token_hash"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reporta si la pending conversion ya venció al tiempo dado.
func (p *PendingConversion) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// User es una identidad durable y autenticable, creada directamente o como
// destino de una migración de guest.
type User struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Phone                string `json:"phone,omitempty"`
	Role                 string `json:"role"` // user | admin
	IsGuest              bool   `json:"is_guest"`
	EmailVerified        bool   `json:"email_verified"`
	ConsentSignature     string `json:"consent_signature,omitempty"`
	ConvertedFromGuestID string `json:"converted_from_guest_id,omitempty"`
	// Serializado para el docstore; las respuestas del API usan DTOs, nunca
	// este struct directo.
	PasswordHash string `json:"password_hash,omitempty"`
	// TokensInvalidAfter marca la revocación global de refresh tokens del
	// identity provider. Complementa el revocation log de sesiones.
	TokensInvalidAfter *time.Time `json:"tokens_invalid_after,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CredentialRecord es una passkey registrada, propiedad exclusiva de un user.
// El id de la credencial es también la key del documento bajo el user.
type CredentialRecord struct {
	ID         string    `json:"id"` // credential id (base64url)
	UserID     string    `json:"user_id"`
	PublicKey  []byte    `json:"public_key"`
	SignCount  uint32    `json:"sign_count"` // monotónico; detección de clones
	Transports []string  `json:"transports,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// CredentialIndexEntry mapea credential id -> user id en una ubicación plana.
// Invariante: existe si y solo si existe el CredentialRecord correspondiente;
// se escriben y borran juntos en la misma transacción.
type CredentialIndexEntry struct {
	CredentialID string    `json:"credential_id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RevocationReason clasifica por qué se revocaron las sesiones de un user.
type RevocationReason string

const (
	RevocationUserRequest        RevocationReason = "user_request"
	RevocationAdminAction        RevocationReason = "admin_action"
	RevocationCredentialRemoved  RevocationReason = "credential_removed"
	RevocationCredentialRotation RevocationReason = "credential_rotation"
)

// SessionRevocationEvent invalida toda sesión del user emitida antes de
// RevokedAt. Log append-only; la validación de sesión lo consulta siempre.
type SessionRevocationEvent struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Reason    RevocationReason `json:"reason"`
	Actor     string           `json:"actor"`
	RevokedAt time.Time        `json:"revoked_at"`
}
