// Package session contiene los DTOs de revocación de sesiones.
package session

// RevokeRequest es el body de POST /v1/sessions/revoke.
type RevokeRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RevokeResponse confirma la revocación.
type RevokeResponse struct {
	Success bool `json:"success"`
}

// AdminRevokeRequest es el body de POST /v1/admin/sessions/revoke.
type AdminRevokeRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

// AdminRevokeResponse confirma la revocación administrativa.
type AdminRevokeResponse struct {
	Success   bool   `json:"success"`
	RevokedBy string `json:"revoked_by"`
}
