// Package credential contiene los DTOs de las ceremonias de passkeys.
package credential

// RegisterRequest es el body de POST /v1/credentials.
type RegisterRequest struct {
	CredentialID string   `json:"credential_id"`         // base64url
	PublicKey    string   `json:"public_key"`            // base64url, COSE
	Transports   []string `json:"transports,omitempty"`
}

// RegisterResponse confirma el alta.
type RegisterResponse struct {
	Success      bool   `json:"success"`
	CredentialID string `json:"credential_id"`
}

// RemoveResponse reporta cuántas credenciales quedan.
type RemoveResponse struct {
	Success   bool `json:"success"`
	Remaining int  `json:"remaining"`
}

// LookupResponse resuelve una credencial a su identidad dueña durante la
// ceremonia de autenticación.
type LookupResponse struct {
	Success      bool     `json:"success"`
	CredentialID string   `json:"credential_id"`
	UserID       string   `json:"user_id"`
	PublicKey    string   `json:"public_key"`
	SignCount    uint32   `json:"sign_count"`
	Transports   []string `json:"transports,omitempty"`
}
