// Package convert contiene los DTOs del flujo de conversión de guests.
package convert

// StartRequest es el body de POST /v1/convert/start.
type StartRequest struct {
	GuestID string `json:"guest_id"`
	Email   string `json:"email"`
}

// StartResponse confirma la creación de la pending conversion.
// DebugLink solo aparece en entornos de desarrollo con echo habilitado.
type StartResponse struct {
	Success   bool   `json:"success"`
	DebugLink string `json:"debug_link,omitempty"`
}

// CompleteRequest es el body de POST /v1/convert/complete: el callback con
// la identidad verificada. Token es el del link de verificación enviado
// por email.
type CompleteRequest struct {
	Email  string `json:"email"`
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// CompleteResponse reporta el resultado de la migración.
type CompleteResponse struct {
	Success                 bool   `json:"success"`
	UserID                  string `json:"user_id"`
	MigratedAttendanceCount int    `json:"migrated_attendance_count"`
}

// UpgradeRequest es el body de POST /v1/convert/upgrade: upgrade con
// password, crea la identidad dentro de la migración. Token es el del link
// de verificación enviado por email.
type UpgradeRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// LinkRequest es el body de POST /v1/admin/link-guest (solo admin): migra el
// guest hacia un user preexistente, sin crear identidad.
type LinkRequest struct {
	GuestID      string `json:"guest_id"`
	TargetUserID string `json:"target_user_id"`
}
