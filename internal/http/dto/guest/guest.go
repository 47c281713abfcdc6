// Package guest contiene los DTOs de registro y validación de código.
package guest

// ValidateCodeRequest es el body de POST /v1/guest/validate-code.
type ValidateCodeRequest struct {
	Code string `json:"code"`
}

// ValidateCodeResponse confirma un código válido.
type ValidateCodeResponse struct {
	Success   bool    `json:"success"`
	Valid     bool    `json:"valid"`
	EventID   string  `json:"event_id"`
	EventName string  `json:"event_name"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
}

// RegisterRequest es el body de POST /v1/guest/register.
type RegisterRequest struct {
	EventCode        string `json:"event_code"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	ConsentSignature string `json:"consent_signature"`
}

// RegisterResponse confirma el alta del guest.
type RegisterResponse struct {
	Success   bool   `json:"success"`
	GuestID   string `json:"guest_id"`
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	FirstName string `json:"first_name"`
}
