// Package validation valida inputs del API antes de tocar el dominio.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
)

// EventCode valida el código de evento de 4 dígitos.
func EventCode(code string) error {
	if len(code) != 4 {
		return fmt.Errorf("event code must be exactly 4 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("event code must be exactly 4 digits")
		}
	}
	return nil
}

// NormalizeEmail normaliza un email para usarlo como key
// (trim + lowercase). No valida formato.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Email valida formato de email.
func Email(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// Required verifica que un campo obligatorio no esté vacío.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
