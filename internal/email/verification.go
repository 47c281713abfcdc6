package email

import (
	"context"
	"fmt"
	"strings"
)

// VerificationMailer arma y despacha el link de verificación single-use que
// cierra el upgrade de guest a identidad durable.
type VerificationMailer struct {
	Sender  Sender
	BaseURL string
}

// ConversionLink arma la URL de verificación para un token dado.
func (m *VerificationMailer) ConversionLink(token string) string {
	return strings.TrimRight(m.BaseURL, "/") + "/convert/verify?token=" + token
}

// SendConversionLink envía el link de verificación al email del guest.
// El token es opaco para este core: lo valida el mecanismo de entrega.
func (m *VerificationMailer) SendConversionLink(ctx context.Context, to, token string) error {
	if m.Sender == nil {
		return fmt.Errorf("email: no sender configured")
	}
	link := m.ConversionLink(token)

	msg := Message{
		To:      to,
		Subject: "Confirm your account upgrade",
		Text: "Tap the link below to finish creating your account. " +
			"The link expires in 24 hours.\n\n" + link + "\n",
		HTML: fmt.Sprintf(
			`<p>Tap the link below to finish creating your account. The link expires in 24 hours.</p><p><a href="%s">Finish my account</a></p>`,
			link),
	}
	return m.Sender.Send(ctx, msg)
}
