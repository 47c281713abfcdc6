// Package email despacha los links de verificación. El core solo consume el
// callback verificado; la entrega es un colaborador externo detrás de la
// interfaz Sender.
package email

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/eventgate/internal/observability/logger"
)

// Message es un email saliente.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender entrega mensajes out of band.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configura el sender SMTP.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	TLSMode            string // auto | starttls | ssl | none
	InsecureSkipVerify bool   // sólo dev
}

// SMTPSender implementa Sender usando SMTP (go-mail).
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender crea el sender SMTP.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
	}
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	default: // auto
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	}
	if s.cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: s.cfg.Host}
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("email: send to %s: %w", msg.To, err)
	}
	return nil
}

// EchoSender loguea el mensaje en vez de enviarlo. Para desarrollo
// (debug_echo_links) y tests.
type EchoSender struct{}

func (EchoSender) Send(ctx context.Context, msg Message) error {
	logger.From(ctx).Named("email").Info("echo email",
		logger.Email(msg.To),
		logger.String("subject", msg.Subject),
		logger.String("text", msg.Text),
	)
	return nil
}
