package adapter

import (
	"context"
	"errors"

	"gopkg.in/gomail.v2"

	"gigpulse/internal/infrastructure/mail/port"
)

// SMTPMailer sends through an SMTP relay, dialing once per message.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, portNum int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, portNum, username, password),
		from:   from,
	}
}

var _ port.Mailer = (*SMTPMailer)(nil)

func (s *SMTPMailer) Send(ctx context.Context, e port.Email) error {
	if e.To == "" {
		return errors.New("mail: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dialer.DialAndSend(s.message(e))
}

func (s *SMTPMailer) message(e port.Email) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/html", e.HTML)
	return m
}
