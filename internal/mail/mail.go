// Package mail sends notification emails over SMTP.
package mail

import (
	"canteen_system/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Sender delivers plain-text notifications
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends through an SMTP account whose credentials come from config
type SMTPSender struct {
	from   string
	dialer *gomail.Dialer
}

// New returns an SMTPSender, or a NopSender when no SMTP host is configured
func New(cfg *config.Config) Sender {
	if cfg.SMTPHost == "" {
		return NopSender{}
	}
	return &SMTPSender{
		from:   cfg.SMTPFrom,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

// NopSender only logs the message
type NopSender struct{}

func (NopSender) Send(to, subject, _ string) error {
	logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Mail delivery disabled, message dropped")
	return nil
}
