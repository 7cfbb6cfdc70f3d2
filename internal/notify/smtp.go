package notify

import (
	"context"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host     string `default:"" usage:"SMTP relay host; empty logs notifications instead"`
	Port     int    `default:"25" usage:"SMTP relay port"`
	From     string `default:"orders@storefront.local" usage:"Sender address"`
	Username string `default:"" usage:"SMTP username; empty disables auth"`
	Password string `default:"" usage:"SMTP password"`
}

// SMTPSender sends messages through an SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender for cfg.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	s := &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s, nil
}

// Send implements Sender. The SMTP exchange itself is not cancellable; ctx
// is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("header contains line break")
	}
	if err := s.sendMail(s.addr, s.auth, s.from, []string{m.To}, s.render(m)); err != nil {
		return errors.Wrapf(err, "send mail to %s", m.To)
	}
	return nil
}

func (s *SMTPSender) render(m Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(m.Body)
	return []byte(b.String())
}
