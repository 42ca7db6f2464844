package smtp

import (
	"bytes"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

var Instance Provider

type Provider interface {
	SendEMail(to, subject, message string) error
	IsConfigured() bool
}

type Config struct {
	User       string
	Password   string
	Host       string
	Port       string
	TLSEnabled bool
	From       string
}

func Connect(cfg Config) {
	Instance = NewInstance(cfg)
}

func NewInstance(cfg Config) Provider {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &impl{cfg: cfg}
}

type impl struct {
	cfg Config
}

func (i impl) IsConfigured() bool {
	return i.cfg.User != "" && i.cfg.Host != "" && i.cfg.Port != ""
}

func (i impl) SendEMail(to, subject, message string) (err error) {
	logger := log.WithField("recipient", to)
	if !i.IsConfigured() {
		return errors.New("smtp client is not configured")
	}
	if to == "" {
		return errors.New("recipient address is empty")
	}
	msg := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	msg.SetHeader("From", i.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", message)

	body := new(bytes.Buffer)
	if _, err = msg.WriteTo(body); err != nil {
		return errors.Wrap(err, "failed to compose email")
	}

	auth := sasl.NewPlainClient("", i.cfg.User, i.cfg.Password)
	addr := i.cfg.Host + ":" + i.cfg.Port
	if i.cfg.TLSEnabled {
		err = smtp.SendMailTLS(addr, auth, i.cfg.User, []string{to}, body)
	} else {
		err = smtp.SendMail(addr, auth, i.cfg.User, []string{to}, body)
	}
	if err != nil {
		logger.WithError(err).Error("email sending failed")
		return errors.Wrap(err, "email sending failed")
	}
	logger.Info("email sent")
	return nil
}
