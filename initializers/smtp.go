package initializers

import (
	"overtime-approval-backend/config"
	"overtime-approval-backend/lib/smtp"
)

func InitSmtp() {
	smtp.Connect(smtp.Config{
		User:       config.Conf.Smtp.User,
		Password:   config.Conf.Smtp.Password,
		Host:       config.Conf.Smtp.Host,
		Port:       config.Conf.Smtp.Port,
		TLSEnabled: config.Conf.Smtp.TLSEnabled != nil && *config.Conf.Smtp.TLSEnabled,
		From:       config.Conf.Smtp.From,
	})
}
