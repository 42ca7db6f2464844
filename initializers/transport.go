package initializers

import (
	"overtime-approval-backend/config"
	ratelimit "overtime-approval-backend/lib/rate-limit"
	whatsappclient "overtime-approval-backend/lib/whatsup/client"
	"time"

	log "github.com/sirupsen/logrus"
)

func InitWhatsapp() {
	cfg := config.Conf.WhatsApp
	whatsappclient.Connect(whatsappclient.Config{
		WebhookURL:   cfg.WebhookURL,
		InstanceName: cfg.InstanceName,
		ApiKey:       cfg.ApiKey,
		Timeout:      time.Duration(cfg.TimeoutSec) * time.Second,
		Attempts:     cfg.Attempts,
		RetryDelay:   time.Duration(cfg.RetryDelayMs) * time.Millisecond,
	})
	if cfg.WebhookURL == "" {
		log.Warn("whatsapp webhook url is not set, webhook notifications will be skipped")
	}
}

func InitRateLimit() {
	cfg := config.Conf.RateLimit
	err := ratelimit.Connect(cfg.Requests, time.Duration(cfg.WindowMin)*time.Minute, cfg.RedisURL)
	if err != nil {
		panic(err.Error())
	}
}
