package config

import (
	"github.com/gotify/configor"
)

var Conf *Configuration

type Configuration struct {
	App struct {
		ListenAddr string `default:"" env:"APP_HOST"`
		Port       int    `default:"8080"  env:"APP_PORT"`
	}
	Database struct {
		Host           string `default:"127.0.0.1" env:"DB_HOST"`
		Port           string `default:"5432" env:"DB_PORT"`
		Name           string `default:"overtime" env:"DB_NAME"`
		User           string `default:"postgres" env:"DB_USER"`
		Password       string `default:"postgres" env:"DB_PASSWORD"`
		MigrateOnStart *bool  `default:"true" env:"DB_MIGRATE_ON_START"`
		DebugMode      *bool  `default:"false" env:"DB_DEBUG_MODE"`
	}
	Smtp struct {
		User       string `default:"" env:"SMTP_USER"`
		Password   string `default:"" env:"SMTP_PASSWORD"`
		Host       string `default:"" env:"SMTP_HOST"`
		Port       string `default:"" env:"SMTP_PORT"`
		TLSEnabled *bool  `default:"true" env:"SMTP_TLS_ENABLED"`
		From       string `default:"" env:"SMTP_FROM"`
	}
	Auth struct {
		JWTSecret      string `default:"" env:"JWT_SECRET"`
		JWTExpireInSec int    `default:"3600" env:"JWT_EXPIRE_IN_SEC"`
	}
	Approval struct {
		FrontendURL  string `default:"http://localhost:3000" env:"FRONTEND_URL"`
		AsyncNotify  *bool  `default:"true" env:"APPROVAL_ASYNC_NOTIFY"`
		EmailEnabled *bool  `default:"false" env:"APPROVAL_EMAIL_ENABLED"`
	}
	WhatsApp struct {
		WebhookURL   string `default:"" env:"WHATSAPP_WEBHOOK_URL"`
		InstanceName string `default:"" env:"WHATSAPP_INSTANCE_NAME"`
		ApiKey       string `default:"" env:"WHATSAPP_API_KEY"`
		TimeoutSec   int    `default:"10" env:"WHATSAPP_TIMEOUT_SEC"`
		Attempts     int    `default:"3" env:"WHATSAPP_ATTEMPTS"`
		RetryDelayMs int    `default:"1000" env:"WHATSAPP_RETRY_DELAY_MS"`
	}
	RateLimit struct {
		Requests  int    `default:"10" env:"RATE_LIMIT_REQUESTS"`
		WindowMin int    `default:"15" env:"RATE_LIMIT_WINDOW_MIN"`
		RedisURL  string `default:"" env:"RATE_LIMIT_REDIS_URL"`
	}
	Scheduler struct {
		Enabled  *bool  `default:"true" env:"SCHEDULER_ENABLED"`
		ExpireAt string `default:"00:05" env:"SCHEDULER_EXPIRE_AT"`
		RemindAt string `default:"09:00" env:"SCHEDULER_REMIND_AT"`
	}
	NotifyBot struct {
		ErrAddr string `default:"" env:"NOTIFY_BOT_ERR_ADDR"`
	}
}

func configFiles() []string {
	return []string{"config.yml"}
}

func InitConfig() {
	if Conf != nil {
		return
	}
	conf := new(Configuration)
	err := configor.New(&configor.Config{}).Load(conf, configFiles()...)
	if err != nil {
		panic(err)
	}
	Conf = conf
}
