package whatsappclient

import (
	"context"
	"overtime-approval-backend/lib/utils/helpers"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Message struct {
	Number   string
	Text     string
	Link     string
	Metadata map[string]string
}

type Provider interface {
	// Send posts the message to the webhook, retrying transport failures.
	// attempts is the number of POSTs made.
	Send(ctx context.Context, msg Message) (attempts int, err error)
	IsConfigured() bool
}

type Config struct {
	WebhookURL   string
	InstanceName string
	ApiKey       string
	Timeout      time.Duration
	Attempts     int
	RetryDelay   time.Duration
}

var Instance Provider

func Connect(cfg Config) {
	Instance = NewClient(cfg)
}

func NewClient(cfg Config) Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	return impl{cfg: cfg}
}

type impl struct {
	cfg Config
}

type webhookPayload struct {
	Number       string            `json:"number"`
	Text         string            `json:"text"`
	Link         string            `json:"link,omitempty"`
	InstanceName string            `json:"instance_name,omitempty"`
	ApiKey       string            `json:"apikey,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (i impl) IsConfigured() bool {
	return i.cfg.WebhookURL != ""
}

func (i impl) Send(ctx context.Context, msg Message) (attempts int, err error) {
	logger := log.WithField("recipient", msg.Number)
	if !i.IsConfigured() {
		return 0, errors.New("whatsapp webhook url is not configured")
	}
	if msg.Number == "" {
		return 0, errors.New("recipient number is empty")
	}
	payload := webhookPayload{
		Number:       msg.Number,
		Text:         msg.Text,
		Link:         msg.Link,
		InstanceName: i.cfg.InstanceName,
		ApiKey:       i.cfg.ApiKey,
		Metadata:     msg.Metadata,
	}
	for attempts < i.cfg.Attempts {
		if helpers.IsContextDone(ctx) {
			return attempts, errors.Wrap(ctx.Err(), "sending interrupted")
		}
		attempts++
		err = i.post(payload)
		if err == nil {
			logger.WithField("attempts", attempts).Info("webhook message sent")
			return attempts, nil
		}
		logger.
			WithError(err).
			WithField("attempt", attempts).
			Warn("webhook attempt failed")
		if attempts < i.cfg.Attempts {
			select {
			case <-ctx.Done():
				return attempts, errors.Wrap(ctx.Err(), "sending interrupted")
			case <-time.After(i.cfg.RetryDelay * time.Duration(attempts)):
			}
		}
	}
	return attempts, errors.Wrapf(err, "webhook failed after %d attempts", attempts)
}

func (i impl) post(payload webhookPayload) error {
	agent := fiber.Post(i.cfg.WebhookURL)
	agent.JSON(payload)
	agent.Timeout(i.cfg.Timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Wrap(errs[0], "webhook transport error")
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return errors.Errorf("webhook responded HTTP %d: %s", code, string(body))
	}
	return nil
}
