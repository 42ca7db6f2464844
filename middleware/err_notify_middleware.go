package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type errNotifyPayload struct {
	Code   int    `json:"code"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Error  string `json:"error"`
}

func ErrNotify(addr string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		statusCode := c.Response().StatusCode()
		if addr == "" || statusCode < http.StatusInternalServerError {
			return err
		}
		body := string(c.Response().Body())

		var data struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if unmErr := json.Unmarshal(c.Response().Body(), &data); unmErr != nil {
			log.WithError(unmErr).Warn("error unmarshalling response body in middleware")
		}

		path := c.OriginalURL()
		if r := c.Route(); r != nil {
			path = r.Path
		}
		msg := data.Message
		if msg == "" {
			msg = body
		}
		payload := errNotifyPayload{
			Code:   statusCode,
			Method: c.Method(),
			Path:   path,
			Error:  msg,
		}
		go func() {
			code, _, errs := fiber.Post(addr).JSON(payload).Bytes()
			if len(errs) > 0 {
				log.WithError(errs[0]).Warn("error sending error notification")
			} else if code >= http.StatusBadRequest {
				log.WithField("code", code).Warn("error notification rejected")
			}
		}()
		return err
	}
}
