package controllers

import (
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	apimodels "overtime-approval-backend/models/api"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type BaseAPIController struct{}

func (c *BaseAPIController) BodyParser(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		log.WithError(err).Error("failed to parse request body")
		return errors.New("failed to read request data")
	}
	return nil
}

func (c *BaseAPIController) GetID(ctx *fiber.Ctx) (string, error) {
	return c.GetIDByKey(ctx, "id")
}

func (c *BaseAPIController) GetIDByKey(ctx *fiber.Ctx, key string) (string, error) {
	id := strings.TrimSpace(ctx.Params(key))
	if id == "" {
		return "", errors.Errorf("%s is not set", key)
	}
	return id, nil
}

func (c *BaseAPIController) GetLogger(ctx *fiber.Ctx) *log.Entry {
	logger := log.
		WithField("method", ctx.Method()).
		WithField("path", ctx.Path())
	if id := ctx.Params("id"); id != "" {
		logger = logger.WithField("approval_id", id)
	}
	return logger
}

// SendError answers business errors with their own message and status,
// anything else is logged and answered with userMsg.
func (c *BaseAPIController) SendError(ctx *fiber.Ctx, logger *log.Entry, err error, userMsg string) error {
	status := errorStatus(err)
	if status != fiber.StatusInternalServerError {
		logger.WithError(err).Info(userMsg)
		return ctx.Status(status).JSON(apimodels.NewError(err.Error()))
	}
	logger.WithError(err).Error(userMsg)
	return ctx.Status(status).JSON(apimodels.NewError(userMsg))
}

func errorStatus(err error) int {
	switch {
	case apperrors.IsValidation(err), apperrors.IsToken(err):
		return fiber.StatusBadRequest
	case apperrors.IsNotFound(err):
		return fiber.StatusNotFound
	case apperrors.IsInvalidState(err):
		return fiber.StatusConflict
	case apperrors.IsExpired(err):
		return fiber.StatusGone
	case apperrors.IsPermission(err):
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}
