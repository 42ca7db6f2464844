package controllers

import (
	"net/http/httptest"
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	"overtime-approval-backend/models"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	t.Run("business errors check", func(t *testing.T) {
		require.Equal(t, fiber.StatusBadRequest, errorStatus(apperrors.NewValidationError("bad")))
		require.Equal(t, fiber.StatusBadRequest, errorStatus(apperrors.TokenError{Reason: "invalid token"}))
		require.Equal(t, fiber.StatusNotFound, errorStatus(apperrors.NotFoundError{ID: "1"}))
		require.Equal(t, fiber.StatusConflict, errorStatus(apperrors.InvalidStateError{Status: models.AStatusApproved}))
		require.Equal(t, fiber.StatusGone, errorStatus(apperrors.ExpiredError{}))
		require.Equal(t, fiber.StatusForbidden, errorStatus(apperrors.PermissionError{ActorID: "x"}))
	})

	t.Run("wrapped errors check", func(t *testing.T) {
		err := errors.Wrap(apperrors.ExpiredError{}, "failed to approve")
		require.Equal(t, fiber.StatusGone, errorStatus(err))
		require.Equal(t, fiber.StatusInternalServerError, errorStatus(errors.New("db down")))
	})
}

func TestSendError(t *testing.T) {
	controller := BaseAPIController{}
	app := fiber.New()
	app.Get("/conflict", func(ctx *fiber.Ctx) error {
		return controller.SendError(ctx, controller.GetLogger(ctx), apperrors.InvalidStateError{Status: models.AStatusRejected}, "failed")
	})
	app.Get("/internal", func(ctx *fiber.Ctx) error {
		return controller.SendError(ctx, controller.GetLogger(ctx), errors.New("connection refused"), "failed to read approval")
	})

	t.Run("business error message check", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/conflict", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("internal error hidden check", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/internal", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		body := make([]byte, 256)
		n, _ := resp.Body.Read(body)
		require.Contains(t, string(body[:n]), "failed to read approval")
		require.NotContains(t, string(body[:n]), "connection refused")
	})
}
