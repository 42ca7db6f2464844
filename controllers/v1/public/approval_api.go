package publicapi

import (
	"overtime-approval-backend/controllers"
	overtimeapprovalhandler "overtime-approval-backend/lib/overtime-approval"
	"overtime-approval-backend/models"
	apimodels "overtime-approval-backend/models/api"
	approvalapimodels "overtime-approval-backend/models/api/approval"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type publicApprovalApiController struct {
	controllers.BaseAPIController
}

func InitPublicApprovalApiRouters(app *fiber.App) {
	controller := publicApprovalApiController{}
	app.Route("approval", func(router fiber.Router) {
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Get("", controller.get)
			idRoute.Post("approve", controller.approve)
			idRoute.Post("reject", controller.reject)
		})
	})
}

// getLogger tags entries with the caller address; token links carry no user identity.
func (c *publicApprovalApiController) getLogger(ctx *fiber.Ctx, id string) *log.Entry {
	return log.
		WithField("approval_id", id).
		WithField("access", "token").
		WithField("ip", ctx.IP()).
		WithField("user_agent", ctx.Get(fiber.HeaderUserAgent))
}

// @Summary Approval by token
// @Tags Overtime approval (public)
// @Param   id          		path    string  true         "approval ID"
// @Param   token          		query   string  true         "access token"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.PublicApprovalView}
// @Failure 400 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 410 {object} apimodels.Response
// @Failure 429 {object} apimodels.Response
// @router /api/v1/public/approval/{id} [get]
func (c *publicApprovalApiController) get(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, err := overtimeapprovalhandler.Instance.GetByToken(id, ctx.Query("token"))
	if err != nil {
		return c.SendError(ctx, c.getLogger(ctx, id), err, "failed to read approval")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(view))
}

// @Summary Approve by token
// @Tags Overtime approval (public)
// @Param   id          		path    string  true         "approval ID"
// @Param   token          		query   string  true         "access token"
// @Param	body body	 approvalapimodels.PublicApproveData	false	"request body"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 410 {object} apimodels.Response
// @router /api/v1/public/approval/{id}/approve [post]
func (c *publicApprovalApiController) approve(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload approvalapimodels.PublicApproveData
	if len(ctx.Body()) != 0 {
		if err = c.BodyParser(ctx, &payload); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
		}
	}
	if err = overtimeapprovalhandler.Instance.ApproveByToken(ctx.UserContext(), id, ctx.Query("token"), payload); err != nil {
		return c.SendError(ctx, c.getLogger(ctx, id), err, "failed to approve overtime")
	}
	c.getLogger(ctx, id).WithField("decision", models.AStatusApproved).Info("token decision accepted")
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}

// @Summary Reject by token
// @Tags Overtime approval (public)
// @Param   id          		path    string  true         "approval ID"
// @Param   token          		query   string  true         "access token"
// @Param	body body	 approvalapimodels.RejectData	true	"request body"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 410 {object} apimodels.Response
// @router /api/v1/public/approval/{id}/reject [post]
func (c *publicApprovalApiController) reject(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload approvalapimodels.RejectData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err = overtimeapprovalhandler.Instance.RejectByToken(ctx.UserContext(), id, ctx.Query("token"), payload); err != nil {
		return c.SendError(ctx, c.getLogger(ctx, id), err, "failed to reject overtime")
	}
	c.getLogger(ctx, id).WithField("decision", models.AStatusRejected).Info("token decision accepted")
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}
