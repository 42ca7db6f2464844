package apiv1

import (
	"fmt"
	"overtime-approval-backend/controllers"
	approvalnotifyhandler "overtime-approval-backend/lib/approval-notify"
	deliveryloghandler "overtime-approval-backend/lib/delivery-log"
	overtimeapprovalhandler "overtime-approval-backend/lib/overtime-approval"
	overtimejobs "overtime-approval-backend/lib/overtime-jobs"
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	"overtime-approval-backend/middleware"
	"overtime-approval-backend/models"
	apimodels "overtime-approval-backend/models/api"
	approvalapimodels "overtime-approval-backend/models/api/approval"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

type overtimeApprovalApiController struct {
	controllers.BaseAPIController
}

func InitOvertimeApprovalApiRouters(app *fiber.App) {
	controller := overtimeApprovalApiController{}
	app.Route("overtime", func(router fiber.Router) {
		router.Use(middleware.UserRequired())
		router.Post("", controller.create)
		router.Get("pending", controller.pending)
		router.Get("stats", controller.stats)
		router.Get("export", controller.export)
		router.Get("employee/:id", controller.listForEmployee)
		router.Post("approve_batch", controller.approveBatch)
		router.Post("reject_batch", controller.rejectBatch)
		router.Route("notifications", func(notifyRoute fiber.Router) {
			notifyRoute.Get("", controller.notifications)
			notifyRoute.Get("log", controller.deliveryLog)
			notifyRoute.Get("log/stats", controller.deliveryStats)
			notifyRoute.Get("log/export", controller.deliveryExport)
			notifyRoute.Put(":id/read", controller.markRead)
		})
		router.Route("jobs", func(jobsRoute fiber.Router) {
			jobsRoute.Use(middleware.SpaceAdminRequired())
			jobsRoute.Post("expire", controller.runExpireJob)
			jobsRoute.Post("remind", controller.runReminderJob)
		})
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Get("", controller.get)
			idRoute.Get("receipt", controller.receipt)
			idRoute.Put("approve", controller.approve)
			idRoute.Put("reject", controller.reject)
		})
	})
}

// @Summary Create overtime approval
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 approvalapimodels.ApprovalCreateData	true	"request body"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/space/overtime [post]
func (c *overtimeApprovalApiController) create(ctx *fiber.Ctx) error {
	var payload approvalapimodels.ApprovalCreateData
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, err := overtimeapprovalhandler.Instance.Create(ctx.UserContext(), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to create overtime approval")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(view))
}

// @Summary Pending approvals of the current approver
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Success 200 {object} apimodels.Response{data=[]approvalapimodels.ApprovalView}
// @Failure 500 {object} apimodels.Response
// @router /api/v1/space/overtime/pending [get]
func (c *overtimeApprovalApiController) pending(ctx *fiber.Ctx) error {
	list, err := overtimeapprovalhandler.Instance.PendingForApprover(middleware.GetUserID(ctx))
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to list pending approvals")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(list))
}

// @Summary Approver statistics
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   period				query		int		false	"period in days, 30 by default"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalStats}
// @Failure 500 {object} apimodels.Response
// @router /api/v1/space/overtime/stats [get]
func (c *overtimeApprovalApiController) stats(ctx *fiber.Ctx) error {
	period := ctx.QueryInt("period", models.ApprovalStatsPeriodDay)
	result, err := overtimeapprovalhandler.Instance.StatsForApprover(middleware.GetUserID(ctx), period)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to calculate approval statistics")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Export approver history to Excel
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   period				query		int		false	"period in days, 30 by default"
// @Success 200
// @Failure 500 {object} apimodels.Response
// @router /api/v1/space/overtime/export [get]
func (c *overtimeApprovalApiController) export(ctx *fiber.Ctx) error {
	period := ctx.QueryInt("period", models.ApprovalStatsPeriodDay)
	data, err := overtimeapprovalhandler.Instance.ExportForApprover(middleware.GetUserID(ctx), period)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to export approvals")
	}
	fileName := fmt.Sprintf("overtime-%v.xlsx", time.Now().Format("20060102-150405"))
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return ctx.SendStream(data)
}

// @Summary Approvals of an employee
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id					path		string	true	"employee ID"
// @Param   status				query		string	false	"pending|approved|rejected|cancelled"
// @Success 200 {object} apimodels.Response{data=[]approvalapimodels.ApprovalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/space/overtime/employee/{id} [get]
func (c *overtimeApprovalApiController) listForEmployee(ctx *fiber.Ctx) error {
	employeeID, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	userID := middleware.GetUserID(ctx)
	if employeeID != userID && !middleware.GetSpaceRole(ctx).IsSpaceAdmin() {
		return c.SendError(ctx, c.GetLogger(ctx), apperrors.PermissionError{ActorID: userID}, "access denied")
	}
	var filter approvalapimodels.ListFilter
	if err = ctx.QueryParser(&filter); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError("invalid query parameters"))
	}
	list, err := overtimeapprovalhandler.Instance.ListForEmployee(employeeID, filter)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to list employee approvals")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(list))
}

// @Summary Get overtime approval
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id					path		string	true	"approval ID"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ApprovalView}
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @router /api/v1/space/overtime/{id} [get]
func (c *overtimeApprovalApiController) get(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, err := overtimeapprovalhandler.Instance.GetByID(id, middleware.GetUserID(ctx))
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to read overtime approval")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(view))
}

// @Summary Decision receipt (PDF)
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id					path		string	true	"approval ID"
// @Success 200
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @router /api/v1/space/overtime/{id}/receipt [get]
func (c *overtimeApprovalApiController) receipt(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	body, err := overtimeapprovalhandler.Instance.Receipt(id, middleware.GetUserID(ctx))
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to build receipt")
	}
	ctx.Set(fiber.HeaderContentType, "application/pdf")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="overtime-%s.pdf"`, id))
	return ctx.Send(body)
}

// @Summary Approve
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id					path		string	true	"approval ID"
// @Param	body body	 approvalapimodels.ApproveData	true	"request body"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 410 {object} apimodels.Response
// @router /api/v1/space/overtime/{id}/approve [put]
func (c *overtimeApprovalApiController) approve(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload approvalapimodels.ApproveData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	err = overtimeapprovalhandler.Instance.ApproveAuthenticated(ctx.UserContext(), id, middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to approve overtime")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}

// @Summary Reject
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id					path		string	true	"approval ID"
// @Param	body body	 approvalapimodels.RejectData	true	"request body"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 410 {object} apimodels.Response
// @router /api/v1/space/overtime/{id}/reject [put]
func (c *overtimeApprovalApiController) reject(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload approvalapimodels.RejectData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	err = overtimeapprovalhandler.Instance.RejectAuthenticated(ctx.UserContext(), id, middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to reject overtime")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}

// @Summary Approve a batch
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 approvalapimodels.BatchApproveData	true	"request body"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.BatchResult}
// @Failure 400 {object} apimodels.Response
// @router /api/v1/space/overtime/approve_batch [post]
func (c *overtimeApprovalApiController) approveBatch(ctx *fiber.Ctx) error {
	var payload approvalapimodels.BatchApproveData
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	result, err := overtimeapprovalhandler.Instance.ApproveBatch(ctx.UserContext(), middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to approve batch")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Reject a batch
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 approvalapimodels.BatchRejectData	true	"request body"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.BatchResult}
// @Failure 400 {object} apimodels.Response
// @router /api/v1/space/overtime/reject_batch [post]
func (c *overtimeApprovalApiController) rejectBatch(ctx *fiber.Ctx) error {
	var payload approvalapimodels.BatchRejectData
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	result, err := overtimeapprovalhandler.Instance.RejectBatch(ctx.UserContext(), middleware.GetUserID(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to reject batch")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary In-app notifications of the current user
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   unread				query		bool	false	"unread only"
// @Success 200 {object} apimodels.Response{data=[]approvalapimodels.NotificationView}
// @router /api/v1/space/overtime/notifications [get]
func (c *overtimeApprovalApiController) notifications(ctx *fiber.Ctx) error {
	list, err := approvalnotifyhandler.Instance.Inbox(middleware.GetUserID(ctx), ctx.QueryBool("unread", false))
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to list notifications")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(list))
}

// @Summary Mark notification as read
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id					path		string	true	"notification ID"
// @Success 200 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @router /api/v1/space/overtime/notifications/{id}/read [put]
func (c *overtimeApprovalApiController) markRead(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err = approvalnotifyhandler.Instance.MarkRead(middleware.GetUserID(ctx), id); err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to update notification")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}

// @Summary Delivery log
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   approval_id			query		string	false	"approval ID, required unless space admin"
// @Param   status				query		string	false	"sent|failed|skipped"
// @Param   channel				query		string	false	"in_app|webhook|email"
// @Param   from				query		string	false	"YYYY-MM-DD"
// @Param   to					query		string	false	"YYYY-MM-DD"
// @Success 200 {object} apimodels.Response{data=[]approvalapimodels.DeliveryLogView}
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @router /api/v1/space/overtime/notifications/log [get]
func (c *overtimeApprovalApiController) deliveryLog(ctx *fiber.Ctx) error {
	actor, filter, err := c.deliveryLogRequest(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	list, err := deliveryloghandler.Instance.List(actor, filter)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to read delivery log")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(list))
}

// @Summary Delivery log statistics per status and channel
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   approval_id			query		string	false	"approval ID, required unless space admin"
// @Param   from				query		string	false	"YYYY-MM-DD"
// @Param   to					query		string	false	"YYYY-MM-DD"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.DeliveryStats}
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @router /api/v1/space/overtime/notifications/log/stats [get]
func (c *overtimeApprovalApiController) deliveryStats(ctx *fiber.Ctx) error {
	actor, filter, err := c.deliveryLogRequest(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	stats, err := deliveryloghandler.Instance.Stats(actor, filter)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to calculate delivery statistics")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(stats))
}

// @Summary Export delivery log to Excel
// @Tags Overtime approval
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   approval_id			query		string	false	"approval ID, required unless space admin"
// @Success 200
// @Failure 400 {object} apimodels.Response
// @Failure 403 {object} apimodels.Response
// @router /api/v1/space/overtime/notifications/log/export [get]
func (c *overtimeApprovalApiController) deliveryExport(ctx *fiber.Ctx) error {
	actor, filter, err := c.deliveryLogRequest(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	data, err := deliveryloghandler.Instance.Export(actor, filter)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "failed to export delivery log")
	}
	fileName := fmt.Sprintf("overtime-deliveries-%v.xlsx", time.Now().Format("20060102-150405"))
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return ctx.SendStream(data)
}

func (c *overtimeApprovalApiController) deliveryLogRequest(ctx *fiber.Ctx) (deliveryloghandler.Actor, approvalapimodels.DeliveryLogFilter, error) {
	var filter approvalapimodels.DeliveryLogFilter
	if err := ctx.QueryParser(&filter); err != nil {
		return deliveryloghandler.Actor{}, filter, errors.New("invalid query parameters")
	}
	actor := deliveryloghandler.Actor{
		UserID:  middleware.GetUserID(ctx),
		IsAdmin: middleware.GetSpaceRole(ctx).IsSpaceAdmin(),
	}
	return actor, filter, nil
}

// @Summary Run the expire job now
// @Tags Overtime jobs
// @Param   Authorization		header		string	true	"Authorization token"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ExpireSummary}
// @Failure 409 {object} apimodels.Response
// @router /api/v1/space/overtime/jobs/expire [post]
func (c *overtimeApprovalApiController) runExpireJob(ctx *fiber.Ctx) error {
	summary, err := overtimejobs.Instance.RunExpireJob(ctx.UserContext())
	if err != nil {
		return c.sendJobError(ctx, err)
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(summary))
}

// @Summary Run the reminder job now
// @Tags Overtime jobs
// @Param   Authorization		header		string	true	"Authorization token"
// @Success 200 {object} apimodels.Response{data=approvalapimodels.ReminderSummary}
// @Failure 409 {object} apimodels.Response
// @router /api/v1/space/overtime/jobs/remind [post]
func (c *overtimeApprovalApiController) runReminderJob(ctx *fiber.Ctx) error {
	summary, err := overtimejobs.Instance.RunReminderJob(ctx.UserContext())
	if err != nil {
		return c.sendJobError(ctx, err)
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(summary))
}

func (c *overtimeApprovalApiController) sendJobError(ctx *fiber.Ctx, err error) error {
	if errors.Is(err, overtimejobs.ErrJobBusy) {
		return ctx.Status(fiber.StatusConflict).JSON(apimodels.NewError(err.Error()))
	}
	return c.SendError(ctx, c.GetLogger(ctx), err, "job failed")
}
