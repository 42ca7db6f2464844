package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"overtime-approval-backend/config"
	apiv1 "overtime-approval-backend/controllers/v1"
	publicapi "overtime-approval-backend/controllers/v1/public"
	"overtime-approval-backend/db"
	_ "overtime-approval-backend/docs"
	"overtime-approval-backend/fiberlog"
	"overtime-approval-backend/initializers"
	overtimeapprovalhandler "overtime-approval-backend/lib/overtime-approval"
	ratelimit "overtime-approval-backend/lib/rate-limit"
	"overtime-approval-backend/middleware"
	apimodels "overtime-approval-backend/models/api"
	"sync"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"
)

// @title Overtime approval API
// @version 1.0
// @description Overtime approval workflow
func main() {
	ctx, cancel := context.WithCancel(context.Background())

	initializers.InitAllServices(ctx)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(fiberRecover.New())
	app.Use(requestid.New())

	swaggerCfg := swagger.Config{
		Path:     "/swagger",
		FilePath: "./docs/swagger.json",
	}
	app.Use(swagger.New(swaggerCfg))
	app.Get("/health", func(ctx *fiber.Ctx) error {
		if err := db.PingDB(); err != nil {
			log.WithError(err).Error("health check failed")
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(apimodels.NewError("database unavailable"))
		}
		return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
	})

	//api
	apiV1 := fiber.New()
	apiV1.Use(fiberlog.New(*initializers.LoggerConfig))
	apiV1.Use(middleware.ErrNotify(config.Conf.NotifyBot.ErrAddr))
	app.Mount("/api/v1", apiV1)
	apiV1.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, PUT",
	}))

	//space
	space := fiber.New()
	apiV1.Mount("/space", space)
	space.Use(middleware.AuthorizationRequired())
	apiv1.InitOvertimeApprovalApiRouters(space)

	//public, token based
	public := fiber.New()
	apiV1.Mount("/public", public)
	public.Use(middleware.RateLimit(ratelimit.Instance))
	publicapi.InitPublicApprovalApiRouters(public)

	// gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	wg := sync.WaitGroup{}
	go func() {
		_ = <-c
		wg.Add(1)
		defer wg.Done()
		log.Info("Gracefully shutting down...")
		cancel()
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Error when try gracefully shutting down")
		}
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer drainCancel()
		if err := overtimeapprovalhandler.Instance.WaitNotifications(drainCtx); err != nil {
			log.WithError(err).Error("Notifications still in flight on shutdown")
		}
		log.Info("Gracefully shutting down finished")
	}()

	// run HTTP server
	if err := app.Listen(fmt.Sprintf("%s:%d", config.Conf.App.ListenAddr, config.Conf.App.Port)); err != nil {
		log.Fatal(err)
	}

	wg.Wait()
	log.Info("HTTP server successfully stopped")
}
