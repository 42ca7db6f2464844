package initializers

import (
	"context"
	"overtime-approval-backend/config"
	"overtime-approval-backend/fiberlog"
	approvalnotifyhandler "overtime-approval-backend/lib/approval-notify"
	approvaltokenhandler "overtime-approval-backend/lib/approval-token"
	contactdirectory "overtime-approval-backend/lib/contact-directory"
	deliveryloghandler "overtime-approval-backend/lib/delivery-log"
	xlsexport "overtime-approval-backend/lib/export/xls"
	overtimeapprovalhandler "overtime-approval-backend/lib/overtime-approval"
	overtimejobs "overtime-approval-backend/lib/overtime-jobs"
	ratelimit "overtime-approval-backend/lib/rate-limit"
	initchecker "overtime-approval-backend/lib/utils/init-checker"

	log "github.com/sirupsen/logrus"
)

var LoggerConfig *fiberlog.Config

// InitServices wires every handler without starting background work.
func InitServices() {
	LoggerConfig = InitLogger()
	config.InitConfig()
	InitDBConnection()
	InitSmtp()
	InitWhatsapp()
	InitRateLimit()
	xlsexport.NewHandler()
	contactdirectory.NewHandler()
	approvaltokenhandler.NewHandler()
	approvalnotifyhandler.NewHandler()
	deliveryloghandler.NewHandler()
	overtimeapprovalhandler.NewHandler()
	overtimejobs.NewHandler()
	err := initchecker.CheckInit(
		"config", config.Conf,
		"xls export", xlsexport.Instance,
		"contact directory", contactdirectory.Instance,
		"approval token", approvaltokenhandler.Instance,
		"approval notify", approvalnotifyhandler.Instance,
		"delivery log", deliveryloghandler.Instance,
		"overtime approval", overtimeapprovalhandler.Instance,
		"overtime jobs", overtimejobs.Instance,
		"rate limit", ratelimit.Instance,
	)
	if err != nil {
		panic(err.Error())
	}
}

func InitAllServices(ctx context.Context) {
	InitServices()
	if config.Conf.Scheduler.Enabled != nil && !*config.Conf.Scheduler.Enabled {
		log.Info("overtime scheduler disabled")
		return
	}
	err := overtimejobs.StartWorkers(ctx, config.Conf.Scheduler.ExpireAt, config.Conf.Scheduler.RemindAt)
	if err != nil {
		panic(err.Error())
	}
}
