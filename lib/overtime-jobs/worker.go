package overtimejobs

import (
	"context"
	baseworker "overtime-approval-backend/lib/utils/base-worker"

	log "github.com/sirupsen/logrus"
)

// StartWorkers schedules both jobs on their daily time points.
func StartWorkers(ctx context.Context, expireAt, remindAt string) error {
	expireWorker, err := baseworker.NewDailyInstance("overtime-expire-worker", expireAt)
	if err != nil {
		return err
	}
	remindWorker, err := baseworker.NewDailyInstance("overtime-remind-worker", remindAt)
	if err != nil {
		return err
	}
	go expireWorker.Run(ctx, func(ctx context.Context) {
		if _, err := Instance.RunExpireJob(ctx); err != nil {
			expireWorker.GetLogger().WithError(err).Error("expire job failed")
		}
	})
	go remindWorker.Run(ctx, func(ctx context.Context) {
		if _, err := Instance.RunReminderJob(ctx); err != nil {
			remindWorker.GetLogger().WithError(err).Error("reminder job failed")
		}
	})
	log.WithField("expire_at", expireAt).WithField("remind_at", remindAt).Info("overtime workers started")
	return nil
}
