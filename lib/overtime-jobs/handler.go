package overtimejobs

import (
	"context"
	"overtime-approval-backend/db"
	approvalnotifyhandler "overtime-approval-backend/lib/approval-notify"
	overtimeapprovalhandler "overtime-approval-backend/lib/overtime-approval"
	overtimeapprovalstore "overtime-approval-backend/lib/overtime-approval/store"
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	"overtime-approval-backend/lib/utils/helpers"
	"overtime-approval-backend/lib/utils/lock"
	"overtime-approval-backend/models"
	approvalapimodels "overtime-approval-backend/models/api/approval"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	expireLockKey = "overtime-jobs:expire"
	remindLockKey = "overtime-jobs:remind"
	lockWait      = 30 * time.Second
)

var ErrJobBusy = errors.New("job is already running")

type Provider interface {
	RunExpireJob(ctx context.Context) (approvalapimodels.ExpireSummary, error)
	RunReminderJob(ctx context.Context) (approvalapimodels.ReminderSummary, error)
}

var Instance Provider

func NewHandler() {
	Instance = NewInstance(
		overtimeapprovalstore.NewInstance(db.DB),
		overtimeapprovalhandler.Instance,
		approvalnotifyhandler.Instance,
		time.Now,
	)
}

func NewInstance(store overtimeapprovalstore.Provider, approvals overtimeapprovalhandler.Provider,
	notifier approvalnotifyhandler.Provider, now func() time.Time) Provider {
	return impl{
		store:     store,
		approvals: approvals,
		notifier:  notifier,
		now:       now,
	}
}

type impl struct {
	store     overtimeapprovalstore.Provider
	approvals overtimeapprovalhandler.Provider
	notifier  approvalnotifyhandler.Provider
	now       func() time.Time
}

func (i impl) RunExpireJob(ctx context.Context) (summary approvalapimodels.ExpireSummary, err error) {
	ok, err := lock.WithDelay(ctx, expireLockKey, lockWait, func() error {
		summary, err = i.expire(ctx)
		return err
	})
	if err != nil {
		return summary, err
	}
	if !ok {
		return summary, ErrJobBusy
	}
	return summary, nil
}

func (i impl) expire(ctx context.Context) (summary approvalapimodels.ExpireSummary, err error) {
	logger := log.WithField("job", "expire")
	list, err := i.store.ListOverdue(i.now().UTC())
	if err != nil {
		return summary, errors.Wrap(err, "failed to list overdue approvals")
	}
	summary.Total = len(list)
	for _, rec := range list {
		if helpers.IsContextDone(ctx) {
			break
		}
		if err = i.approvals.AutoCancel(ctx, rec.ID); err != nil {
			summary.Failed++
			entry := logger.WithError(err).WithField("approval_id", rec.ID)
			if apperrors.IsBusiness(err) {
				entry.Info("approval skipped by expire job")
			} else {
				entry.Error("failed to cancel overdue approval")
			}
			continue
		}
		summary.Cancelled++
	}
	logger.
		WithField("cancelled", summary.Cancelled).
		WithField("failed", summary.Failed).
		WithField("total", summary.Total).
		Info("expire job done")
	return summary, nil
}

func (i impl) RunReminderJob(ctx context.Context) (summary approvalapimodels.ReminderSummary, err error) {
	ok, err := lock.WithDelay(ctx, remindLockKey, lockWait, func() error {
		summary, err = i.remind(ctx)
		return err
	})
	if err != nil {
		return summary, err
	}
	if !ok {
		return summary, ErrJobBusy
	}
	return summary, nil
}

func (i impl) remind(ctx context.Context) (summary approvalapimodels.ReminderSummary, err error) {
	logger := log.WithField("job", "remind")
	now := i.now().UTC()
	list, err := i.store.ListForReminder(now.Add(-models.ApprovalReminderAfter), now)
	if err != nil {
		return summary, errors.Wrap(err, "failed to list approvals for reminder")
	}
	summary.Total = len(list)
	for _, rec := range list {
		if helpers.IsContextDone(ctx) {
			break
		}
		exists, err := i.notifier.Exists(rec.ID, models.NotifyReminder)
		if err != nil {
			logger.WithError(err).WithField("approval_id", rec.ID).Error("reminder lookup failed")
			continue
		}
		if exists {
			continue
		}
		// only a stored in-app row keeps the next run from reminding again
		result := i.notifier.Dispatch(ctx, models.NotifyReminder, rec, rec.ApproverID)
		if result.Status(models.ChannelInApp) != models.DeliverySent {
			logger.WithField("approval_id", rec.ID).Warn("reminder not stored, will retry on next run")
			continue
		}
		summary.Reminded++
	}
	logger.
		WithField("reminded", summary.Reminded).
		WithField("total", summary.Total).
		Info("reminder job done")
	return summary, nil
}
