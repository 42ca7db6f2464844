package baseworker

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type BaseImpl struct {
	WorkerName string
	nextDelay  func(now time.Time, firstRun bool) time.Duration
}

func NewInstance(WorkerName string, firstRunDelay, runInterval time.Duration) *BaseImpl {
	return &BaseImpl{
		WorkerName: WorkerName,
		nextDelay: func(_ time.Time, firstRun bool) time.Duration {
			if firstRun {
				return firstRunDelay
			}
			return runInterval
		},
	}
}

// NewDailyInstance runs the job once a day at the given "HH:MM" (UTC).
func NewDailyInstance(WorkerName, at string) (*BaseImpl, error) {
	hour, minute, err := ParseDailyTime(at)
	if err != nil {
		return nil, err
	}
	return &BaseImpl{
		WorkerName: WorkerName,
		nextDelay: func(now time.Time, _ bool) time.Duration {
			return NextDailyRun(now, hour, minute).Sub(now)
		},
	}, nil
}

func ParseDailyTime(at string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid daily time %q, expected HH:MM", at)
	}
	return t.Hour(), t.Minute(), nil
}

// NextDailyRun returns the first moment strictly after now at hour:minute UTC.
func NextDailyRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (i BaseImpl) GetLogger() *log.Entry {
	logger := log.
		WithField("worker_name", i.WorkerName)
	return logger
}

func (i BaseImpl) Run(ctx context.Context, jobFunc func(ctx context.Context)) {
	logger := i.GetLogger()
	period := i.nextDelay(time.Now(), true)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		case <-time.After(period):
			logger.Info("job started")
			i.runJob(ctx, jobFunc)
			logger.Info("job finished")
		}
		period = i.nextDelay(time.Now(), false)
	}
}

func (i BaseImpl) runJob(ctx context.Context, jobFunc func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			i.GetLogger().
				WithField("panic_stack", string(debug.Stack())).
				Errorf("panic: (%v)", r)
		}
	}()
	jobFunc(ctx)
}
