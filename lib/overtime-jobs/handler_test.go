package overtimejobs

import (
	"context"
	"overtime-approval-backend/db/dbtest"
	approvalnotifyhandler "overtime-approval-backend/lib/approval-notify"
	approvalnotifystore "overtime-approval-backend/lib/approval-notify/store"
	approvaltokenhandler "overtime-approval-backend/lib/approval-token"
	contactdirectory "overtime-approval-backend/lib/contact-directory"
	xlsexport "overtime-approval-backend/lib/export/xls"
	overtimeapprovalhandler "overtime-approval-backend/lib/overtime-approval"
	overtimeapprovalstore "overtime-approval-backend/lib/overtime-approval/store"
	spaceusersstore "overtime-approval-backend/lib/space/users/store"
	"overtime-approval-backend/lib/utils/lock"
	"overtime-approval-backend/models"
	approvalapimodels "overtime-approval-backend/models/api/approval"
	dbmodels "overtime-approval-backend/models/db"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJobs(t *testing.T) {
	tx := dbtest.New(t)
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	clock := dbtest.NewClock(start)
	store := overtimeapprovalstore.NewInstance(tx)
	notifyStore := approvalnotifystore.NewInstance(tx)
	notifier := approvalnotifyhandler.NewInstance(
		notifyStore,
		contactdirectory.NewInstance(spaceusersstore.NewInstance(tx)),
		nil, nil,
		approvalnotifyhandler.Config{FrontendURL: "https://obras.example.com"},
		clock.Now,
	)
	tokens := approvaltokenhandler.NewInstance(store, clock.Now)
	approvals := overtimeapprovalhandler.NewInstance(store, tokens, notifier, xlsexport.NewInstance(), false, clock.Now)
	jobs := NewInstance(store, approvals, notifier, clock.Now)
	ctx := context.Background()

	employee := dbtest.CreateUser(t, tx, "Carlos", "Silva", "11987654321", "")
	approver := dbtest.CreateUser(t, tx, "Ana", "Souza", "11912345678", "")

	t.Run("reminder job is idempotent check", func(t *testing.T) {
		clock.Set(start)
		old := dbtest.CreateApproval(t, tx, employee.ID, approver.ID, start.Add(-4*24*time.Hour))
		fresh := dbtest.CreateApproval(t, tx, employee.ID, approver.ID, start.Add(-24*time.Hour))

		summary, err := jobs.RunReminderJob(ctx)
		require.NoError(t, err)
		require.Equal(t, approvalapimodels.ReminderSummary{Reminded: 1, Total: 1}, summary)

		exists, err := notifyStore.Exists(old.ID, models.NotifyReminder)
		require.NoError(t, err)
		require.True(t, exists)
		exists, err = notifyStore.Exists(fresh.ID, models.NotifyReminder)
		require.NoError(t, err)
		require.False(t, exists)

		summary, err = jobs.RunReminderJob(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, summary.Reminded)
		require.Equal(t, 1, summary.Total)

		inbox, err := notifier.Inbox(approver.ID, false)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		require.Equal(t, "Você tem 3 dia(s) para aprovar 2.5h extras de Carlos Silva do dia 28/12/2024.", inbox[0].Message)
	})

	t.Run("expire job check", func(t *testing.T) {
		clock.Set(start)
		overdue := dbtest.CreateApproval(t, tx, employee.ID, approver.ID, start.Add(-8*24*time.Hour))
		approved := dbtest.CreateApproval(t, tx, employee.ID, approver.ID, start.Add(-9*24*time.Hour))
		_, err := store.UpdateIfPending(approved.ID, map[string]interface{}{"status": models.AStatusApproved, "decided_at": start})
		require.NoError(t, err)

		summary, err := jobs.RunExpireJob(ctx)
		require.NoError(t, err)
		require.Equal(t, approvalapimodels.ExpireSummary{Cancelled: 1, Failed: 0, Total: 1}, summary)

		rec, err := store.GetByID(overdue.ID)
		require.NoError(t, err)
		require.Equal(t, models.AStatusCancelled, rec.Status)
		require.NotNil(t, rec.DecidedAt)

		rec, err = store.GetByID(approved.ID)
		require.NoError(t, err)
		require.Equal(t, models.AStatusApproved, rec.Status)

		exists, err := notifyStore.Exists(overdue.ID, models.NotifyAutoCancelled)
		require.NoError(t, err)
		require.True(t, exists)

		summary, err = jobs.RunExpireJob(ctx)
		require.NoError(t, err)
		require.Equal(t, approvalapimodels.ExpireSummary{}, summary)
	})

	t.Run("overdue records are not reminded check", func(t *testing.T) {
		clock.Set(start.Add(30 * 24 * time.Hour))
		summary, err := jobs.RunReminderJob(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, summary.Total)
	})

	t.Run("busy job check", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = lock.WithDelay(ctx, expireLockKey, time.Second, func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started
		shortCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		_, err := jobs.RunExpireJob(shortCtx)
		require.ErrorIs(t, err, ErrJobBusy)
		close(release)
		<-done
	})
}

// failingInAppNotifier loses every in-app row, the way a broken notification table would.
type failingInAppNotifier struct {
	approvalnotifyhandler.Provider
	dispatched int
}

func (f *failingInAppNotifier) Dispatch(context.Context, models.NotificationKind, dbmodels.OvertimeApproval, string) approvalnotifyhandler.Result {
	f.dispatched++
	return approvalnotifyhandler.Result{Channels: map[models.NotificationChannel]models.DeliveryStatus{
		models.ChannelInApp:   models.DeliveryFailed,
		models.ChannelWebhook: models.DeliverySent,
	}}
}

func (f *failingInAppNotifier) Exists(string, models.NotificationKind) (bool, error) {
	return false, nil
}

func TestReminderNotStored(t *testing.T) {
	tx := dbtest.New(t)
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	clock := dbtest.NewClock(start)
	store := overtimeapprovalstore.NewInstance(tx)
	notifier := &failingInAppNotifier{}
	jobs := NewInstance(store, nil, notifier, clock.Now)

	employee := dbtest.CreateUser(t, tx, "Carlos", "Silva", "11987654321", "")
	approver := dbtest.CreateUser(t, tx, "Ana", "Souza", "11912345678", "")
	dbtest.CreateApproval(t, tx, employee.ID, approver.ID, start.Add(-4*24*time.Hour))

	t.Run("failed in-app row is not counted check", func(t *testing.T) {
		summary, err := jobs.RunReminderJob(context.Background())
		require.NoError(t, err)
		require.Equal(t, approvalapimodels.ReminderSummary{Reminded: 0, Total: 1}, summary)
		require.Equal(t, 1, notifier.dispatched)
	})

	t.Run("next run retries check", func(t *testing.T) {
		summary, err := jobs.RunReminderJob(context.Background())
		require.NoError(t, err)
		require.Equal(t, 0, summary.Reminded)
		require.Equal(t, 2, notifier.dispatched)
	})
}
