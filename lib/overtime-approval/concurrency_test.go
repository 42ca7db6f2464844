package overtimeapprovalhandler

import (
	"context"
	"overtime-approval-backend/db/dbtest"
	approvalnotifyhandler "overtime-approval-backend/lib/approval-notify"
	approvalnotifystore "overtime-approval-backend/lib/approval-notify/store"
	contactdirectory "overtime-approval-backend/lib/contact-directory"
	xlsexport "overtime-approval-backend/lib/export/xls"
	overtimeapprovalstore "overtime-approval-backend/lib/overtime-approval/store"
	spaceusersstore "overtime-approval-backend/lib/space/users/store"
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	"overtime-approval-backend/models"
	approvalapimodels "overtime-approval-backend/models/api/approval"
	dbmodels "overtime-approval-backend/models/db"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// racingStore lets a competing writer commit between the guard read and the
// conditional update of the first decision it sees.
type racingStore struct {
	overtimeapprovalstore.Provider
	once   sync.Once
	before func(id string)
}

func (s *racingStore) UpdateIfPending(id string, updMap map[string]interface{}) (bool, error) {
	s.once.Do(func() { s.before(id) })
	return s.Provider.UpdateIfPending(id, updMap)
}

func TestConcurrentDecisions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	competing := func(t *testing.T, status models.ApprovalStatus, channel models.DecisionChannel) func(id string) {
		return func(id string) {
			ok, err := env.store.UpdateIfPending(id, map[string]interface{}{
				"status":           status,
				"decided_at":       env.clock.Now(),
				"decision_channel": channel,
			})
			require.NoError(t, err)
			require.True(t, ok)
		}
	}
	racingHandler := func(before func(id string)) Provider {
		store := &racingStore{Provider: env.store, before: before}
		return NewInstance(store, env.tokens, env.notifier, xlsexport.NewInstance(), false, env.clock.Now)
	}

	t.Run("approve loses to cancel check", func(t *testing.T) {
		view := env.create(t)
		env.notifier.reset()
		handler := racingHandler(competing(t, models.AStatusCancelled, models.DecisionSystem))

		err := handler.ApproveAuthenticated(ctx, view.ID, env.approver.ID, approvalapimodels.ApproveData{Signature: "Ana"})
		require.True(t, apperrors.IsInvalidState(err))
		require.Equal(t, "already cancelled", err.Error())

		rec, err := env.store.GetByID(view.ID)
		require.NoError(t, err)
		require.Equal(t, models.AStatusCancelled, rec.Status)
		require.Equal(t, models.DecisionSystem, rec.DecisionChannel)
		require.Empty(t, rec.ApproverSignatureHash)
		require.Empty(t, env.notifier.list())
	})

	t.Run("token approval loses to auto cancel check", func(t *testing.T) {
		view := env.create(t)
		token := env.token(t, view.ID)
		env.notifier.reset()
		handler := racingHandler(competing(t, models.AStatusCancelled, models.DecisionSystem))

		err := handler.ApproveByToken(ctx, view.ID, token, approvalapimodels.PublicApproveData{Notes: "ok"})
		require.True(t, apperrors.IsInvalidState(err))

		rec, err := env.store.GetByID(view.ID)
		require.NoError(t, err)
		require.Equal(t, models.AStatusCancelled, rec.Status)
		require.Empty(t, rec.Notes)
		require.Empty(t, env.notifier.list())
	})

	t.Run("auto cancel loses to token approval check", func(t *testing.T) {
		rec := dbtest.CreateApproval(t, env.tx, env.employee.ID, env.approver.ID, env.clock.Now().Add(-8*24*time.Hour))
		env.notifier.reset()
		handler := racingHandler(competing(t, models.AStatusApproved, models.DecisionToken))

		err := handler.AutoCancel(ctx, rec.ID)
		require.True(t, apperrors.IsInvalidState(err))
		require.Equal(t, "already approved", err.Error())

		current, err := env.store.GetByID(rec.ID)
		require.NoError(t, err)
		require.Equal(t, models.AStatusApproved, current.Status)
		require.Equal(t, models.DecisionToken, current.DecisionChannel)
		require.NotContains(t, current.Notes, "Cancelado automaticamente")
		require.Empty(t, env.notifier.list())
	})
}

type blockingNotifier struct {
	approvalnotifyhandler.Provider
	release chan struct{}
}

func (b blockingNotifier) Dispatch(context.Context, models.NotificationKind, dbmodels.OvertimeApproval, string) approvalnotifyhandler.Result {
	<-b.release
	return approvalnotifyhandler.Result{}
}

func TestAsyncNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	notifyStore := approvalnotifystore.NewInstance(env.tx)
	notifier := approvalnotifyhandler.NewInstance(notifyStore,
		contactdirectory.NewInstance(spaceusersstore.NewInstance(env.tx)),
		nil, nil, approvalnotifyhandler.Config{FrontendURL: "http://front"}, env.clock.Now)
	handler := NewInstance(env.store, env.tokens, notifier, xlsexport.NewInstance(), true, env.clock.Now)

	t.Run("auto cancel row stored after drain check", func(t *testing.T) {
		rec := dbtest.CreateApproval(t, env.tx, env.employee.ID, env.approver.ID, env.clock.Now().Add(-8*24*time.Hour))
		require.NoError(t, handler.AutoCancel(ctx, rec.ID))

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.NoError(t, handler.WaitNotifications(waitCtx))

		exists, err := notifyStore.Exists(rec.ID, models.NotifyAutoCancelled)
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("batch rows stored after drain check", func(t *testing.T) {
		first := dbtest.CreateApproval(t, env.tx, env.employee.ID, env.approver.ID, env.clock.Now())
		second := dbtest.CreateApproval(t, env.tx, env.employee.ID, env.approver.ID, env.clock.Now())
		result, err := handler.RejectBatch(ctx, env.approver.ID, approvalapimodels.BatchRejectData{
			IDs:        []string{first.ID, second.ID},
			RejectData: approvalapimodels.RejectData{Motive: "no"},
		})
		require.NoError(t, err)
		require.Equal(t, 2, result.Succeeded)

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.NoError(t, handler.WaitNotifications(waitCtx))
		for _, id := range []string{first.ID, second.ID} {
			exists, err := notifyStore.Exists(id, models.NotifyDecided)
			require.NoError(t, err)
			require.True(t, exists)
		}
	})

	t.Run("drain honours context check", func(t *testing.T) {
		release := make(chan struct{})
		blocked := NewInstance(env.store, env.tokens, blockingNotifier{release: release}, xlsexport.NewInstance(), true, env.clock.Now)
		view, err := blocked.Create(ctx, approvalapimodels.ApprovalCreateData{
			WorkRecordID:  "work-record",
			EmployeeID:    env.employee.ID,
			ApproverID:    env.approver.ID,
			OvertimeHours: decimal.RequireFromString("1.5"),
			WorkDate:      "2025-01-10",
		})
		require.NoError(t, err)
		require.NotEmpty(t, view.ID)

		shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		require.Error(t, blocked.WaitNotifications(shortCtx))

		close(release)
		waitCtx, cancelWait := context.WithTimeout(ctx, 5*time.Second)
		defer cancelWait()
		require.NoError(t, blocked.WaitNotifications(waitCtx))
	})
}
