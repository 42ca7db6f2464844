package deliveryloghandler

import (
	"overtime-approval-backend/db/dbtest"
	approvalnotifystore "overtime-approval-backend/lib/approval-notify/store"
	xlsexport "overtime-approval-backend/lib/export/xls"
	overtimeapprovalstore "overtime-approval-backend/lib/overtime-approval/store"
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	"overtime-approval-backend/models"
	approvalapimodels "overtime-approval-backend/models/api/approval"
	dbmodels "overtime-approval-backend/models/db"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDeliveryLog(t *testing.T) {
	tx := dbtest.New(t)
	store := approvalnotifystore.NewInstance(tx)
	handler := NewInstance(store, overtimeapprovalstore.NewInstance(tx), xlsexport.NewInstance())

	day := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	employee := dbtest.CreateUser(t, tx, "Carlos", "Silva", "", "")
	approver := dbtest.CreateUser(t, tx, "Ana", "Souza", "", "")
	rec := dbtest.CreateApproval(t, tx, employee.ID, approver.ID, day)
	other := dbtest.CreateApproval(t, tx, employee.ID, "someone-else", day)

	addRow := func(approvalID string, channel models.NotificationChannel, status models.DeliveryStatus, at time.Time) {
		_, err := store.Create(dbmodels.ApprovalNotification{
			BaseModel:      dbmodels.BaseModel{CreatedAt: at},
			ApprovalID:     approvalID,
			RecipientID:    approver.ID,
			Kind:           models.NotifyNewRequest,
			Channel:        channel,
			DeliveryStatus: status,
			Attempts:       1,
		})
		require.NoError(t, err)
	}
	addRow(rec.ID, models.ChannelInApp, models.DeliverySent, day)
	addRow(rec.ID, models.ChannelWebhook, models.DeliveryFailed, day)
	addRow(rec.ID, models.ChannelWebhook, models.DeliverySent, day.Add(48*time.Hour))
	addRow(other.ID, models.ChannelInApp, models.DeliverySent, day)

	admin := Actor{UserID: "admin", IsAdmin: true}
	owner := Actor{UserID: approver.ID}

	t.Run("admin sees everything check", func(t *testing.T) {
		list, err := handler.List(admin, approvalapimodels.DeliveryLogFilter{})
		require.NoError(t, err)
		require.Len(t, list, 4)

		list, err = handler.List(admin, approvalapimodels.DeliveryLogFilter{Channel: models.ChannelWebhook, Status: models.DeliveryFailed})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, rec.ID, list[0].ApprovalID)
	})

	t.Run("approver of the record check", func(t *testing.T) {
		list, err := handler.List(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: rec.ID})
		require.NoError(t, err)
		require.Len(t, list, 3)

		_, err = handler.List(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: other.ID})
		require.True(t, apperrors.IsPermission(err))
		_, err = handler.List(owner, approvalapimodels.DeliveryLogFilter{})
		require.True(t, apperrors.IsValidation(err))
		_, err = handler.List(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: "missing"})
		require.True(t, apperrors.IsNotFound(err))
		_, err = handler.Stats(Actor{UserID: employee.ID}, approvalapimodels.DeliveryLogFilter{ApprovalID: rec.ID})
		require.True(t, apperrors.IsPermission(err))
	})

	t.Run("date range check", func(t *testing.T) {
		list, err := handler.List(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: rec.ID, From: "2025-01-12", To: "2025-01-12"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, models.DeliverySent, list[0].DeliveryStatus)

		list, err = handler.List(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: rec.ID, To: "2025-01-10"})
		require.NoError(t, err)
		require.Len(t, list, 2)

		_, err = handler.List(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: rec.ID, From: "2025-01-12", To: "2025-01-10"})
		require.True(t, apperrors.IsValidation(err))
		_, err = handler.List(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: rec.ID, From: "10/01/2025"})
		require.True(t, apperrors.IsValidation(err))
		_, err = handler.List(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: rec.ID, Status: "lost"})
		require.True(t, apperrors.IsValidation(err))
	})

	t.Run("stats check", func(t *testing.T) {
		stats, err := handler.Stats(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: rec.ID})
		require.NoError(t, err)
		require.Equal(t, 3, stats.Total)
		require.Equal(t, 2, stats.ByStatus[models.DeliverySent])
		require.Equal(t, 1, stats.ByStatus[models.DeliveryFailed])
		require.Equal(t, 2, stats.ByChannel[models.ChannelWebhook])
		require.Equal(t, 1, stats.ByChannel[models.ChannelInApp])

		stats, err = handler.Stats(admin, approvalapimodels.DeliveryLogFilter{})
		require.NoError(t, err)
		require.Equal(t, 4, stats.Total)
	})

	t.Run("export check", func(t *testing.T) {
		buf, err := handler.Export(owner, approvalapimodels.DeliveryLogFilter{ApprovalID: rec.ID})
		require.NoError(t, err)
		f, err := excelize.OpenReader(buf)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Envios")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		require.Equal(t, "Canal", rows[0][4])
	})
}
