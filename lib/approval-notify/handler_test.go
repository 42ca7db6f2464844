package approvalnotifyhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"overtime-approval-backend/db/dbtest"
	approvalnotifystore "overtime-approval-backend/lib/approval-notify/store"
	contactdirectory "overtime-approval-backend/lib/contact-directory"
	spaceusersstore "overtime-approval-backend/lib/space/users/store"
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	whatsappclient "overtime-approval-backend/lib/whatsup/client"
	"overtime-approval-backend/models"
	dbmodels "overtime-approval-backend/models/db"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type webhookServer struct {
	*httptest.Server
	calls    atomic.Int32
	failFor  int32
	mu       sync.Mutex
	payloads []map[string]interface{}
}

func newWebhookServer(t *testing.T, failFor int32) *webhookServer {
	srv := &webhookServer{failFor: failFor}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := srv.calls.Add(1)
		payload := map[string]interface{}{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		srv.mu.Lock()
		srv.payloads = append(srv.payloads, payload)
		srv.mu.Unlock()
		if call <= srv.failFor {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *webhookServer) lastPayload() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		return nil
	}
	return s.payloads[len(s.payloads)-1]
}

type disabledMail struct{}

func (disabledMail) SendEMail(string, string, string) error { return nil }
func (disabledMail) IsConfigured() bool                     { return false }

func webhookClient(url string) whatsappclient.Provider {
	return whatsappclient.NewClient(whatsappclient.Config{
		WebhookURL:   url,
		InstanceName: "obra",
		ApiKey:       "secret",
		Timeout:      2 * time.Second,
		Attempts:     3,
		RetryDelay:   time.Millisecond,
	})
}

func findRow(rows []dbmodels.ApprovalNotification, channel models.NotificationChannel) *dbmodels.ApprovalNotification {
	for idx := range rows {
		if rows[idx].Channel == channel {
			return &rows[idx]
		}
	}
	return nil
}

func TestDispatch(t *testing.T) {
	tx := dbtest.New(t)
	store := approvalnotifystore.NewInstance(tx)
	contacts := contactdirectory.NewInstance(spaceusersstore.NewInstance(tx))
	now := time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)
	clock := dbtest.NewClock(now)
	employee := dbtest.CreateUser(t, tx, "Carlos", "Silva", "(11) 98765-4321", "carlos@example.com")
	approver := dbtest.CreateUser(t, tx, "Ana", "Souza", "011912345678", "ana@example.com")
	noPhone := dbtest.CreateUser(t, tx, "Bruno", "Lima", "", "")
	cfg := Config{FrontendURL: "https://obras.example.com/"}

	newRecord := func() dbmodels.OvertimeApproval {
		rec := dbtest.CreateApproval(t, tx, employee.ID, approver.ID, now)
		token := "tok-" + rec.ID
		rec.AccessToken = &token
		rec.Employee = &employee
		rec.Approver = &approver
		return rec
	}

	t.Run("new request delivered after retries check", func(t *testing.T) {
		srv := newWebhookServer(t, 2)
		handler := NewInstance(store, contacts, webhookClient(srv.URL), disabledMail{}, cfg, clock.Now)
		rec := newRecord()

		result := handler.Dispatch(context.Background(), models.NotifyNewRequest, rec, approver.ID)
		require.NotEmpty(t, result.NotificationID)
		require.Equal(t, models.DeliverySent, result.Status(models.ChannelInApp))
		require.Equal(t, models.DeliverySent, result.Status(models.ChannelWebhook))
		require.EqualValues(t, 3, srv.calls.Load())

		payload := srv.lastPayload()
		require.Equal(t, "5511912345678", payload["number"])
		require.Equal(t, "https://obras.example.com/aprovacaop/"+rec.ID+"?token="+*rec.AccessToken, payload["link"])
		require.Equal(t, "obra", payload["instance_name"])
		require.Equal(t, "secret", payload["apikey"])
		require.Contains(t, payload["text"], "Carlos Silva solicitou aprovação de 2.5h extras trabalhadas em 10/01/2025. Prazo: 7 dias.")

		rows, err := store.ListLog(approvalnotifystore.LogFilter{ApprovalID: rec.ID})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, models.ChannelInApp, rows[0].Channel)
		webhookRow := findRow(rows, models.ChannelWebhook)
		require.NotNil(t, webhookRow)
		require.Equal(t, 3, webhookRow.Attempts)
		require.Equal(t, "5511912345678", webhookRow.Destination)
	})

	t.Run("webhook failure is recorded, not returned check", func(t *testing.T) {
		srv := newWebhookServer(t, 100)
		handler := NewInstance(store, contacts, webhookClient(srv.URL), disabledMail{}, cfg, clock.Now)
		rec := newRecord()
		rec.Status = models.AStatusRejected
		rec.Notes = "sem justificativa"

		result := handler.Dispatch(context.Background(), models.NotifyDecided, rec, employee.ID)
		require.Equal(t, models.DeliverySent, result.Status(models.ChannelInApp))
		require.Equal(t, models.DeliveryFailed, result.Status(models.ChannelWebhook))
		require.EqualValues(t, 3, srv.calls.Load())
		require.Nil(t, srv.lastPayload()["link"])

		rows, err := store.ListLog(approvalnotifystore.LogFilter{ApprovalID: rec.ID})
		require.NoError(t, err)
		webhookRow := findRow(rows, models.ChannelWebhook)
		require.NotNil(t, webhookRow)
		require.Equal(t, models.DeliveryFailed, webhookRow.DeliveryStatus)
		require.Equal(t, 3, webhookRow.Attempts)
		require.NotEmpty(t, webhookRow.ErrorDetails)

		inApp := findRow(rows, models.ChannelInApp)
		require.Equal(t, "Horas extras rejeitadas", inApp.Title)
		require.Equal(t, "Suas 2.5h extras do dia 10/01/2025 foram rejeitadas por Ana Souza. Observações: sem justificativa", inApp.Message)
	})

	t.Run("no contact phone skips webhook check", func(t *testing.T) {
		srv := newWebhookServer(t, 0)
		handler := NewInstance(store, contacts, webhookClient(srv.URL), disabledMail{}, cfg, clock.Now)
		rec := newRecord()

		result := handler.Dispatch(context.Background(), models.NotifyAutoCancelled, rec, noPhone.ID)
		require.Equal(t, models.DeliverySent, result.Status(models.ChannelInApp))
		require.Equal(t, models.DeliverySkipped, result.Status(models.ChannelWebhook))
		require.EqualValues(t, 0, srv.calls.Load())

		inbox, err := handler.Inbox(noPhone.ID, true)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		require.True(t, strings.Contains(inbox[0].Message, "cancelada automaticamente por prazo expirado (7 dias)"))
	})

	t.Run("email channel check", func(t *testing.T) {
		handler := NewInstance(store, contacts, nil, disabledMail{}, Config{EmailEnabled: true}, clock.Now)
		rec := newRecord()
		result := handler.Dispatch(context.Background(), models.NotifyReminder, rec, approver.ID)
		require.Equal(t, models.DeliverySkipped, result.Status(models.ChannelWebhook))
		require.Equal(t, models.DeliverySkipped, result.Status(models.ChannelEmail))

		exists, err := handler.Exists(rec.ID, models.NotifyReminder)
		require.NoError(t, err)
		require.True(t, exists)
		exists, err = handler.Exists(rec.ID, models.NotifyDecided)
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("batch dispatch check", func(t *testing.T) {
		srv := newWebhookServer(t, 0)
		handler := NewInstance(store, contacts, webhookClient(srv.URL), disabledMail{}, cfg, clock.Now)
		results := handler.DispatchBatch(context.Background(), models.NotifyDecided, []Target{
			{Record: newRecord(), RecipientID: noPhone.ID},
			{Record: newRecord(), RecipientID: employee.ID},
		})
		require.Len(t, results, 2)
		require.Equal(t, models.DeliverySkipped, results[0].Status(models.ChannelWebhook))
		require.Equal(t, models.DeliverySent, results[1].Status(models.ChannelWebhook))
	})

	t.Run("inbox mark read check", func(t *testing.T) {
		handler := NewInstance(store, contacts, nil, nil, cfg, clock.Now)
		rec := newRecord()
		result := handler.Dispatch(context.Background(), models.NotifyDecided, rec, employee.ID)

		err := handler.MarkRead(approver.ID, result.NotificationID)
		require.True(t, apperrors.IsNotFound(err))
		require.NoError(t, handler.MarkRead(employee.ID, result.NotificationID))

		inbox, err := handler.Inbox(employee.ID, true)
		require.NoError(t, err)
		for _, item := range inbox {
			require.NotEqual(t, result.NotificationID, item.ID)
		}
	})
}

func TestComposeMessage(t *testing.T) {
	now := time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)
	rec := dbmodels.OvertimeApproval{
		OvertimeHours: decimal.NewFromFloat(1.5),
		DeadlineAt:    time.Date(2025, 1, 17, 20, 0, 0, 0, time.UTC),
		WorkDate:      time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Employee:      &dbmodels.SpaceUser{FirstName: "Carlos", LastName: "Silva"},
	}

	t.Run("reminder check", func(t *testing.T) {
		msg := composeMessage(models.NotifyReminder, rec, now)
		require.Equal(t, "Você tem 4 dia(s) para aprovar 1.5h extras de Carlos Silva do dia 10/01/2025.", msg.Text)
	})

	t.Run("approved check", func(t *testing.T) {
		rec.Status = models.AStatusApproved
		msg := composeMessage(models.NotifyDecided, rec, now)
		require.Equal(t, "Horas extras aprovadas", msg.Title)
		require.Equal(t, "Suas 1.5h extras do dia 10/01/2025 foram aprovadas por seu supervisor.", msg.Text)
	})

	t.Run("link check", func(t *testing.T) {
		require.Equal(t, "https://a.b/aprovacaop/id?token=t", AccessLink("https://a.b/", "id", "t"))
		require.Equal(t, "text", message{Text: "text"}.withLink(""))
		require.Equal(t, "text\n\nAcesse: l", message{Text: "text"}.withLink("l"))
	})
}
