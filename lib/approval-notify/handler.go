package approvalnotifyhandler

import (
	"context"
	"fmt"
	"overtime-approval-backend/config"
	"overtime-approval-backend/db"
	approvalnotifystore "overtime-approval-backend/lib/approval-notify/store"
	contactdirectory "overtime-approval-backend/lib/contact-directory"
	"overtime-approval-backend/lib/smtp"
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	whatsappclient "overtime-approval-backend/lib/whatsup/client"
	"overtime-approval-backend/models"
	approvalapimodels "overtime-approval-backend/models/api/approval"
	dbmodels "overtime-approval-backend/models/db"
	"runtime/debug"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Result is the inspectable outcome of one Dispatch call.
type Result struct {
	NotificationID string
	Channels       map[models.NotificationChannel]models.DeliveryStatus
}

func (r Result) Status(channel models.NotificationChannel) models.DeliveryStatus {
	return r.Channels[channel]
}

type Target struct {
	Record      dbmodels.OvertimeApproval
	RecipientID string
}

type Provider interface {
	// Dispatch never fails: every channel outcome ends up in a notification row.
	Dispatch(ctx context.Context, kind models.NotificationKind, rec dbmodels.OvertimeApproval, recipientID string) Result
	DispatchBatch(ctx context.Context, kind models.NotificationKind, targets []Target) []Result
	Exists(approvalID string, kind models.NotificationKind) (bool, error)
	Inbox(recipientID string, unreadOnly bool) ([]approvalapimodels.NotificationView, error)
	MarkRead(recipientID, id string) error
}

type Config struct {
	FrontendURL  string
	EmailEnabled bool
}

var Instance Provider

func NewHandler() {
	Instance = NewInstance(
		approvalnotifystore.NewInstance(db.DB),
		contactdirectory.Instance,
		whatsappclient.Instance,
		smtp.Instance,
		Config{
			FrontendURL:  config.Conf.Approval.FrontendURL,
			EmailEnabled: config.Conf.Approval.EmailEnabled != nil && *config.Conf.Approval.EmailEnabled,
		},
		time.Now,
	)
}

func NewInstance(store approvalnotifystore.Provider, contacts contactdirectory.Provider,
	webhook whatsappclient.Provider, mail smtp.Provider, cfg Config, now func() time.Time) Provider {
	return impl{
		store:    store,
		contacts: contacts,
		webhook:  webhook,
		mail:     mail,
		cfg:      cfg,
		now:      now,
	}
}

type impl struct {
	store    approvalnotifystore.Provider
	contacts contactdirectory.Provider
	webhook  whatsappclient.Provider
	mail     smtp.Provider
	cfg      Config
	now      func() time.Time
}

func (i impl) getLogger(kind models.NotificationKind, approvalID, recipientID string) *log.Entry {
	return log.
		WithField("kind", kind).
		WithField("approval_id", approvalID).
		WithField("recipient_id", recipientID)
}

func (i impl) Dispatch(ctx context.Context, kind models.NotificationKind, rec dbmodels.OvertimeApproval, recipientID string) (result Result) {
	result.Channels = map[models.NotificationChannel]models.DeliveryStatus{}
	logger := i.getLogger(kind, rec.ID, recipientID)
	defer func() {
		if r := recover(); r != nil {
			logger.
				WithField("panic_stack", string(debug.Stack())).
				Errorf("panic while dispatching notification: (%v)", r)
		}
	}()

	msg := composeMessage(kind, rec, i.now().UTC())
	link := i.accessLink(kind, rec)

	row := dbmodels.ApprovalNotification{
		ApprovalID:     rec.ID,
		RecipientID:    recipientID,
		Kind:           kind,
		Channel:        models.ChannelInApp,
		DeliveryStatus: models.DeliverySent,
		Title:          msg.Title,
		Message:        msg.Text,
		Attempts:       1,
	}
	id, err := i.store.Create(row)
	if err != nil {
		logger.WithError(err).Error("failed to store in-app notification")
		result.Channels[models.ChannelInApp] = models.DeliveryFailed
	} else {
		result.NotificationID = id
		result.Channels[models.ChannelInApp] = models.DeliverySent
	}

	var contact *contactdirectory.Contact
	if i.contacts != nil {
		contact, err = i.contacts.Resolve(recipientID)
		if err != nil {
			logger.WithError(err).Warn("recipient contact lookup failed")
		}
	}

	result.Channels[models.ChannelWebhook] = i.sendWebhook(ctx, logger, row, msg, link, contact)
	if i.cfg.EmailEnabled {
		result.Channels[models.ChannelEmail] = i.sendEmail(logger, row, msg, link, contact)
	}
	return result
}

func (i impl) DispatchBatch(ctx context.Context, kind models.NotificationKind, targets []Target) []Result {
	results := make([]Result, 0, len(targets))
	for _, target := range targets {
		results = append(results, i.Dispatch(ctx, kind, target.Record, target.RecipientID))
	}
	return results
}

func (i impl) sendWebhook(ctx context.Context, logger *log.Entry, row dbmodels.ApprovalNotification,
	msg message, link string, contact *contactdirectory.Contact) models.DeliveryStatus {
	row.Channel = models.ChannelWebhook
	row.Attempts = 0
	switch {
	case i.webhook == nil || !i.webhook.IsConfigured():
		row.DeliveryStatus = models.DeliverySkipped
		row.ErrorDetails = "webhook transport is not configured"
	case contact == nil || contact.Phone == "":
		row.DeliveryStatus = models.DeliverySkipped
		row.ErrorDetails = "recipient has no contact phone"
	default:
		row.Destination = contact.Phone
		attempts, err := i.webhook.Send(ctx, whatsappclient.Message{
			Number: contact.Phone,
			Text:   msg.Text,
			Link:   link,
			Metadata: map[string]string{
				"approval_id": row.ApprovalID,
				"kind":        string(row.Kind),
			},
		})
		row.Attempts = attempts
		row.DeliveryStatus = models.DeliverySent
		if err != nil {
			row.DeliveryStatus = models.DeliveryFailed
			row.ErrorDetails = err.Error()
		}
	}
	i.record(logger, row)
	return row.DeliveryStatus
}

func (i impl) sendEmail(logger *log.Entry, row dbmodels.ApprovalNotification,
	msg message, link string, contact *contactdirectory.Contact) models.DeliveryStatus {
	row.Channel = models.ChannelEmail
	row.Attempts = 0
	switch {
	case i.mail == nil || !i.mail.IsConfigured():
		row.DeliveryStatus = models.DeliverySkipped
		row.ErrorDetails = "smtp is not configured"
	case contact == nil || contact.Email == "":
		row.DeliveryStatus = models.DeliverySkipped
		row.ErrorDetails = "recipient has no email"
	default:
		row.Destination = contact.Email
		row.Attempts = 1
		row.DeliveryStatus = models.DeliverySent
		if err := i.mail.SendEMail(contact.Email, msg.Title, msg.withLink(link)); err != nil {
			row.DeliveryStatus = models.DeliveryFailed
			row.ErrorDetails = err.Error()
		}
	}
	i.record(logger, row)
	return row.DeliveryStatus
}

func (i impl) record(logger *log.Entry, row dbmodels.ApprovalNotification) {
	logger = logger.
		WithField("channel", row.Channel).
		WithField("delivery_status", row.DeliveryStatus)
	switch row.DeliveryStatus {
	case models.DeliveryFailed:
		logger.WithField("attempts", row.Attempts).Warn(row.ErrorDetails)
	case models.DeliverySkipped:
		logger.Info(row.ErrorDetails)
	}
	if _, err := i.store.Create(row); err != nil {
		logger.WithError(err).Error("failed to store notification outcome")
	}
}

// accessLink is only attached to messages addressed to the approver.
func (i impl) accessLink(kind models.NotificationKind, rec dbmodels.OvertimeApproval) string {
	if kind != models.NotifyNewRequest && kind != models.NotifyReminder {
		return ""
	}
	if rec.AccessToken == nil || *rec.AccessToken == "" {
		return ""
	}
	return AccessLink(i.cfg.FrontendURL, rec.ID, *rec.AccessToken)
}

func AccessLink(frontendURL, approvalID, token string) string {
	return fmt.Sprintf("%s/aprovacaop/%s?token=%s", strings.TrimRight(frontendURL, "/"), approvalID, token)
}

func (i impl) Exists(approvalID string, kind models.NotificationKind) (bool, error) {
	return i.store.Exists(approvalID, kind)
}

func (i impl) Inbox(recipientID string, unreadOnly bool) ([]approvalapimodels.NotificationView, error) {
	list, err := i.store.ListInbox(recipientID, unreadOnly)
	if err != nil {
		return nil, err
	}
	result := make([]approvalapimodels.NotificationView, 0, len(list))
	for _, rec := range list {
		result = append(result, approvalapimodels.NotificationConvert(rec))
	}
	return result, nil
}

func (i impl) MarkRead(recipientID, id string) error {
	ok, err := i.store.MarkRead(recipientID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFoundError{ID: id, Entity: "notification"}
	}
	return nil
}
