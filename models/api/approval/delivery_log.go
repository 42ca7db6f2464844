package approvalapimodels

import (
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	"overtime-approval-backend/models"
	dbmodels "overtime-approval-backend/models/db"
	"strings"
	"time"
)

type DeliveryLogFilter struct {
	ApprovalID string                     `query:"approval_id"`
	Status     models.DeliveryStatus      `query:"status"`
	Channel    models.NotificationChannel `query:"channel"`
	From       string                     `query:"from"` // YYYY-MM-DD
	To         string                     `query:"to"`   // YYYY-MM-DD, inclusive
}

func (f DeliveryLogFilter) Validate() error {
	if f.Status != "" && !f.Status.IsValid() {
		return apperrors.NewValidationError("unknown delivery status %q", f.Status)
	}
	if f.Channel != "" && !f.Channel.IsValid() {
		return apperrors.NewValidationError("unknown channel %q", f.Channel)
	}
	from, to, err := f.GetRange()
	if err != nil {
		return err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return apperrors.NewValidationError("from must not be after to")
	}
	return nil
}

// GetRange returns [from, to) in UTC, to being the day after the inclusive end date.
func (f DeliveryLogFilter) GetRange() (from, to *time.Time, err error) {
	if strings.TrimSpace(f.From) != "" {
		day, err := time.Parse(workDateLayout, f.From)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("from must be in YYYY-MM-DD format")
		}
		from = &day
	}
	if strings.TrimSpace(f.To) != "" {
		day, err := time.Parse(workDateLayout, f.To)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("to must be in YYYY-MM-DD format")
		}
		end := day.AddDate(0, 0, 1)
		to = &end
	}
	return from, to, nil
}

type DeliveryLogView struct {
	ID             string                     `json:"id"`
	ApprovalID     string                     `json:"approval_id"`
	RecipientID    string                     `json:"recipient_id"`
	Kind           models.NotificationKind    `json:"kind"`
	Channel        models.NotificationChannel `json:"channel"`
	DeliveryStatus models.DeliveryStatus      `json:"delivery_status"`
	Destination    string                     `json:"destination"`
	Attempts       int                        `json:"attempts"`
	ErrorDetails   string                     `json:"error_details,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
}

func DeliveryLogConvert(rec dbmodels.ApprovalNotification) DeliveryLogView {
	return DeliveryLogView{
		ID:             rec.ID,
		ApprovalID:     rec.ApprovalID,
		RecipientID:    rec.RecipientID,
		Kind:           rec.Kind,
		Channel:        rec.Channel,
		DeliveryStatus: rec.DeliveryStatus,
		Destination:    rec.Destination,
		Attempts:       rec.Attempts,
		ErrorDetails:   rec.ErrorDetails,
		CreatedAt:      rec.CreatedAt,
	}
}

type DeliveryStats struct {
	Total     int                                `json:"total"`
	ByStatus  map[models.DeliveryStatus]int      `json:"by_status"`
	ByChannel map[models.NotificationChannel]int `json:"by_channel"`
}
