package approvalapimodels

import (
	"overtime-approval-backend/models"
	dbmodels "overtime-approval-backend/models/db"
	"time"
)

type NotificationView struct {
	ID         string                  `json:"id"`
	ApprovalID string                  `json:"approval_id"`
	Kind       models.NotificationKind `json:"kind"`
	Title      string                  `json:"title"`
	Message    string                  `json:"message"`
	IsRead     bool                    `json:"is_read"`
	CreatedAt  time.Time               `json:"created_at"`
}

func NotificationConvert(rec dbmodels.ApprovalNotification) NotificationView {
	return NotificationView{
		ID:         rec.ID,
		ApprovalID: rec.ApprovalID,
		Kind:       rec.Kind,
		Title:      rec.Title,
		Message:    rec.Message,
		IsRead:     rec.IsRead,
		CreatedAt:  rec.CreatedAt,
	}
}

type ExpireSummary struct {
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

type ReminderSummary struct {
	Reminded int `json:"reminded"`
	Total    int `json:"total"`
}
