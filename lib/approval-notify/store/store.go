package approvalnotifystore

import (
	"overtime-approval-backend/models"
	dbmodels "overtime-approval-backend/models/db"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Provider interface {
	Create(rec dbmodels.ApprovalNotification) (id string, err error)
	// Exists is the idempotency lookup: has an in-app notification of this kind
	// already been written for the approval.
	Exists(approvalID string, kind models.NotificationKind) (bool, error)
	// ListLog returns delivery rows of every channel, oldest first.
	ListLog(filter LogFilter) ([]dbmodels.ApprovalNotification, error)
	CountLog(filter LogFilter) ([]LogCount, error)
	ListInbox(recipientID string, unreadOnly bool) ([]dbmodels.ApprovalNotification, error)
	MarkRead(recipientID, id string) (bool, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.ApprovalNotification) (string, error) {
	err := i.db.
		Create(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) Exists(approvalID string, kind models.NotificationKind) (bool, error) {
	var count int64
	err := i.db.
		Model(&dbmodels.ApprovalNotification{}).
		Where("approval_id = ?", approvalID).
		Where("kind = ?", kind).
		Where("channel = ?", models.ChannelInApp).
		Count(&count).
		Error
	if err != nil {
		return false, errors.Wrap(err, "notification lookup failed")
	}
	return count > 0, nil
}

type LogFilter struct {
	ApprovalID string
	Status     models.DeliveryStatus
	Channel    models.NotificationChannel
	From       *time.Time
	To         *time.Time // exclusive
}

func (f LogFilter) apply(tx *gorm.DB) *gorm.DB {
	if f.ApprovalID != "" {
		tx = tx.Where("approval_id = ?", f.ApprovalID)
	}
	if f.Status != "" {
		tx = tx.Where("delivery_status = ?", f.Status)
	}
	if f.Channel != "" {
		tx = tx.Where("channel = ?", f.Channel)
	}
	if f.From != nil {
		tx = tx.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		tx = tx.Where("created_at < ?", *f.To)
	}
	return tx
}

type LogCount struct {
	Channel        models.NotificationChannel
	DeliveryStatus models.DeliveryStatus
	Total          int
}

func (i impl) ListLog(filter LogFilter) (list []dbmodels.ApprovalNotification, err error) {
	list = []dbmodels.ApprovalNotification{}
	err = filter.apply(i.db.Model(&dbmodels.ApprovalNotification{})).
		Order("created_at ASC").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) CountLog(filter LogFilter) (list []LogCount, err error) {
	list = []LogCount{}
	err = filter.apply(i.db.Model(&dbmodels.ApprovalNotification{})).
		Select("channel, delivery_status, count(*) as total").
		Group("channel, delivery_status").
		Scan(&list).
		Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count delivery log")
	}
	return list, nil
}

func (i impl) ListInbox(recipientID string, unreadOnly bool) (list []dbmodels.ApprovalNotification, err error) {
	list = []dbmodels.ApprovalNotification{}
	tx := i.db.
		Where("recipient_id = ?", recipientID).
		Where("channel = ?", models.ChannelInApp)
	if unreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	err = tx.
		Order("created_at DESC").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) MarkRead(recipientID, id string) (bool, error) {
	tx := i.db.
		Model(&dbmodels.ApprovalNotification{}).
		Where("id = ?", id).
		Where("recipient_id = ?", recipientID).
		Where("channel = ?", models.ChannelInApp).
		Update("is_read", true)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
