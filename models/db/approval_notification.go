package dbmodels

import "overtime-approval-backend/models"

type ApprovalNotification struct {
	BaseModel
	ApprovalID     string                     `gorm:"type:varchar(36);index:idx_approval_kind"`
	RecipientID    string                     `gorm:"type:varchar(36);index:idx_recipient"`
	Kind           models.NotificationKind    `gorm:"type:varchar(30);index:idx_approval_kind"`
	Channel        models.NotificationChannel `gorm:"type:varchar(20)"`
	DeliveryStatus models.DeliveryStatus      `gorm:"type:varchar(20)"`
	Destination    string                     `gorm:"type:varchar(255)"`
	Title          string
	Message        string
	Attempts       int
	ErrorDetails   string
	IsRead         bool
}
