package models

import "time"

const (
	ApprovalDeadline       = 7 * 24 * time.Hour
	ApprovalTokenLifetime  = 48 * time.Hour
	ApprovalReminderAfter  = 3 * 24 * time.Hour
	ApprovalBatchLimit     = 50
	ApprovalStatsPeriodDay = 30
)

type ApprovalStatus string

const (
	AStatusPending   ApprovalStatus = "pending"
	AStatusApproved  ApprovalStatus = "approved"
	AStatusRejected  ApprovalStatus = "rejected"
	AStatusCancelled ApprovalStatus = "cancelled"
)

var approvalStatusHumanName = map[ApprovalStatus]string{
	AStatusPending:   "Pendente",
	AStatusApproved:  "Aprovado",
	AStatusRejected:  "Rejeitado",
	AStatusCancelled: "Cancelado",
}

func (s ApprovalStatus) ToHuman() string {
	if human, exist := approvalStatusHumanName[s]; exist {
		return human
	}
	return string(s)
}

func (s ApprovalStatus) IsValid() bool {
	_, ok := approvalStatusHumanName[s]
	return ok
}

func (s ApprovalStatus) IsTerminal() bool {
	return s == AStatusApproved || s == AStatusRejected || s == AStatusCancelled
}

// AllowDecision reports whether the record may still leave pending.
func (s ApprovalStatus) AllowDecision() bool {
	return s == AStatusPending
}

type DecisionChannel string

const (
	DecisionAuthenticated DecisionChannel = "authenticated"
	DecisionToken         DecisionChannel = "token"
	DecisionBatch         DecisionChannel = "batch"
	DecisionSystem        DecisionChannel = "system"
)

type NotificationKind string

const (
	NotifyNewRequest    NotificationKind = "new_request"
	NotifyReminder      NotificationKind = "reminder"
	NotifyDecided       NotificationKind = "decided"
	NotifyAutoCancelled NotificationKind = "auto_cancelled"
)

func (k NotificationKind) IsValid() bool {
	switch k {
	case NotifyNewRequest, NotifyReminder, NotifyDecided, NotifyAutoCancelled:
		return true
	}
	return false
}

type NotificationChannel string

const (
	ChannelInApp   NotificationChannel = "in_app"
	ChannelWebhook NotificationChannel = "webhook"
	ChannelEmail   NotificationChannel = "email"
)

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

func (c NotificationChannel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelWebhook, ChannelEmail:
		return true
	}
	return false
}

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliverySent, DeliveryFailed, DeliverySkipped:
		return true
	}
	return false
}
