package dbmodels

import (
	"overtime-approval-backend/models"
	"time"

	"github.com/shopspring/decimal"
)

type OvertimeApproval struct {
	BaseModel
	WorkRecordID          string                 `gorm:"type:varchar(36);index"`
	EmployeeID            string                 `gorm:"type:varchar(36);index"`
	Employee              *SpaceUser             `gorm:"foreignKey:EmployeeID"`
	ApproverID            string                 `gorm:"type:varchar(36);index"`
	Approver              *SpaceUser             `gorm:"foreignKey:ApproverID"`
	OvertimeHours         decimal.Decimal        `gorm:"type:decimal(10,2)"`
	WorkDate              time.Time              `gorm:"type:date"`
	SubmittedAt           time.Time              `gorm:"index"`
	DeadlineAt            time.Time              `gorm:"index"`
	DecidedAt             *time.Time
	Status                models.ApprovalStatus  `gorm:"type:varchar(20);index"`
	DecisionChannel       models.DecisionChannel `gorm:"type:varchar(20)"`
	ApproverSignatureHash string                 `gorm:"type:varchar(64)"`
	Notes                 string
	AccessToken           *string `gorm:"type:varchar(64);index"`
	TokenIssuedAt         *time.Time
}

// DaysRemaining is ceil((deadline - now) / 1 day), never negative.
func (r OvertimeApproval) DaysRemaining(now time.Time) int {
	left := r.DeadlineAt.Sub(now)
	if left <= 0 {
		return 0
	}
	days := left / (24 * time.Hour)
	if left%(24*time.Hour) != 0 {
		days++
	}
	return int(days)
}

func (r OvertimeApproval) IsOverdue(now time.Time) bool {
	return now.After(r.DeadlineAt)
}

func (r OvertimeApproval) EmployeeName() string {
	if r.Employee != nil {
		return r.Employee.GetFullName()
	}
	return ""
}

func (r OvertimeApproval) ApproverName() string {
	if r.Approver != nil {
		return r.Approver.GetFullName()
	}
	return ""
}
