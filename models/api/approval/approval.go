package approvalapimodels

import (
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	"overtime-approval-backend/models"
	dbmodels "overtime-approval-backend/models/db"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const workDateLayout = "2006-01-02"

type ApprovalCreateData struct {
	WorkRecordID  string          `json:"work_record_id"`
	EmployeeID    string          `json:"employee_id"`
	ApproverID    string          `json:"approver_id"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
	WorkDate      string          `json:"work_date"` // YYYY-MM-DD
	Notes         string          `json:"notes"`
}

func (d ApprovalCreateData) Validate() error {
	if strings.TrimSpace(d.WorkRecordID) == "" {
		return apperrors.NewValidationError("work record reference is required")
	}
	if strings.TrimSpace(d.EmployeeID) == "" {
		return apperrors.NewValidationError("employee reference is required")
	}
	if strings.TrimSpace(d.ApproverID) == "" {
		return apperrors.NewValidationError("approver reference is required")
	}
	if !d.OvertimeHours.IsPositive() {
		return apperrors.NewValidationError("overtime hours must be greater than zero")
	}
	if _, err := d.GetWorkDate(); err != nil {
		return err
	}
	return nil
}

func (d ApprovalCreateData) GetWorkDate() (time.Time, error) {
	workDate, err := time.Parse(workDateLayout, d.WorkDate)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("work date must be in YYYY-MM-DD format")
	}
	return workDate, nil
}

type ApproveData struct {
	Signature string `json:"signature"`
	Notes     string `json:"notes"`
}

func (d ApproveData) Validate() error {
	if strings.TrimSpace(d.Signature) == "" {
		return apperrors.NewValidationError("signature is required to approve")
	}
	return nil
}

type RejectData struct {
	Motive string `json:"motive"`
}

func (d RejectData) Validate() error {
	if strings.TrimSpace(d.Motive) == "" {
		return apperrors.NewValidationError("rejection motive is required")
	}
	return nil
}

type PublicApproveData struct {
	Notes string `json:"notes"`
}

type BatchApproveData struct {
	IDs []string `json:"ids"`
	ApproveData
}

func (d BatchApproveData) Validate() error {
	if err := validateBatchIDs(d.IDs); err != nil {
		return err
	}
	return d.ApproveData.Validate()
}

type BatchRejectData struct {
	IDs []string `json:"ids"`
	RejectData
}

func (d BatchRejectData) Validate() error {
	if err := validateBatchIDs(d.IDs); err != nil {
		return err
	}
	return d.RejectData.Validate()
}

func validateBatchIDs(ids []string) error {
	if len(ids) == 0 {
		return apperrors.NewValidationError("ids list is empty")
	}
	if len(ids) > models.ApprovalBatchLimit {
		return apperrors.NewValidationError("batch limit of %d approvals exceeded", models.ApprovalBatchLimit)
	}
	return nil
}

type BatchResult struct {
	Succeeded int `json:"succeeded"`
	Requested int `json:"requested"`
}

type ApprovalView struct {
	ID              string                `json:"id"`
	WorkRecordID    string                `json:"work_record_id"`
	EmployeeID      string                `json:"employee_id"`
	EmployeeName    string                `json:"employee_name"`
	ApproverID      string                `json:"approver_id"`
	ApproverName    string                `json:"approver_name"`
	OvertimeHours   decimal.Decimal       `json:"overtime_hours"`
	WorkDate        string                `json:"work_date"`
	SubmittedAt     time.Time             `json:"submitted_at"`
	DeadlineAt      time.Time             `json:"deadline_at"`
	DecidedAt       *time.Time            `json:"decided_at"`
	Status          models.ApprovalStatus `json:"status"`
	StatusName      string                `json:"status_name"`
	Notes           string                `json:"notes"`
	DaysRemaining   *int                  `json:"days_remaining,omitempty"`
	SignatureHashed bool                  `json:"signature_hashed"`
}

func ApprovalConvert(rec dbmodels.OvertimeApproval, now time.Time) ApprovalView {
	view := ApprovalView{
		ID:              rec.ID,
		WorkRecordID:    rec.WorkRecordID,
		EmployeeID:      rec.EmployeeID,
		EmployeeName:    rec.EmployeeName(),
		ApproverID:      rec.ApproverID,
		ApproverName:    rec.ApproverName(),
		OvertimeHours:   rec.OvertimeHours,
		WorkDate:        rec.WorkDate.Format(workDateLayout),
		SubmittedAt:     rec.SubmittedAt,
		DeadlineAt:      rec.DeadlineAt,
		DecidedAt:       rec.DecidedAt,
		Status:          rec.Status,
		StatusName:      rec.Status.ToHuman(),
		Notes:           rec.Notes,
		SignatureHashed: rec.ApproverSignatureHash != "",
	}
	if rec.Status == models.AStatusPending {
		days := rec.DaysRemaining(now)
		view.DaysRemaining = &days
	}
	return view
}

// PublicApprovalView is what an anonymous token holder gets to see.
type PublicApprovalView struct {
	ID            string                `json:"id"`
	EmployeeName  string                `json:"employee_name"`
	OvertimeHours string                `json:"overtime_hours"`
	WorkDate      string                `json:"work_date"`
	DeadlineAt    string                `json:"deadline_at"`
	Notes         string                `json:"notes"`
	Status        models.ApprovalStatus `json:"status"`
	DaysRemaining int                   `json:"days_remaining"`
}

func PublicApprovalConvert(rec dbmodels.OvertimeApproval, now time.Time) PublicApprovalView {
	name := rec.EmployeeName()
	if name == "" {
		name = "Funcionário"
	}
	return PublicApprovalView{
		ID:            rec.ID,
		EmployeeName:  name,
		OvertimeHours: rec.OvertimeHours.StringFixed(2),
		WorkDate:      rec.WorkDate.Format("02/01/2006"),
		DeadlineAt:    rec.DeadlineAt.Format("02/01/2006"),
		Notes:         rec.Notes,
		Status:        rec.Status,
		DaysRemaining: rec.DaysRemaining(now),
	}
}

type ApprovalStats struct {
	Total              int             `json:"total"`
	Pending            int             `json:"pending"`
	Approved           int             `json:"approved"`
	Rejected           int             `json:"rejected"`
	Cancelled          int             `json:"cancelled"`
	TotalHoursApproved decimal.Decimal `json:"total_hours_approved"`
	PeriodDays         int             `json:"period_days"`
}

type ListFilter struct {
	Status models.ApprovalStatus `query:"status"`
}

func (f ListFilter) Validate() error {
	if f.Status != "" && !f.Status.IsValid() {
		return apperrors.NewValidationError("unknown status %q", f.Status)
	}
	return nil
}
