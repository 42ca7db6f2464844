package overtimeapprovalstore

import (
	"overtime-approval-backend/models"
	dbmodels "overtime-approval-backend/models/db"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Provider interface {
	Create(rec dbmodels.OvertimeApproval) (id string, err error)
	GetByID(id string) (rec *dbmodels.OvertimeApproval, err error)
	GetByIDAndToken(id, token string) (rec *dbmodels.OvertimeApproval, err error)
	SetToken(id, token string, issuedAt time.Time) error
	// UpdateIfPending applies updMap only while the record is still pending.
	// updated=false means another writer moved the record first.
	UpdateIfPending(id string, updMap map[string]interface{}) (updated bool, err error)
	ListByIDs(ids []string) ([]dbmodels.OvertimeApproval, error)
	ListPendingByApprover(approverID string) ([]dbmodels.OvertimeApproval, error)
	ListByApproverSince(approverID string, since time.Time) ([]dbmodels.OvertimeApproval, error)
	ListByEmployee(employeeID string, status models.ApprovalStatus) ([]dbmodels.OvertimeApproval, error)
	ListOverdue(now time.Time) ([]dbmodels.OvertimeApproval, error)
	ListForReminder(submittedBefore, now time.Time) ([]dbmodels.OvertimeApproval, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.OvertimeApproval) (id string, err error) {
	err = i.db.
		Omit("Employee", "Approver").
		Create(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(id string) (*dbmodels.OvertimeApproval, error) {
	rec := dbmodels.OvertimeApproval{}
	err := i.db.
		Where("id = ?", id).
		Preload("Employee").
		Preload("Approver").
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (i impl) GetByIDAndToken(id, token string) (*dbmodels.OvertimeApproval, error) {
	rec := dbmodels.OvertimeApproval{}
	err := i.db.
		Where("id = ?", id).
		Where("access_token = ?", token).
		Preload("Employee").
		Preload("Approver").
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (i impl) SetToken(id, token string, issuedAt time.Time) error {
	tx := i.db.
		Model(&dbmodels.OvertimeApproval{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token":    token,
			"token_issued_at": issuedAt,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return errors.Errorf("approval %v not found", id)
	}
	return nil
}

func (i impl) UpdateIfPending(id string, updMap map[string]interface{}) (bool, error) {
	if len(updMap) == 0 {
		return false, nil
	}
	tx := i.db.
		Model(&dbmodels.OvertimeApproval{}).
		Where("id = ?", id).
		Where("status = ?", models.AStatusPending).
		Updates(updMap)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (i impl) ListByIDs(ids []string) (list []dbmodels.OvertimeApproval, err error) {
	list = []dbmodels.OvertimeApproval{}
	if len(ids) == 0 {
		return list, nil
	}
	err = i.db.
		Where("id IN ?", ids).
		Preload("Employee").
		Preload("Approver").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) ListPendingByApprover(approverID string) (list []dbmodels.OvertimeApproval, err error) {
	list = []dbmodels.OvertimeApproval{}
	err = i.db.
		Where("approver_id = ?", approverID).
		Where("status = ?", models.AStatusPending).
		Order("deadline_at ASC").
		Preload("Employee").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) ListByApproverSince(approverID string, since time.Time) (list []dbmodels.OvertimeApproval, err error) {
	list = []dbmodels.OvertimeApproval{}
	err = i.db.
		Where("approver_id = ?", approverID).
		Where("submitted_at >= ?", since).
		Order("submitted_at DESC").
		Preload("Employee").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) ListByEmployee(employeeID string, status models.ApprovalStatus) (list []dbmodels.OvertimeApproval, err error) {
	list = []dbmodels.OvertimeApproval{}
	tx := i.db.
		Where("employee_id = ?", employeeID)
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	err = tx.
		Order("submitted_at DESC").
		Preload("Approver").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) ListOverdue(now time.Time) (list []dbmodels.OvertimeApproval, err error) {
	list = []dbmodels.OvertimeApproval{}
	err = i.db.
		Where("status = ?", models.AStatusPending).
		Where("deadline_at < ?", now).
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) ListForReminder(submittedBefore, now time.Time) (list []dbmodels.OvertimeApproval, err error) {
	list = []dbmodels.OvertimeApproval{}
	err = i.db.
		Where("status = ?", models.AStatusPending).
		Where("submitted_at <= ?", submittedBefore).
		Where("deadline_at > ?", now).
		Preload("Employee").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
