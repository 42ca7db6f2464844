// Package dbtest opens throwaway sqlite databases with the service schema.
package dbtest

import (
	"fmt"
	"overtime-approval-backend/db"
	"overtime-approval-backend/models"
	dbmodels "overtime-approval-backend/models/db"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func New(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	tx, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := tx.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(tx))
	return tx
}

func CreateUser(t *testing.T, tx *gorm.DB, firstName, lastName, phone, email string) dbmodels.SpaceUser {
	t.Helper()
	user := dbmodels.SpaceUser{
		FirstName:     firstName,
		LastName:      lastName,
		Email:         email,
		IsActive:      true,
		WhatsAppPhone: phone,
		Role:          models.EmployeeRole,
	}
	require.NoError(t, tx.Create(&user).Error)
	return user
}

// CreateApproval stores a pending record submitted at submittedAt.
func CreateApproval(t *testing.T, tx *gorm.DB, employeeID, approverID string, submittedAt time.Time) dbmodels.OvertimeApproval {
	t.Helper()
	rec := dbmodels.OvertimeApproval{
		WorkRecordID:  uuid.NewString(),
		EmployeeID:    employeeID,
		ApproverID:    approverID,
		OvertimeHours: decimal.RequireFromString("2.5"),
		WorkDate:      time.Date(submittedAt.Year(), submittedAt.Month(), submittedAt.Day(), 0, 0, 0, 0, time.UTC),
		SubmittedAt:   submittedAt.UTC(),
		DeadlineAt:    submittedAt.UTC().Add(models.ApprovalDeadline),
		Status:        models.AStatusPending,
	}
	require.NoError(t, tx.Omit("Employee", "Approver").Create(&rec).Error)
	return rec
}

// Clock is a settable time source for handlers.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

func (c *Clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
