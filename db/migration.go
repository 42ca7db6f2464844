package db

import (
	dbmodels "overtime-approval-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func AutoMigrateDB() error {
	return Migrate(DB)
}

func Migrate(tx *gorm.DB) error {
	log.Info("Running migrations")
	if err := tx.AutoMigrate(&dbmodels.SpaceUser{}); err != nil {
		return errors.Wrap(err, "failed to migrate SpaceUser")
	}
	if err := tx.AutoMigrate(&dbmodels.OvertimeApproval{}); err != nil {
		return errors.Wrap(err, "failed to migrate OvertimeApproval")
	}
	if err := tx.AutoMigrate(&dbmodels.ApprovalNotification{}); err != nil {
		return errors.Wrap(err, "failed to migrate ApprovalNotification")
	}
	log.Info("Migrations finished")
	return nil
}
