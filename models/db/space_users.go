package dbmodels

import (
	"fmt"
	"overtime-approval-backend/models"
	"strings"
	"time"
)

type SpaceUser struct {
	BaseModel
	FirstName     string          `gorm:"type:varchar(150)"`
	LastName      string          `gorm:"type:varchar(150)"`
	Email         string          `gorm:"type:varchar(255)"`
	IsActive      bool
	PhoneNumber   string          `gorm:"type:varchar(20)"`
	WhatsAppPhone string          `gorm:"type:varchar(20)"`
	Role          models.UserRole `gorm:"type:varchar(50)"`
	LastLogin     time.Time
}

func (r SpaceUser) GetFullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", r.FirstName, r.LastName))
}
