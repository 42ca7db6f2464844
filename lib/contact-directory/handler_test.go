package contactdirectory

import (
	"overtime-approval-backend/db/dbtest"
	spaceusersstore "overtime-approval-backend/lib/space/users/store"
	dbmodels "overtime-approval-backend/models/db"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatPhone(t *testing.T) {
	t.Run("format check", func(t *testing.T) {
		require.Equal(t, "5511987654321", FormatPhone("(11) 98765-4321"))
		require.Equal(t, "5511987654321", FormatPhone("+55 11 98765-4321"))
		require.Equal(t, "5511987654321", FormatPhone("011987654321"))
		require.Equal(t, "", FormatPhone(" - "))
	})
}

func TestResolve(t *testing.T) {
	tx := dbtest.New(t)
	directory := NewInstance(spaceusersstore.NewInstance(tx))
	user := dbtest.CreateUser(t, tx, "Ana", "Souza", "11 91234-5678", " ana@example.com ")

	t.Run("known user check", func(t *testing.T) {
		contact, err := directory.Resolve(user.ID)
		require.NoError(t, err)
		require.NotNil(t, contact)
		require.Equal(t, "Ana Souza", contact.Name)
		require.Equal(t, "5511912345678", contact.Phone)
		require.Equal(t, "ana@example.com", contact.Email)
	})

	t.Run("fallback to phone number check", func(t *testing.T) {
		require.NoError(t, tx.Model(&dbmodels.SpaceUser{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{"whats_app_phone": "", "phone_number": "21 3333-4444"}).
			Error)
		contact, err := directory.Resolve(user.ID)
		require.NoError(t, err)
		require.Equal(t, "552133334444", contact.Phone)
	})

	t.Run("unknown user check", func(t *testing.T) {
		contact, err := directory.Resolve("unknown")
		require.NoError(t, err)
		require.Nil(t, contact)
		contact, err = directory.Resolve("")
		require.NoError(t, err)
		require.Nil(t, contact)
	})
}
