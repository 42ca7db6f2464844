package contactdirectory

import (
	"overtime-approval-backend/db"
	spaceusersstore "overtime-approval-backend/lib/space/users/store"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

type Contact struct {
	ID    string
	Name  string
	Phone string // digits only, with country code
	Email string
}

type Provider interface {
	// Resolve returns nil when the user is unknown.
	Resolve(userID string) (*Contact, error)
}

var Instance Provider

func NewHandler() {
	Instance = NewInstance(spaceusersstore.NewInstance(db.DB))
}

func NewInstance(store spaceusersstore.Provider) Provider {
	return impl{store: store}
}

type impl struct {
	store spaceusersstore.Provider
}

func (i impl) Resolve(userID string) (*Contact, error) {
	if userID == "" {
		return nil, nil
	}
	user, err := i.store.GetByID(userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read user")
	}
	if user == nil {
		return nil, nil
	}
	phone := user.WhatsAppPhone
	if phone == "" {
		phone = user.PhoneNumber
	}
	return &Contact{
		ID:    user.ID,
		Name:  user.GetFullName(),
		Phone: FormatPhone(phone),
		Email: strings.TrimSpace(user.Email),
	}, nil
}

const countryCode = "55"

// FormatPhone keeps digits and makes sure the number carries the country code.
func FormatPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, countryCode) {
		return digits
	}
	return countryCode + strings.TrimPrefix(digits, "0")
}
