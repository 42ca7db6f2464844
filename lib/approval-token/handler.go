package approvaltokenhandler

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"overtime-approval-backend/db"
	overtimeapprovalstore "overtime-approval-backend/lib/overtime-approval/store"
	"overtime-approval-backend/models"
	dbmodels "overtime-approval-backend/models/db"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	ReasonMissing         = "missing"
	ReasonInvalid         = "invalid"
	ReasonTokenExpired    = "token expired"
	ReasonDeadlineExpired = "deadline expired"
)

type Validation struct {
	Valid  bool
	Record *dbmodels.OvertimeApproval
	Reason string
}

type Provider interface {
	// Mint issues a new token for the record. Any token minted before stops matching.
	Mint(recordID string) (string, error)
	// Validate has no side effects.
	Validate(token, recordID string) (Validation, error)
}

var Instance Provider

func NewHandler() {
	Instance = NewInstance(overtimeapprovalstore.NewInstance(db.DB), time.Now)
}

func NewInstance(store overtimeapprovalstore.Provider, now func() time.Time) Provider {
	return impl{
		store: store,
		now:   now,
	}
}

type impl struct {
	store overtimeapprovalstore.Provider
	now   func() time.Time
}

func (i impl) Mint(recordID string) (string, error) {
	if recordID == "" {
		return "", errors.New("record id is empty")
	}
	issuedAt := i.now().UTC()
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%x", recordID, issuedAt.UnixNano(), nonce)))
	token := base64.RawURLEncoding.EncodeToString(sum[:])

	if err := i.store.SetToken(recordID, token, issuedAt); err != nil {
		return "", errors.Wrap(err, "failed to store approval token")
	}
	log.WithField("approval_id", recordID).Info("approval token issued")
	return token, nil
}

func (i impl) Validate(token, recordID string) (Validation, error) {
	token = strings.TrimSpace(token)
	if token == "" || recordID == "" {
		return Validation{Reason: ReasonMissing}, nil
	}
	rec, err := i.store.GetByIDAndToken(recordID, token)
	if err != nil {
		return Validation{}, errors.Wrap(err, "failed to read approval by token")
	}
	if rec == nil || rec.AccessToken == nil || *rec.AccessToken != token {
		return Validation{Reason: ReasonInvalid}, nil
	}
	if rec.Status != models.AStatusPending {
		return Validation{Record: rec, Reason: fmt.Sprintf("already %s", rec.Status)}, nil
	}
	now := i.now().UTC()
	if now.Sub(rec.SubmittedAt) > models.ApprovalTokenLifetime {
		return Validation{Record: rec, Reason: ReasonTokenExpired}, nil
	}
	if now.After(rec.DeadlineAt) {
		return Validation{Record: rec, Reason: ReasonDeadlineExpired}, nil
	}
	return Validation{Valid: true, Record: rec}, nil
}
