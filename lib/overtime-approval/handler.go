package overtimeapprovalhandler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"overtime-approval-backend/config"
	"overtime-approval-backend/db"
	approvalnotifyhandler "overtime-approval-backend/lib/approval-notify"
	approvaltokenhandler "overtime-approval-backend/lib/approval-token"
	pdfexport "overtime-approval-backend/lib/export/pdf"
	xlsexport "overtime-approval-backend/lib/export/xls"
	overtimeapprovalstore "overtime-approval-backend/lib/overtime-approval/store"
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	"overtime-approval-backend/models"
	approvalapimodels "overtime-approval-backend/models/api/approval"
	dbmodels "overtime-approval-backend/models/db"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Provider interface {
	Create(ctx context.Context, data approvalapimodels.ApprovalCreateData) (approvalapimodels.ApprovalView, error)
	ApproveAuthenticated(ctx context.Context, id, actorID string, data approvalapimodels.ApproveData) error
	RejectAuthenticated(ctx context.Context, id, actorID string, data approvalapimodels.RejectData) error
	GetByToken(id, token string) (approvalapimodels.PublicApprovalView, error)
	ApproveByToken(ctx context.Context, id, token string, data approvalapimodels.PublicApproveData) error
	RejectByToken(ctx context.Context, id, token string, data approvalapimodels.RejectData) error
	ApproveBatch(ctx context.Context, actorID string, data approvalapimodels.BatchApproveData) (approvalapimodels.BatchResult, error)
	RejectBatch(ctx context.Context, actorID string, data approvalapimodels.BatchRejectData) (approvalapimodels.BatchResult, error)
	// AutoCancel is driven by the expire job only.
	AutoCancel(ctx context.Context, id string) error
	GetByID(id, actorID string) (approvalapimodels.ApprovalView, error)
	PendingForApprover(actorID string) ([]approvalapimodels.ApprovalView, error)
	ListForEmployee(employeeID string, filter approvalapimodels.ListFilter) ([]approvalapimodels.ApprovalView, error)
	StatsForApprover(actorID string, periodDays int) (approvalapimodels.ApprovalStats, error)
	ExportForApprover(actorID string, periodDays int) (*bytes.Buffer, error)
	Receipt(id, actorID string) ([]byte, error)
	// WaitNotifications blocks until every async dispatch started so far has finished.
	WaitNotifications(ctx context.Context) error
}

var Instance Provider

func NewHandler() {
	Instance = NewInstance(
		overtimeapprovalstore.NewInstance(db.DB),
		approvaltokenhandler.Instance,
		approvalnotifyhandler.Instance,
		xlsexport.Instance,
		config.Conf.Approval.AsyncNotify == nil || *config.Conf.Approval.AsyncNotify,
		time.Now,
	)
}

func NewInstance(store overtimeapprovalstore.Provider, tokens approvaltokenhandler.Provider,
	notifier approvalnotifyhandler.Provider, xls xlsexport.Provider, asyncNotify bool, now func() time.Time) Provider {
	return impl{
		store:       store,
		tokens:      tokens,
		notifier:    notifier,
		xls:         xls,
		asyncNotify: asyncNotify,
		now:         now,
		inflight:    &sync.WaitGroup{},
	}
}

type impl struct {
	store       overtimeapprovalstore.Provider
	tokens      approvaltokenhandler.Provider
	notifier    approvalnotifyhandler.Provider
	xls         xlsexport.Provider
	asyncNotify bool
	now         func() time.Time
	inflight    *sync.WaitGroup
}

func (i impl) getLogger(id, actorID string) *log.Entry {
	logger := log.WithField("approval_id", id)
	if actorID != "" {
		logger = logger.WithField("user_id", actorID)
	}
	return logger
}

func (i impl) Create(ctx context.Context, data approvalapimodels.ApprovalCreateData) (approvalapimodels.ApprovalView, error) {
	if err := data.Validate(); err != nil {
		return approvalapimodels.ApprovalView{}, err
	}
	workDate, _ := data.GetWorkDate()
	now := i.now().UTC()
	rec := dbmodels.OvertimeApproval{
		WorkRecordID:  strings.TrimSpace(data.WorkRecordID),
		EmployeeID:    strings.TrimSpace(data.EmployeeID),
		ApproverID:    strings.TrimSpace(data.ApproverID),
		OvertimeHours: data.OvertimeHours,
		WorkDate:      workDate,
		SubmittedAt:   now,
		DeadlineAt:    now.Add(models.ApprovalDeadline),
		Status:        models.AStatusPending,
		Notes:         strings.TrimSpace(data.Notes),
	}
	id, err := i.store.Create(rec)
	if err != nil {
		return approvalapimodels.ApprovalView{}, errors.Wrap(err, "failed to create approval")
	}
	logger := i.getLogger(id, rec.EmployeeID)
	logger.Info("overtime approval created")

	if _, err = i.tokens.Mint(id); err != nil {
		// the record stays reachable through the authenticated path
		logger.WithError(err).Error("failed to mint approval token")
	}
	created, err := i.store.GetByID(id)
	if err != nil {
		return approvalapimodels.ApprovalView{}, errors.Wrap(err, "failed to read created approval")
	}
	if created == nil {
		return approvalapimodels.ApprovalView{}, apperrors.NotFoundError{ID: id}
	}
	i.notify(ctx, models.NotifyNewRequest, *created, created.ApproverID)
	return approvalapimodels.ApprovalConvert(*created, now), nil
}

func (i impl) ApproveAuthenticated(ctx context.Context, id, actorID string, data approvalapimodels.ApproveData) error {
	rec, err := i.getForDecision(id, actorID)
	if err != nil {
		return err
	}
	if err = data.Validate(); err != nil {
		return err
	}
	return i.decide(ctx, rec, decision{
		status:        models.AStatusApproved,
		channel:       models.DecisionAuthenticated,
		notes:         data.Notes,
		signatureHash: hashSignature(data.Signature),
		actorID:       actorID,
	}, true)
}

func (i impl) RejectAuthenticated(ctx context.Context, id, actorID string, data approvalapimodels.RejectData) error {
	rec, err := i.getForDecision(id, actorID)
	if err != nil {
		return err
	}
	if err = data.Validate(); err != nil {
		return err
	}
	return i.decide(ctx, rec, decision{
		status:  models.AStatusRejected,
		channel: models.DecisionAuthenticated,
		notes:   data.Motive,
		actorID: actorID,
	}, true)
}

// getForDecision runs the authenticated guards in order:
// exists, pending, not past deadline, actor is the approver.
func (i impl) getForDecision(id, actorID string) (*dbmodels.OvertimeApproval, error) {
	rec, err := i.store.GetByID(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read approval")
	}
	if rec == nil {
		return nil, apperrors.NotFoundError{ID: id}
	}
	if !rec.Status.AllowDecision() {
		return nil, apperrors.InvalidStateError{Status: rec.Status}
	}
	if rec.IsOverdue(i.now().UTC()) {
		return nil, apperrors.ExpiredError{}
	}
	if rec.ApproverID != actorID {
		return nil, apperrors.PermissionError{ActorID: actorID}
	}
	return rec, nil
}

func (i impl) GetByToken(id, token string) (approvalapimodels.PublicApprovalView, error) {
	rec, err := i.validateToken(id, token)
	if err != nil {
		return approvalapimodels.PublicApprovalView{}, err
	}
	return approvalapimodels.PublicApprovalConvert(*rec, i.now().UTC()), nil
}

func (i impl) ApproveByToken(ctx context.Context, id, token string, data approvalapimodels.PublicApproveData) error {
	rec, err := i.validateToken(id, token)
	if err != nil {
		return err
	}
	return i.decide(ctx, rec, decision{
		status:  models.AStatusApproved,
		channel: models.DecisionToken,
		notes:   data.Notes,
	}, true)
}

func (i impl) RejectByToken(ctx context.Context, id, token string, data approvalapimodels.RejectData) error {
	rec, err := i.validateToken(id, token)
	if err != nil {
		return err
	}
	if err = data.Validate(); err != nil {
		return err
	}
	return i.decide(ctx, rec, decision{
		status:  models.AStatusRejected,
		channel: models.DecisionToken,
		notes:   data.Motive,
	}, true)
}

func (i impl) validateToken(id, token string) (*dbmodels.OvertimeApproval, error) {
	result, err := i.tokens.Validate(token, id)
	if err != nil {
		return nil, err
	}
	if result.Valid {
		return result.Record, nil
	}
	switch result.Reason {
	case approvaltokenhandler.ReasonMissing:
		return nil, apperrors.TokenError{Reason: "token is required"}
	case approvaltokenhandler.ReasonInvalid:
		return nil, apperrors.TokenError{Reason: "invalid token"}
	case approvaltokenhandler.ReasonTokenExpired:
		return nil, apperrors.TokenError{Reason: approvaltokenhandler.ReasonTokenExpired}
	case approvaltokenhandler.ReasonDeadlineExpired:
		return nil, apperrors.ExpiredError{}
	}
	if result.Record != nil {
		return nil, apperrors.InvalidStateError{Status: result.Record.Status}
	}
	return nil, apperrors.TokenError{Reason: "invalid token"}
}

func (i impl) ApproveBatch(ctx context.Context, actorID string, data approvalapimodels.BatchApproveData) (approvalapimodels.BatchResult, error) {
	if err := data.Validate(); err != nil {
		return approvalapimodels.BatchResult{}, err
	}
	return i.batch(ctx, actorID, data.IDs, decision{
		status:        models.AStatusApproved,
		channel:       models.DecisionBatch,
		notes:         data.Notes,
		signatureHash: hashSignature(data.Signature),
		actorID:       actorID,
	})
}

func (i impl) RejectBatch(ctx context.Context, actorID string, data approvalapimodels.BatchRejectData) (approvalapimodels.BatchResult, error) {
	if err := data.Validate(); err != nil {
		return approvalapimodels.BatchResult{}, err
	}
	return i.batch(ctx, actorID, data.IDs, decision{
		status:  models.AStatusRejected,
		channel: models.DecisionBatch,
		notes:   data.Motive,
		actorID: actorID,
	})
}

// batch decides every eligible record on its own; records that are not owned
// by the actor, not pending or past deadline are silently left out.
func (i impl) batch(ctx context.Context, actorID string, ids []string, d decision) (approvalapimodels.BatchResult, error) {
	result := approvalapimodels.BatchResult{Requested: len(ids)}
	list, err := i.store.ListByIDs(ids)
	if err != nil {
		return result, errors.Wrap(err, "failed to read approvals")
	}
	now := i.now().UTC()
	targets := make([]approvalnotifyhandler.Target, 0, len(list))
	for idx := range list {
		rec := &list[idx]
		if rec.ApproverID != actorID || !rec.Status.AllowDecision() || rec.IsOverdue(now) {
			continue
		}
		if err = i.decide(ctx, rec, d, false); err != nil {
			i.getLogger(rec.ID, actorID).WithError(err).Warn("batch decision skipped")
			continue
		}
		result.Succeeded++
		targets = append(targets, approvalnotifyhandler.Target{Record: *rec, RecipientID: rec.EmployeeID})
	}
	i.notifyBatch(ctx, models.NotifyDecided, targets)
	return result, nil
}

func (i impl) AutoCancel(ctx context.Context, id string) error {
	rec, err := i.store.GetByID(id)
	if err != nil {
		return errors.Wrap(err, "failed to read approval")
	}
	if rec == nil {
		return apperrors.NotFoundError{ID: id}
	}
	if !rec.Status.AllowDecision() {
		return apperrors.InvalidStateError{Status: rec.Status}
	}
	now := i.now().UTC()
	if !rec.IsOverdue(now) {
		return apperrors.NewValidationError("approval deadline has not passed yet")
	}
	note := fmt.Sprintf("[%s] Cancelado automaticamente em %s por prazo expirado (7 dias).",
		models.SystemUser, now.Format("02/01/2006 15:04"))
	if rec.Notes != "" {
		note = rec.Notes + "\n" + note
	}
	return i.decide(ctx, rec, decision{
		status:       models.AStatusCancelled,
		channel:      models.DecisionSystem,
		notes:        note,
		notification: models.NotifyAutoCancelled,
	}, true)
}

type decision struct {
	status        models.ApprovalStatus
	channel       models.DecisionChannel
	notes         string
	signatureHash string
	actorID       string
	notification  models.NotificationKind
}

// decide moves rec out of pending with a conditional update. A writer that
// loses the race gets InvalidStateError with the status that won.
func (i impl) decide(ctx context.Context, rec *dbmodels.OvertimeApproval, d decision, notify bool) error {
	logger := i.getLogger(rec.ID, d.actorID)
	now := i.now().UTC()
	updMap := map[string]interface{}{
		"status":           d.status,
		"decided_at":       now,
		"decision_channel": d.channel,
	}
	notes := strings.TrimSpace(d.notes)
	if notes != "" {
		updMap["notes"] = notes
	}
	if d.signatureHash != "" {
		updMap["approver_signature_hash"] = d.signatureHash
	}
	updated, err := i.store.UpdateIfPending(rec.ID, updMap)
	if err != nil {
		return errors.Wrap(err, "failed to update approval")
	}
	if !updated {
		current, err := i.store.GetByID(rec.ID)
		if err != nil {
			return errors.Wrap(err, "failed to read approval")
		}
		if current == nil {
			return apperrors.NotFoundError{ID: rec.ID}
		}
		return apperrors.InvalidStateError{Status: current.Status}
	}
	rec.Status = d.status
	rec.DecidedAt = &now
	rec.DecisionChannel = d.channel
	if notes != "" {
		rec.Notes = notes
	}
	if d.signatureHash != "" {
		rec.ApproverSignatureHash = d.signatureHash
	}
	logger.
		WithField("status", d.status).
		WithField("channel", d.channel).
		Info("overtime approval decided")

	if notify {
		kind := d.notification
		if kind == "" {
			kind = models.NotifyDecided
		}
		i.notify(ctx, kind, *rec, rec.EmployeeID)
	}
	return nil
}

// notify runs after the transition is committed; its outcome never reaches the caller.
func (i impl) notify(ctx context.Context, kind models.NotificationKind, rec dbmodels.OvertimeApproval, recipientID string) {
	if i.notifier == nil {
		return
	}
	if i.asyncNotify {
		i.inflight.Add(1)
		go func() {
			defer i.inflight.Done()
			i.notifier.Dispatch(context.WithoutCancel(ctx), kind, rec, recipientID)
		}()
		return
	}
	i.notifier.Dispatch(ctx, kind, rec, recipientID)
}

func (i impl) notifyBatch(ctx context.Context, kind models.NotificationKind, targets []approvalnotifyhandler.Target) {
	if i.notifier == nil || len(targets) == 0 {
		return
	}
	if i.asyncNotify {
		i.inflight.Add(1)
		go func() {
			defer i.inflight.Done()
			i.notifier.DispatchBatch(context.WithoutCancel(ctx), kind, targets)
		}()
		return
	}
	i.notifier.DispatchBatch(ctx, kind, targets)
}

func (i impl) WaitNotifications(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		i.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "notifications still in flight")
	}
}

func (i impl) GetByID(id, actorID string) (approvalapimodels.ApprovalView, error) {
	rec, err := i.getForRead(id, actorID)
	if err != nil {
		return approvalapimodels.ApprovalView{}, err
	}
	return approvalapimodels.ApprovalConvert(*rec, i.now().UTC()), nil
}

func (i impl) getForRead(id, actorID string) (*dbmodels.OvertimeApproval, error) {
	rec, err := i.store.GetByID(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read approval")
	}
	if rec == nil {
		return nil, apperrors.NotFoundError{ID: id}
	}
	if rec.ApproverID != actorID && rec.EmployeeID != actorID {
		return nil, apperrors.PermissionError{ActorID: actorID}
	}
	return rec, nil
}

func (i impl) PendingForApprover(actorID string) ([]approvalapimodels.ApprovalView, error) {
	list, err := i.store.ListPendingByApprover(actorID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending approvals")
	}
	return i.convertList(list), nil
}

func (i impl) ListForEmployee(employeeID string, filter approvalapimodels.ListFilter) ([]approvalapimodels.ApprovalView, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	list, err := i.store.ListByEmployee(employeeID, filter.Status)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list employee approvals")
	}
	return i.convertList(list), nil
}

func (i impl) convertList(list []dbmodels.OvertimeApproval) []approvalapimodels.ApprovalView {
	now := i.now().UTC()
	result := make([]approvalapimodels.ApprovalView, 0, len(list))
	for _, rec := range list {
		result = append(result, approvalapimodels.ApprovalConvert(rec, now))
	}
	return result
}

func (i impl) StatsForApprover(actorID string, periodDays int) (approvalapimodels.ApprovalStats, error) {
	periodDays = normalizePeriod(periodDays)
	stats := approvalapimodels.ApprovalStats{
		TotalHoursApproved: decimal.Zero,
		PeriodDays:         periodDays,
	}
	list, err := i.listPeriod(actorID, periodDays)
	if err != nil {
		return stats, err
	}
	for _, rec := range list {
		stats.Total++
		switch rec.Status {
		case models.AStatusPending:
			stats.Pending++
		case models.AStatusApproved:
			stats.Approved++
			stats.TotalHoursApproved = stats.TotalHoursApproved.Add(rec.OvertimeHours)
		case models.AStatusRejected:
			stats.Rejected++
		case models.AStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (i impl) ExportForApprover(actorID string, periodDays int) (*bytes.Buffer, error) {
	list, err := i.listPeriod(actorID, normalizePeriod(periodDays))
	if err != nil {
		return nil, err
	}
	return i.xls.ExportApprovalList(list)
}

func (i impl) listPeriod(actorID string, periodDays int) ([]dbmodels.OvertimeApproval, error) {
	since := i.now().UTC().AddDate(0, 0, -periodDays)
	list, err := i.store.ListByApproverSince(actorID, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list approvals for period")
	}
	return list, nil
}

func (i impl) Receipt(id, actorID string) ([]byte, error) {
	rec, err := i.getForRead(id, actorID)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.AStatusPending {
		return nil, apperrors.NewValidationError("approval is not decided yet")
	}
	return pdfexport.GenerateReceipt(*rec)
}

func normalizePeriod(periodDays int) int {
	if periodDays <= 0 {
		return models.ApprovalStatsPeriodDay
	}
	return periodDays
}

func hashSignature(signature string) string {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(sum[:])
}
