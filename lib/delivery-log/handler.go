package deliveryloghandler

import (
	"bytes"
	"overtime-approval-backend/db"
	approvalnotifystore "overtime-approval-backend/lib/approval-notify/store"
	xlsexport "overtime-approval-backend/lib/export/xls"
	overtimeapprovalstore "overtime-approval-backend/lib/overtime-approval/store"
	apperrors "overtime-approval-backend/lib/utils/app-errors"
	"overtime-approval-backend/models"
	approvalapimodels "overtime-approval-backend/models/api/approval"

	"github.com/pkg/errors"
)

// Actor is the caller of the log. Admins see every row, anybody else only
// the rows of an approval they are the approver of.
type Actor struct {
	UserID  string
	IsAdmin bool
}

type Provider interface {
	List(actor Actor, filter approvalapimodels.DeliveryLogFilter) ([]approvalapimodels.DeliveryLogView, error)
	Stats(actor Actor, filter approvalapimodels.DeliveryLogFilter) (approvalapimodels.DeliveryStats, error)
	Export(actor Actor, filter approvalapimodels.DeliveryLogFilter) (*bytes.Buffer, error)
}

var Instance Provider

func NewHandler() {
	Instance = NewInstance(
		approvalnotifystore.NewInstance(db.DB),
		overtimeapprovalstore.NewInstance(db.DB),
		xlsexport.Instance,
	)
}

func NewInstance(store approvalnotifystore.Provider, approvals overtimeapprovalstore.Provider, xls xlsexport.Provider) Provider {
	return impl{
		store:     store,
		approvals: approvals,
		xls:       xls,
	}
}

type impl struct {
	store     approvalnotifystore.Provider
	approvals overtimeapprovalstore.Provider
	xls       xlsexport.Provider
}

func (i impl) List(actor Actor, filter approvalapimodels.DeliveryLogFilter) ([]approvalapimodels.DeliveryLogView, error) {
	storeFilter, err := i.prepare(actor, filter)
	if err != nil {
		return nil, err
	}
	list, err := i.store.ListLog(storeFilter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read delivery log")
	}
	result := make([]approvalapimodels.DeliveryLogView, 0, len(list))
	for _, rec := range list {
		result = append(result, approvalapimodels.DeliveryLogConvert(rec))
	}
	return result, nil
}

func (i impl) Stats(actor Actor, filter approvalapimodels.DeliveryLogFilter) (approvalapimodels.DeliveryStats, error) {
	stats := approvalapimodels.DeliveryStats{
		ByStatus:  map[models.DeliveryStatus]int{},
		ByChannel: map[models.NotificationChannel]int{},
	}
	storeFilter, err := i.prepare(actor, filter)
	if err != nil {
		return stats, err
	}
	counts, err := i.store.CountLog(storeFilter)
	if err != nil {
		return stats, err
	}
	for _, count := range counts {
		stats.Total += count.Total
		stats.ByStatus[count.DeliveryStatus] += count.Total
		stats.ByChannel[count.Channel] += count.Total
	}
	return stats, nil
}

func (i impl) Export(actor Actor, filter approvalapimodels.DeliveryLogFilter) (*bytes.Buffer, error) {
	list, err := i.List(actor, filter)
	if err != nil {
		return nil, err
	}
	buf, err := i.xls.ExportDeliveryLog(list)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build delivery log export")
	}
	return buf, nil
}

func (i impl) prepare(actor Actor, filter approvalapimodels.DeliveryLogFilter) (approvalnotifystore.LogFilter, error) {
	if err := filter.Validate(); err != nil {
		return approvalnotifystore.LogFilter{}, err
	}
	if err := i.checkAccess(actor, filter.ApprovalID); err != nil {
		return approvalnotifystore.LogFilter{}, err
	}
	from, to, _ := filter.GetRange()
	return approvalnotifystore.LogFilter{
		ApprovalID: filter.ApprovalID,
		Status:     filter.Status,
		Channel:    filter.Channel,
		From:       from,
		To:         to,
	}, nil
}

func (i impl) checkAccess(actor Actor, approvalID string) error {
	if actor.IsAdmin {
		return nil
	}
	if approvalID == "" {
		return apperrors.NewValidationError("approval_id is required")
	}
	rec, err := i.approvals.GetByID(approvalID)
	if err != nil {
		return errors.Wrap(err, "failed to read approval")
	}
	if rec == nil {
		return apperrors.NotFoundError{ID: approvalID}
	}
	if rec.ApproverID != actor.UserID {
		return apperrors.PermissionError{ActorID: actor.UserID}
	}
	return nil
}
