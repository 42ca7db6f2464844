package xlsexport

import (
	"bytes"

	approvalapimodels "overtime-approval-backend/models/api/approval"
	dbmodels "overtime-approval-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

type Provider interface {
	ExportApprovalList(list []dbmodels.OvertimeApproval) (*bytes.Buffer, error)
	ExportDeliveryLog(list []approvalapimodels.DeliveryLogView) (*bytes.Buffer, error)
}

var Instance Provider

func NewHandler() {
	Instance = NewInstance()
}

func NewInstance() Provider {
	return impl{}
}

type impl struct{}

var approvalHeaders = []string{"Funcionário", "Data do trabalho", "Horas extras", "Enviado em", "Prazo", "Status", "Decidido em", "Observações"}

func (i impl) ExportApprovalList(list []dbmodels.OvertimeApproval) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("failed to close xlsx file")
		}
	}()
	sheet := "Sheet1"
	row := 0
	row, err := writeHeader(f, sheet, row, approvalHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write xlsx header")
	}
	if len(list) != 0 {
		_, err = writeApprovalData(f, sheet, list, row)
		if err != nil {
			return nil, errors.Wrap(err, "failed to write xlsx data")
		}
	}
	if err = f.SetSheetName(sheet, "Horas extras"); err != nil {
		return nil, errors.Wrap(err, "failed to rename sheet")
	}
	return f.WriteToBuffer()
}

func writeApprovalData(f *excelize.File, sheet string, list []dbmodels.OvertimeApproval, row int) (int, error) {
	if err := applyDataCellStyle(f, sheet, 1, row+1, len(approvalHeaders), len(list)+1); err != nil {
		return row, err
	}
	for _, item := range list {
		row++
		values := []interface{}{
			item.EmployeeName(),
			item.WorkDate.Format(dateLayout),
			item.OvertimeHours.InexactFloat64(),
			item.SubmittedAt.Format(dateTimeLayout),
			item.DeadlineAt.Format(dateTimeLayout),
			item.Status.ToHuman(),
			"",
			item.Notes,
		}
		if item.DecidedAt != nil {
			values[6] = item.DecidedAt.Format(dateTimeLayout)
		}
		for idx, value := range values {
			if err := writeColumn(f, sheet, idx+1, row, value); err != nil {
				return row, err
			}
		}
	}
	return row, nil
}

var deliveryLogHeaders = []string{"Data", "Aprovação", "Destinatário", "Tipo", "Canal", "Status", "Destino", "Tentativas", "Erro"}

func (i impl) ExportDeliveryLog(list []approvalapimodels.DeliveryLogView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("failed to close xlsx file")
		}
	}()
	sheet := "Sheet1"
	row, err := writeHeader(f, sheet, 0, deliveryLogHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write xlsx header")
	}
	if len(list) != 0 {
		if err = applyDataCellStyle(f, sheet, 1, row+1, len(deliveryLogHeaders), len(list)+1); err != nil {
			return nil, errors.Wrap(err, "failed to style xlsx data")
		}
	}
	for _, item := range list {
		row++
		values := []interface{}{
			item.CreatedAt.Format(dateTimeLayout),
			item.ApprovalID,
			item.RecipientID,
			string(item.Kind),
			string(item.Channel),
			string(item.DeliveryStatus),
			item.Destination,
			item.Attempts,
			item.ErrorDetails,
		}
		for idx, value := range values {
			if err = writeColumn(f, sheet, idx+1, row, value); err != nil {
				return nil, errors.Wrap(err, "failed to write xlsx data")
			}
		}
	}
	if err = f.SetSheetName(sheet, "Envios"); err != nil {
		return nil, errors.Wrap(err, "failed to rename sheet")
	}
	return f.WriteToBuffer()
}
