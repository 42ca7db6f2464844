package pdfexport

import (
	"bytes"
	"fmt"
	dbmodels "overtime-approval-backend/models/db"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

const dateTimeLayout = "02/01/2006 15:04"

// GenerateReceipt renders a one page decision receipt. Core fonts are used so
// no font files have to ship with the binary.
func GenerateReceipt(rec dbmodels.OvertimeApproval) (pdfFile []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("GenerateReceipt panic recover: %v", r)
		}
	}()
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, tr("Comprovante de horas extras"), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	if pdf.Error() != nil {
		return nil, pdf.Error()
	}

	decidedAt := "-"
	if rec.DecidedAt != nil {
		decidedAt = rec.DecidedAt.Format(dateTimeLayout)
	}
	rows := [][2]string{
		{"Solicitação", rec.ID},
		{"Funcionário", rec.EmployeeName()},
		{"Supervisor", rec.ApproverName()},
		{"Data do trabalho", rec.WorkDate.Format("02/01/2006")},
		{"Horas extras", fmt.Sprintf("%sh", rec.OvertimeHours.StringFixed(2))},
		{"Enviado em", rec.SubmittedAt.Format(dateTimeLayout)},
		{"Prazo", rec.DeadlineAt.Format(dateTimeLayout)},
		{"Status", rec.Status.ToHuman()},
		{"Decidido em", decidedAt},
		{"Canal da decisão", string(rec.DecisionChannel)},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, tr(row[0]), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, tr(row[1]), "1", 1, "L", false, 0, "")
	}
	if rec.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, tr("Observações"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(rec.Notes), "", "L", false)
	}
	if rec.ApproverSignatureHash != "" {
		pdf.Ln(4)
		pdf.SetFont("Courier", "", 8)
		pdf.MultiCell(0, 5, tr("Assinatura (SHA-256): "+rec.ApproverSignatureHash), "", "L", false)
	}

	buf := new(bytes.Buffer)
	err = pdf.Output(buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
