package approvalnotifyhandler

import (
	"fmt"
	"overtime-approval-backend/models"
	dbmodels "overtime-approval-backend/models/db"
	"strings"
	"time"
)

const displayDateLayout = "02/01/2006"

type message struct {
	Title string
	Text  string
}

func composeMessage(kind models.NotificationKind, rec dbmodels.OvertimeApproval, now time.Time) message {
	hours := rec.OvertimeHours.String()
	workDate := rec.WorkDate.Format(displayDateLayout)
	switch kind {
	case models.NotifyNewRequest:
		return message{
			Title: "Nova solicitação de horas extras",
			Text: fmt.Sprintf("%s solicitou aprovação de %sh extras trabalhadas em %s. Prazo: 7 dias.",
				nameOr(rec.EmployeeName(), "Funcionário"), hours, workDate),
		}
	case models.NotifyDecided:
		outcome := "aprovadas"
		title := "Horas extras aprovadas"
		if rec.Status == models.AStatusRejected {
			outcome = "rejeitadas"
			title = "Horas extras rejeitadas"
		}
		text := fmt.Sprintf("Suas %sh extras do dia %s foram %s por %s.",
			hours, workDate, outcome, nameOr(rec.ApproverName(), "seu supervisor"))
		if notes := strings.TrimSpace(rec.Notes); notes != "" {
			text += " Observações: " + notes
		}
		return message{Title: title, Text: text}
	case models.NotifyReminder:
		return message{
			Title: "Lembrete: aprovação de horas extras pendente",
			Text: fmt.Sprintf("Você tem %d dia(s) para aprovar %sh extras de %s do dia %s.",
				rec.DaysRemaining(now), hours, nameOr(rec.EmployeeName(), "Funcionário"), workDate),
		}
	case models.NotifyAutoCancelled:
		return message{
			Title: "Solicitação de horas extras cancelada",
			Text: fmt.Sprintf("Sua solicitação de %sh extras do dia %s foi cancelada automaticamente "+
				"por prazo expirado (7 dias). Entre em contato com seu supervisor.", hours, workDate),
		}
	}
	return message{Title: "Horas extras", Text: fmt.Sprintf("Atualização da solicitação de %sh extras do dia %s.", hours, workDate)}
}

// withLink appends the access link for channels that cannot carry it separately.
func (m message) withLink(link string) string {
	if link == "" {
		return m.Text
	}
	return m.Text + "\n\nAcesse: " + link
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
