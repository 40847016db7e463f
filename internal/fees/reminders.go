package fees

import (
	"fmt"
	"strings"
	"time"

	"github.com/verixence/erp-school-sub008/models"
)

// DueReminder is one reminder rule that fires today, paired with the due
// date that triggered it (the schedule's own date or one installment's).
// Installment is set when an installment due date triggered the rule, so the
// dispatcher can quote that installment's share instead of the full balance.
type DueReminder struct {
	Reminder    models.ScheduleReminder
	Schedule    models.PaymentSchedule
	DueDate     time.Time
	Installment *models.ScheduleInstallment
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// EvaluateReminders returns the reminder rules of one schedule that are due
// on the given day. For installment schedules every installment due date is
// checked; otherwise only the schedule due date. A rule with DaysBefore n
// fires on dueDate-n days, so negative n gives overdue chasers. Manual
// one-off rules are never picked up here.
func EvaluateReminders(schedule models.PaymentSchedule, today time.Time) []DueReminder {
	if schedule.Status != models.ScheduleActive {
		return nil
	}

	type dueSource struct {
		date time.Time
		inst *models.ScheduleInstallment
	}
	sources := []dueSource{{date: schedule.DueDate}}
	if schedule.IsInstallment && len(schedule.Installments) > 0 {
		sources = sources[:0]
		for i := range schedule.Installments {
			sources = append(sources, dueSource{date: schedule.Installments[i].DueDate, inst: &schedule.Installments[i]})
		}
	}

	var due []DueReminder
	for _, reminder := range schedule.Reminders {
		if !reminder.IsActive || reminder.ReminderType == models.ReminderTypeManual {
			continue
		}
		for _, src := range sources {
			if sameDay(src.date.AddDate(0, 0, -reminder.DaysBefore), today) {
				due = append(due, DueReminder{Reminder: reminder, Schedule: schedule, DueDate: src.date, Installment: src.inst})
				break
			}
		}
	}
	return due
}

// DefaultReminderTemplate is used when a reminder carries no custom message.
const DefaultReminderTemplate = "{schedule_name} for {student_name} is due on {due_date}. Amount: {amount}"

// RenderReminderMessage substitutes the template placeholders. An empty
// template falls back to the default one.
func RenderReminderMessage(template, scheduleName, studentName string, dueDate time.Time, amount float64) string {
	if template == "" {
		template = DefaultReminderTemplate
	}
	r := strings.NewReplacer(
		"{schedule_name}", scheduleName,
		"{student_name}", studentName,
		"{due_date}", dueDate.Format("02 Jan 2006"),
		"{amount}", fmt.Sprintf("%.2f", amount),
	)
	return r.Replace(template)
}
