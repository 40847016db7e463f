package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verixence/erp-school-sub008/models"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEvaluateReminders(t *testing.T) {
	schedule := models.PaymentSchedule{
		Status:  models.ScheduleActive,
		DueDate: day("2026-04-10"),
		Reminders: []models.ScheduleReminder{
			{ReminderType: "before_due", DaysBefore: 3, IsActive: true},
			{ReminderType: "on_due", DaysBefore: 0, IsActive: true},
			{ReminderType: "overdue", DaysBefore: -7, IsActive: true},
			{ReminderType: "disabled", DaysBefore: 3, IsActive: false},
			{ReminderType: models.ReminderTypeManual, DaysBefore: 3, IsActive: true},
		},
	}

	// The manual one-off rule never rides along with the scheduled ones.
	due := EvaluateReminders(schedule, day("2026-04-07"))
	require.Len(t, due, 1)
	assert.Equal(t, "before_due", due[0].Reminder.ReminderType)
	assert.Equal(t, day("2026-04-10"), due[0].DueDate)
	assert.Nil(t, due[0].Installment)

	due = EvaluateReminders(schedule, day("2026-04-10"))
	require.Len(t, due, 1)
	assert.Equal(t, "on_due", due[0].Reminder.ReminderType)

	due = EvaluateReminders(schedule, day("2026-04-17"))
	require.Len(t, due, 1)
	assert.Equal(t, "overdue", due[0].Reminder.ReminderType)

	assert.Empty(t, EvaluateReminders(schedule, day("2026-04-09")))

	schedule.Status = models.ScheduleInactive
	assert.Empty(t, EvaluateReminders(schedule, day("2026-04-07")))
}

func TestEvaluateRemindersInstallments(t *testing.T) {
	schedule := models.PaymentSchedule{
		Status:        models.ScheduleActive,
		IsInstallment: true,
		DueDate:       day("2026-04-10"),
		Installments: []models.ScheduleInstallment{
			{Number: 1, DueDate: day("2026-05-01")},
			{Number: 2, DueDate: day("2026-08-01")},
		},
		Reminders: []models.ScheduleReminder{
			{ReminderType: "before_due", DaysBefore: 2, IsActive: true},
		},
	}

	// The schedule-level due date is ignored for installment plans.
	assert.Empty(t, EvaluateReminders(schedule, day("2026-04-08")))

	due := EvaluateReminders(schedule, day("2026-04-29"))
	require.Len(t, due, 1)
	assert.Equal(t, day("2026-05-01"), due[0].DueDate)
	require.NotNil(t, due[0].Installment)
	assert.Equal(t, 1, due[0].Installment.Number)

	due = EvaluateReminders(schedule, day("2026-07-30"))
	require.Len(t, due, 1)
	assert.Equal(t, day("2026-08-01"), due[0].DueDate)
	require.NotNil(t, due[0].Installment)
	assert.Equal(t, 2, due[0].Installment.Number)
}

func TestRenderReminderMessage(t *testing.T) {
	got := RenderReminderMessage("", "Term 1 Fees", "Asha Rao", day("2026-04-10"), 1250.5)
	assert.Equal(t, "Term 1 Fees for Asha Rao is due on 10 Apr 2026. Amount: 1250.50", got)

	got = RenderReminderMessage("Dear parent of {student_name}, {amount} pending.", "x", "Asha Rao", day("2026-04-10"), 100)
	assert.Equal(t, "Dear parent of Asha Rao, 100.00 pending.", got)
}
