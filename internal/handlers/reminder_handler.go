package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/internal/fees"
	"github.com/verixence/erp-school-sub008/internal/notify"
	"github.com/verixence/erp-school-sub008/models"
)

// newSenders builds the delivery channel registry. Tests swap this out to
// observe dispatches without Redis.
var newSenders = func() map[string]notify.Sender {
	return notify.Senders(config.DB, config.RDB)
}

const senderTimeout = 10 * time.Second

// ProcessFeeRemindersHandler is the daily cron entry point. It walks every
// active schedule across all schools, finds the reminder rules whose due
// date lands on today and notifies the guardians of students that still owe
// money. The (reminder, student, day) unique index makes re-runs and
// concurrent runs idempotent: a student is notified at most once per rule
// per day.
func ProcessFeeRemindersHandler(c *gin.Context) {
	today := time.Now()
	senders := newSenders()

	var schedules []models.PaymentSchedule
	if err := config.DB.Where("status = ?", models.ScheduleActive).
		Preload("Installments").Preload("Reminders").
		Find(&schedules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch payment schedules"})
		return
	}

	remindersFound, sent, failed, skipped := 0, 0, 0, 0
	for _, schedule := range schedules {
		due := fees.EvaluateReminders(schedule, today)
		remindersFound += len(due)

		for _, d := range due {
			s, f, sk := dispatchReminder(senders, d, today)
			sent += s
			failed += f
			skipped += sk
		}

		if len(due) > 0 {
			now := time.Now()
			if err := config.DB.Model(&models.PaymentSchedule{}).
				Where("id = ?", schedule.ID).
				Update("last_reminder_at", now).Error; err != nil {
				slog.Warn("Failed to stamp last reminder time", "schedule_id", schedule.ID, "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"schedules_processed": len(schedules),
		"reminders_found":     remindersFound,
		"sent":                sent,
		"failed":              failed,
		"skipped":             skipped,
	})
}

// dispatchReminder notifies every student who still owes money under the
// schedule of one due rule. Channel failures are isolated per student and
// per channel: an unreachable push provider still leaves the in-app
// notification delivered and the run moving.
func dispatchReminder(senders map[string]notify.Sender, due fees.DueReminder, today time.Time) (sent, failed, skipped int) {
	var rows []models.PaymentStatusRow
	if err := config.DB.Where("schedule_id = ? AND balance_amount > 0", due.Schedule.ID).
		Preload("Student").Find(&rows).Error; err != nil {
		slog.Error("Could not fetch unpaid students", "schedule_id", due.Schedule.ID, "error", err)
		return 0, 0, 0
	}

	sentOn := today.Format(dateLayout)
	for _, row := range rows {
		if row.Student == nil {
			continue
		}

		var existing int64
		if err := config.DB.Model(&models.ReminderLog{}).
			Where("reminder_id = ? AND student_id = ? AND sent_on = ?", due.Reminder.ID, row.StudentID, sentOn).
			Count(&existing).Error; err != nil {
			slog.Error("Reminder dedup check failed", "student_id", row.StudentID, "error", err)
			failed++
			continue
		}
		if existing > 0 {
			skipped++
			continue
		}

		// Installment reminders quote that installment's share of the
		// demand, never more than what is still owed.
		amount := row.BalanceAmount
		if due.Installment != nil {
			if share, err := fees.InstallmentAmount(*due.Installment, row.DemandAmount, 0); err == nil && share < amount {
				amount = share
			}
		}

		message := fees.RenderReminderMessage(due.Reminder.MessageTemplate,
			due.Schedule.Name, row.Student.FullName(), due.DueDate, amount)

		delivered, channelErrs := deliverToChannels(senders, due.Reminder.Channels, notify.Message{
			SchoolID:    row.SchoolID,
			GuardianID:  row.Student.GuardianUserID,
			PushToken:   row.Student.ExpoPushToken,
			Title:       "Fee Payment Reminder",
			Body:        message,
			Type:        "fee_reminder",
			RelatedType: "payment_schedule",
			RelatedID:   due.Schedule.ID,
			Data: map[string]interface{}{
				"scheduleId": due.Schedule.ID,
				"dueDate":    due.DueDate.Format(dateLayout),
				"amount":     amount,
			},
		})

		status := models.ReminderSent
		if !delivered {
			status = models.ReminderFailed
		}

		log := models.ReminderLog{
			SchoolID:     row.SchoolID,
			ReminderID:   due.Reminder.ID,
			ScheduleID:   due.Schedule.ID,
			StudentID:    row.StudentID,
			GuardianID:   row.Student.GuardianUserID,
			SentOn:       sentOn,
			SentAt:       time.Now(),
			Channels:     due.Reminder.Channels,
			Status:       status,
			ErrorMessage: strings.Join(channelErrs, "; "),
		}
		if err := config.DB.Create(&log).Error; err != nil {
			if isUniqueViolation(err) {
				// A concurrent run already handled this student today.
				skipped++
				continue
			}
			slog.Error("Failed to write reminder log", "student_id", row.StudentID, "error", err)
			failed++
			continue
		}

		if delivered {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed, skipped
}

// deliverToChannels tries every requested channel and reports success when
// at least one of them accepted the message.
func deliverToChannels(senders map[string]notify.Sender, channels models.StringList, msg notify.Message) (bool, []string) {
	if len(channels) == 0 {
		channels = models.StringList{notify.ChannelInApp}
	}

	delivered := false
	var errs []string
	for _, channel := range channels {
		sender, ok := senders[channel]
		if !ok {
			errs = append(errs, channel+": unknown channel")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), senderTimeout)
		err := sender.Send(ctx, msg)
		cancel()
		if err != nil {
			slog.Warn("Reminder channel delivery failed", "channel", channel, "error", err)
			errs = append(errs, channel+": "+err.Error())
			continue
		}
		delivered = true
	}
	return delivered, errs
}

type SendReminderInput struct {
	Channels []string `json:"channels"`
	Message  string   `json:"message"`
}

// SendScheduleReminderHandler lets an admin push an immediate reminder for
// one schedule without waiting for the daily cron. Same per-day dedup as
// the batch: students already reminded today by the same rule are skipped.
func SendScheduleReminderHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var input SendReminderInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var schedule models.PaymentSchedule
	if err := config.DB.Where("school_id = ?", school).Preload("Reminders").First(&schedule, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment schedule not found"})
		return
	}

	reminder := models.ScheduleReminder{
		ScheduleID:      schedule.ID,
		ReminderType:    models.ReminderTypeManual,
		Channels:        models.StringList(input.Channels),
		MessageTemplate: input.Message,
		IsActive:        true,
	}
	// Persisted so the reminder log can reference it and dedup manual
	// re-sends within the day. The daily evaluation skips manual rules.
	var existing models.ScheduleReminder
	err := config.DB.Where("schedule_id = ? AND reminder_type = ?", schedule.ID, models.ReminderTypeManual).First(&existing).Error
	if err == nil {
		existing.Channels = reminder.Channels
		existing.MessageTemplate = reminder.MessageTemplate
		if err := config.DB.Save(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare reminder"})
			return
		}
		reminder = existing
	} else {
		if err := config.DB.Create(&reminder).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare reminder"})
			return
		}
	}

	today := time.Now()
	sent, failed, skipped := dispatchReminder(newSenders(), fees.DueReminder{
		Reminder: reminder,
		Schedule: schedule,
		DueDate:  schedule.DueDate,
	}, today)

	now := time.Now()
	if err := config.DB.Model(&models.PaymentSchedule{}).Where("id = ?", schedule.ID).
		Update("last_reminder_at", now).Error; err != nil {
		slog.Warn("Failed to stamp last reminder time", "schedule_id", schedule.ID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"sent": sent, "failed": failed, "skipped": skipped})
}

// ListReminderLogsHandler returns the dispatch history of one schedule.
func ListReminderLogsHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.ReminderLog{}).Where("school_id = ? AND schedule_id = ?", school, id)

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count reminder logs"})
		return
	}

	var logs []models.ReminderLog
	if err := query.Scopes(Paginate(c)).Order("sent_at desc").Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch reminder logs"})
		return
	}
	if logs == nil {
		logs = make([]models.ReminderLog, 0)
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, logs, totalRows))
}
