package models

import (
	"time"

	"gorm.io/gorm"
)

// Reminder log statuses.
const (
	ReminderSent   = "sent"
	ReminderFailed = "failed"
)

// ReminderLog records one dispatch attempt per (reminder, student, day).
// Append-only; the unique index doubles as the idempotency guard for
// concurrent or retried batch runs.
type ReminderLog struct {
	gorm.Model
	SchoolID   uint `json:"schoolId" gorm:"not null;index"`
	ReminderID uint `json:"reminderId" gorm:"not null;uniqueIndex:uniq_reminder_student_day"`
	ScheduleID uint `json:"scheduleId" gorm:"not null;index"`
	StudentID  uint `json:"studentId" gorm:"not null;uniqueIndex:uniq_reminder_student_day"`
	GuardianID uint `json:"guardianId"`

	// SentOn is the calendar day (2006-01-02) the batch ran.
	SentOn       string     `json:"sentOn" gorm:"size:10;not null;uniqueIndex:uniq_reminder_student_day"`
	SentAt       time.Time  `json:"sentAt" gorm:"not null"`
	Channels     StringList `json:"channels" gorm:"type:text"`
	Status       string     `json:"status" gorm:"not null"`
	ErrorMessage string     `json:"errorMessage"`
}

func (ReminderLog) TableName() string { return "reminder_logs" }
