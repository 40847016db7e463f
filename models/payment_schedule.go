package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// StringList stores a JSON array in a single column (notification channels).
type StringList []string

// Value serializes the list to JSON for storage.
func (l StringList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan reads the JSON column back into the list.
func (l *StringList) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// Contains reports whether the list holds the given channel.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Schedule statuses.
const (
	ScheduleActive   = "active"
	ScheduleInactive = "inactive"
)

// PaymentSchedule is a named collection campaign: which grades owe which fee
// categories by when, with late-fee policy, an optional installment plan and
// reminder rules. Child collections follow full-replace-on-update: an update
// that includes a collection (even empty) deletes and reinserts it, one that
// omits it leaves the rows untouched.
type PaymentSchedule struct {
	gorm.Model
	SchoolID     uint      `json:"schoolId" gorm:"not null;index"`
	Name         string    `json:"name" gorm:"not null"`
	Description  string    `json:"description"`
	AcademicYear string    `json:"academicYear" gorm:"not null;index"`
	DueDate      time.Time `json:"dueDate" gorm:"not null"`
	GraceDays    int       `json:"graceDays"`

	LateFeeEnabled    bool    `json:"lateFeeEnabled"`
	LateFeeType       string  `json:"lateFeeType"`
	LateFeeAmount     float64 `json:"lateFeeAmount" gorm:"type:numeric(12,2)"`
	LateFeePercentage float64 `json:"lateFeePercentage"`
	LateFeeMax        float64 `json:"lateFeeMax" gorm:"type:numeric(12,2)"`

	IsInstallment    bool   `json:"isInstallment"`
	InstallmentCount int    `json:"installmentCount" gorm:"default:1"`
	Status           string `json:"status" gorm:"default:'active';index"`

	LastReminderAt *time.Time `json:"lastReminderAt"`

	// Statistics recomputed after every materialization and payment.
	TotalStudents  int     `json:"totalStudents"`
	PaidCount      int     `json:"paidCount"`
	PartialCount   int     `json:"partialCount"`
	PendingCount   int     `json:"pendingCount"`
	TotalDue       float64 `json:"totalDue" gorm:"type:numeric(14,2)"`
	TotalCollected float64 `json:"totalCollected" gorm:"type:numeric(14,2)"`

	Grades       []ScheduleGrade       `json:"grades,omitempty" gorm:"foreignKey:ScheduleID"`
	Items        []ScheduleItem        `json:"items,omitempty" gorm:"foreignKey:ScheduleID"`
	Installments []ScheduleInstallment `json:"installments,omitempty" gorm:"foreignKey:ScheduleID"`
	Reminders    []ScheduleReminder    `json:"reminders,omitempty" gorm:"foreignKey:ScheduleID"`
}

func (PaymentSchedule) TableName() string { return "payment_schedules" }

// ScheduleGrade marks one grade as covered by a schedule.
type ScheduleGrade struct {
	gorm.Model
	ScheduleID uint   `json:"scheduleId" gorm:"not null;index"`
	Grade      string `json:"grade" gorm:"not null"`
}

func (ScheduleGrade) TableName() string { return "payment_schedule_grades" }

// ScheduleItem includes one fee category in a schedule, optionally
// overriding the structure amount.
type ScheduleItem struct {
	gorm.Model
	ScheduleID     uint     `json:"scheduleId" gorm:"not null;index"`
	FeeCategoryID  uint     `json:"feeCategoryId" gorm:"not null"`
	AmountOverride *float64 `json:"amountOverride" gorm:"type:numeric(12,2)"`
	IsMandatory    bool     `json:"isMandatory" gorm:"default:true"`

	FeeCategory *FeeCategory `json:"feeCategory,omitempty" gorm:"foreignKey:FeeCategoryID"`
}

func (ScheduleItem) TableName() string { return "payment_schedule_items" }

// ScheduleInstallment splits the schedule total across ordered sub-due-dates.
// Exactly one of Percentage, FixedAmount or Formula is set; the planner
// rejects plans that mix forms across rows.
type ScheduleInstallment struct {
	gorm.Model
	ScheduleID  uint      `json:"scheduleId" gorm:"not null;index"`
	Number      int       `json:"number" gorm:"not null"`
	Name        string    `json:"name"`
	DueDate     time.Time `json:"dueDate" gorm:"not null"`
	Percentage  *float64  `json:"percentage"`
	FixedAmount *float64  `json:"fixedAmount" gorm:"type:numeric(12,2)"`
	Formula     string    `json:"formula"`
	GraceDays   int       `json:"graceDays"`
}

func (ScheduleInstallment) TableName() string { return "payment_schedule_installments" }

// ReminderTypeManual marks the one-off rule behind the send-reminder
// endpoint. The daily evaluation skips it; it exists so manual sends share
// the per-day dedup log.
const ReminderTypeManual = "manual"

// ScheduleReminder is a rule evaluated daily: fire when a due date minus
// DaysBefore lands on today. Negative DaysBefore means after the due date
// (overdue chasers).
type ScheduleReminder struct {
	gorm.Model
	ScheduleID      uint       `json:"scheduleId" gorm:"not null;index"`
	ReminderType    string     `json:"reminderType" gorm:"not null"`
	DaysBefore      int        `json:"daysBefore"`
	Channels        StringList `json:"channels" gorm:"type:text"`
	MessageTemplate string     `json:"messageTemplate"`
	IsActive        bool       `json:"isActive" gorm:"default:true"`
}

func (ScheduleReminder) TableName() string { return "payment_schedule_reminders" }
