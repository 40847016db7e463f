package models

import "gorm.io/gorm"

// PaymentStatusRow is materialized per (schedule, student) when a schedule is
// created or its coverage changes. It is the unit the reminder dispatcher
// queries: students with BalanceAmount > 0 still owe money under that
// schedule. Materialization is insert-if-absent; rows that already carry
// payments are never overwritten.
type PaymentStatusRow struct {
	gorm.Model
	SchoolID   uint `json:"schoolId" gorm:"not null;index"`
	ScheduleID uint `json:"scheduleId" gorm:"not null;uniqueIndex:uniq_schedule_student"`
	StudentID  uint `json:"studentId" gorm:"not null;uniqueIndex:uniq_schedule_student"`

	DemandAmount  float64 `json:"demandAmount" gorm:"type:numeric(12,2);not null"`
	PaidAmount    float64 `json:"paidAmount" gorm:"type:numeric(12,2)"`
	BalanceAmount float64 `json:"balanceAmount" gorm:"type:numeric(12,2);index"`
	Status        string  `json:"status" gorm:"default:'pending';index"`

	Student  *Student         `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Schedule *PaymentSchedule `json:"schedule,omitempty" gorm:"foreignKey:ScheduleID"`
}

func (PaymentStatusRow) TableName() string { return "schedule_payment_status" }
