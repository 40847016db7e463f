package models

import (
	"time"

	"gorm.io/gorm"
)

// StudentFee binds a student to a fee structure with per-student discount
// overrides. The effective billed amount is computed in internal/fees.
type StudentFee struct {
	gorm.Model
	StudentID      uint `json:"studentId" gorm:"not null;uniqueIndex:uniq_student_structure"`
	FeeStructureID uint `json:"feeStructureId" gorm:"not null;uniqueIndex:uniq_student_structure"`

	DiscountPercentage float64  `json:"discountPercentage"`
	DiscountAmount     float64  `json:"discountAmount" gorm:"type:numeric(12,2)"`
	DiscountReason     string   `json:"discountReason"`
	CustomAmount       *float64 `json:"customAmount" gorm:"type:numeric(12,2)"`
	IsActive           bool     `json:"isActive" gorm:"default:true;index"`
	AssignedAt         time.Time `json:"assignedAt"`

	Student      *Student      `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	FeeStructure *FeeStructure `json:"feeStructure,omitempty" gorm:"foreignKey:FeeStructureID"`
}

func (StudentFee) TableName() string { return "student_fees" }
