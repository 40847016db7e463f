package models

import "gorm.io/gorm"

// Late fee policy types.
const (
	LateFeeFixed      = "fixed"
	LateFeePercentage = "percentage"
)

// FeeStructure prices a fee category for one academic year and grade.
// A structure is immutable once an invoice item references it.
type FeeStructure struct {
	gorm.Model
	SchoolID      uint    `json:"schoolId" gorm:"not null;index"`
	FeeCategoryID uint    `json:"feeCategoryId" gorm:"not null;index"`
	AcademicYear  string  `json:"academicYear" gorm:"not null;index"`
	Grade         string  `json:"grade" gorm:"not null;index"`
	Amount        float64 `json:"amount" gorm:"type:numeric(12,2);not null"`
	// PaymentFrequency: monthly, quarterly, annual, one_time.
	PaymentFrequency string `json:"paymentFrequency" gorm:"default:'annual'"`

	LateFeeType       string  `json:"lateFeeType"`
	LateFeeAmount     float64 `json:"lateFeeAmount" gorm:"type:numeric(12,2)"`
	LateFeePercentage float64 `json:"lateFeePercentage"`
	LateFeeMax        float64 `json:"lateFeeMax" gorm:"type:numeric(12,2)"`
	LateFeeGraceDays  int     `json:"lateFeeGraceDays"`

	FeeCategory *FeeCategory `json:"feeCategory,omitempty" gorm:"foreignKey:FeeCategoryID"`
}

func (FeeStructure) TableName() string { return "fee_structures" }
