package models

import (
	"time"

	"gorm.io/gorm"
)

// Invoice statuses, a pure function of the amounts: due == total-discount is
// pending, 0 < due < total-discount is partial, due == 0 is paid.
const (
	InvoicePending = "pending"
	InvoicePartial = "partial"
	InvoicePaid    = "paid"
)

// Invoice is the billing-period bill for one student. At all times
// PaidAmount + DueAmount == TotalAmount - DiscountAmount. Created once by
// the generator, mutated only by the payment applier, never deleted once a
// payment exists.
type Invoice struct {
	gorm.Model
	SchoolID      uint   `json:"schoolId" gorm:"not null;uniqueIndex:uniq_invoice_period;uniqueIndex:uniq_invoice_number"`
	StudentID     uint   `json:"studentId" gorm:"not null;uniqueIndex:uniq_invoice_period"`
	AcademicYear  string `json:"academicYear" gorm:"not null;uniqueIndex:uniq_invoice_period"`
	BillingPeriod string `json:"billingPeriod" gorm:"not null;uniqueIndex:uniq_invoice_period"`
	InvoiceNumber string `json:"invoiceNumber" gorm:"not null;uniqueIndex:uniq_invoice_number"`

	TotalAmount    float64    `json:"totalAmount" gorm:"type:numeric(12,2);not null"`
	DiscountAmount float64    `json:"discountAmount" gorm:"type:numeric(12,2)"`
	LateFeeAmount  float64    `json:"lateFeeAmount" gorm:"type:numeric(12,2)"`
	PaidAmount     float64    `json:"paidAmount" gorm:"type:numeric(12,2)"`
	DueAmount      float64    `json:"dueAmount" gorm:"type:numeric(12,2)"`
	DueDate        *time.Time `json:"dueDate"`
	Status         string     `json:"status" gorm:"default:'pending';index"`

	Student *Student      `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Items   []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
}

func (Invoice) TableName() string { return "fee_invoices" }

// InvoiceItem is one line of an invoice, tied to the assignment and the
// structure it was billed from. Items live and die with their invoice.
type InvoiceItem struct {
	gorm.Model
	InvoiceID      uint    `json:"invoiceId" gorm:"not null;index"`
	StudentFeeID   uint    `json:"studentFeeId" gorm:"not null"`
	FeeStructureID uint    `json:"feeStructureId" gorm:"not null;index"`
	Description    string  `json:"description"`
	UnitAmount     float64 `json:"unitAmount" gorm:"type:numeric(12,2);not null"`
	DiscountAmount float64 `json:"discountAmount" gorm:"type:numeric(12,2)"`
	TotalAmount    float64 `json:"totalAmount" gorm:"type:numeric(12,2);not null"`
}

func (InvoiceItem) TableName() string { return "fee_invoice_items" }
