package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment is an immutable record of money received against one invoice.
// Amount is validated against the invoice due amount inside the same
// transaction that updates the invoice.
type Payment struct {
	gorm.Model
	SchoolID      uint      `json:"schoolId" gorm:"not null;index"`
	InvoiceID     uint      `json:"invoiceId" gorm:"not null;index"`
	StudentID     uint      `json:"studentId" gorm:"not null;index"`
	ReceiptNumber string    `json:"receiptNumber" gorm:"not null;uniqueIndex"`
	Amount        float64   `json:"amount" gorm:"type:numeric(12,2);not null"`
	PaymentMethod string    `json:"paymentMethod" gorm:"not null"`
	Reference     string    `json:"reference"`
	Notes         string    `json:"notes"`
	PaymentDate   time.Time `json:"paymentDate" gorm:"not null;index"`

	Invoice *Invoice `json:"invoice,omitempty" gorm:"foreignKey:InvoiceID"`
	Student *Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

func (Payment) TableName() string { return "fee_payments" }
