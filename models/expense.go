package models

import (
	"time"

	"gorm.io/gorm"
)

// Expense claim review statuses.
const (
	ClaimPending  = "pending"
	ClaimApproved = "approved"
	ClaimRejected = "rejected"
	ClaimPaid     = "paid"
)

// Expense is a general school expense, one of the ledger's expense-side
// sources.
type Expense struct {
	gorm.Model
	SchoolID      uint      `json:"schoolId" gorm:"not null;index"`
	ExpenseNumber string    `json:"expenseNumber" gorm:"not null;index"`
	Category      string    `json:"category" gorm:"not null;index"`
	Description   string    `json:"description" gorm:"not null"`
	VendorName    string    `json:"vendorName"`
	Amount        float64   `json:"amount" gorm:"type:numeric(12,2);not null"`
	PaymentMethod string    `json:"paymentMethod" gorm:"default:'cash'"`
	ExpenseDate   time.Time `json:"expenseDate" gorm:"not null;index"`
	Status        string    `json:"status" gorm:"default:'approved'"`
	Notes         string    `json:"notes"`
}

func (Expense) TableName() string { return "school_expenses" }

// ExpenseClaim is a staff reimbursement request. Only approved or paid
// claims hit the ledger, at the approved amount when one was set.
type ExpenseClaim struct {
	gorm.Model
	SchoolID       uint      `json:"schoolId" gorm:"not null;index"`
	EmployeeName   string    `json:"employeeName" gorm:"not null"`
	Category       string    `json:"category" gorm:"not null"`
	Description    string    `json:"description" gorm:"not null"`
	Amount         float64   `json:"amount" gorm:"type:numeric(12,2);not null"`
	ApprovedAmount *float64  `json:"approvedAmount" gorm:"type:numeric(12,2)"`
	PaymentMethod  string    `json:"paymentMethod" gorm:"default:'reimbursement'"`
	ExpenseDate    time.Time `json:"expenseDate" gorm:"not null;index"`
	Status         string    `json:"status" gorm:"default:'pending';index"`
	ReviewNotes    string    `json:"reviewNotes"`
}

func (ExpenseClaim) TableName() string { return "expense_claims" }
