package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/divan/num2words"
	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/internal/fees"
	"github.com/verixence/erp-school-sub008/models"
	"gorm.io/gorm"
)

type ApplyPaymentInput struct {
	InvoiceID     uint    `json:"invoiceId" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod" binding:"required"`
	Reference     string  `json:"reference"`
	Notes         string  `json:"notes"`
	PaymentDate   string  `json:"paymentDate"`
}

var (
	errInvoiceSettled = errors.New("invoice already settled")
	errOverpayment    = errors.New("amount exceeds due amount")
)

// ApplyPaymentHandler records a payment against an invoice. The invoice
// update is guarded by `due_amount >= amount`, so two cashiers racing on the
// same invoice cannot push it negative: the loser's update matches zero rows
// and the whole transaction rolls back, leaving the invoice untouched.
func ApplyPaymentHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var input ApplyPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	paymentDate := time.Now()
	if input.PaymentDate != "" {
		parsed, err := parseDate(input.PaymentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paymentDate must be formatted as 2006-01-02"})
			return
		}
		paymentDate = *parsed
	}

	var payment models.Payment
	var invoice models.Invoice
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("school_id = ?", school).First(&invoice, input.InvoiceID).Error; err != nil {
			return err
		}

		if invoice.Status == models.InvoicePaid || invoice.DueAmount <= 0.005 {
			return errInvoiceSettled
		}
		if input.Amount > invoice.DueAmount+0.005 {
			return errOverpayment
		}

		affected, err := settleInvoiceAmounts(tx, invoice.ID, input.Amount)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errOverpayment
		}

		var seq int64
		if err := tx.Model(&models.Payment{}).Unscoped().Where("school_id = ?", school).Count(&seq).Error; err != nil {
			return err
		}

		payment = models.Payment{
			SchoolID:      school,
			InvoiceID:     invoice.ID,
			StudentID:     invoice.StudentID,
			ReceiptNumber: fmt.Sprintf("RCP-%d-%06d", school, seq+1),
			Amount:        input.Amount,
			PaymentMethod: input.PaymentMethod,
			Reference:     input.Reference,
			Notes:         input.Notes,
			PaymentDate:   paymentDate,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if err := allocateToSchedules(tx, school, invoice.ID, invoice.StudentID, input.Amount); err != nil {
			return err
		}
		return tx.First(&invoice, invoice.ID).Error
	})

	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"payment":       payment,
			"invoice":       invoice,
			"amountInWords": amountInWords(payment.Amount),
		})
	case errors.Is(err, errInvoiceSettled):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, errOverpayment):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply payment: " + err.Error()})
	}
}

// settleInvoiceAmounts moves a payment onto the invoice row in a single
// statement. The status is derived in SQL from the row's own due amount, not
// from the caller's earlier read, so a payment that raced in between read and
// write still leaves the stored status matching the stored amounts.
func settleInvoiceAmounts(tx *gorm.DB, invoiceID uint, amount float64) (int64, error) {
	result := tx.Model(&models.Invoice{}).
		Where("id = ? AND due_amount >= ?", invoiceID, amount-0.005).
		Updates(map[string]interface{}{
			"paid_amount": gorm.Expr("paid_amount + ?", amount),
			"due_amount":  gorm.Expr("due_amount - ?", amount),
			"status": gorm.Expr("CASE WHEN due_amount - ? <= 0.005 THEN ? ELSE ? END",
				amount, models.InvoicePaid, models.InvoicePartial),
		})
	return result.RowsAffected, result.Error
}

// allocateToSchedules distributes a received amount across the student's
// open schedule status rows, oldest due date first. Only schedules that
// cover a fee category billed on the invoice take part; a tuition payment
// must not clear a transport schedule's balance. Schedules observe payments
// this way without owning the invoice.
func allocateToSchedules(tx *gorm.DB, school, invoiceID, studentID uint, amount float64) error {
	var rows []models.PaymentStatusRow
	if err := tx.Joins("JOIN payment_schedules ON payment_schedules.id = schedule_payment_status.schedule_id").
		Where("schedule_payment_status.school_id = ? AND schedule_payment_status.student_id = ? AND schedule_payment_status.balance_amount > 0", school, studentID).
		Where("payment_schedules.status = ?", models.ScheduleActive).
		Where(`EXISTS (
			SELECT 1 FROM payment_schedule_items
			JOIN fee_invoice_items ON fee_invoice_items.invoice_id = ?
			JOIN fee_structures ON fee_structures.id = fee_invoice_items.fee_structure_id
			WHERE payment_schedule_items.schedule_id = payment_schedules.id
			AND payment_schedule_items.fee_category_id = fee_structures.fee_category_id
			AND payment_schedule_items.deleted_at IS NULL
			AND fee_invoice_items.deleted_at IS NULL
		)`, invoiceID).
		Order("payment_schedules.due_date, schedule_payment_status.id").
		Find(&rows).Error; err != nil {
		return err
	}

	remaining := amount
	touched := make(map[uint]bool)
	for i := range rows {
		if remaining <= 0.005 {
			break
		}
		applied := math.Min(remaining, rows[i].BalanceAmount)

		rows[i].PaidAmount = fees.Round2(rows[i].PaidAmount + applied)
		rows[i].BalanceAmount = fees.Round2(rows[i].BalanceAmount - applied)
		rows[i].Status = fees.DeriveStatus(rows[i].PaidAmount, rows[i].BalanceAmount)
		if err := tx.Model(&models.PaymentStatusRow{}).Where("id = ?", rows[i].ID).
			Updates(map[string]interface{}{
				"paid_amount":    rows[i].PaidAmount,
				"balance_amount": rows[i].BalanceAmount,
				"status":         rows[i].Status,
			}).Error; err != nil {
			return err
		}

		touched[rows[i].ScheduleID] = true
		remaining = fees.Round2(remaining - applied)
	}

	for scheduleID := range touched {
		if err := recomputeScheduleStats(tx, scheduleID); err != nil {
			return err
		}
	}
	return nil
}

// amountInWords renders a money amount for the printed receipt.
func amountInWords(amount float64) string {
	whole := int(amount)
	cents := int(math.Round((amount - float64(whole)) * 100))
	words := num2words.Convert(whole)
	if cents > 0 {
		return fmt.Sprintf("%s and %02d/100", words, cents)
	}
	return words
}

// ListPaymentsHandler returns the payment history of a school, filterable
// by student and invoice.
func ListPaymentsHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.Payment{}).Where("school_id = ?", school)
	if student := c.Query("student_id"); student != "" {
		query = query.Where("student_id = ?", student)
	}
	if invoice := c.Query("invoice_id"); invoice != "" {
		query = query.Where("invoice_id = ?", invoice)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count payments"})
		return
	}

	var payments []models.Payment
	if err := query.Scopes(Paginate(c)).Preload("Student").Order("payment_date desc, id desc").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch payments"})
		return
	}
	if payments == nil {
		payments = make([]models.Payment, 0)
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, payments, totalRows))
}

// GetPaymentReceiptHandler returns one payment with everything the printed
// receipt needs.
func GetPaymentReceiptHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var payment models.Payment
	if err := config.DB.Where("school_id = ?", school).
		Preload("Student").Preload("Invoice").First(&payment, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment":       payment,
		"amountInWords": amountInWords(payment.Amount),
	})
}
