package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/internal/fees"
	"github.com/verixence/erp-school-sub008/models"
	"gorm.io/gorm"
)

type GenerateInvoicesInput struct {
	AcademicYear  string `json:"academicYear" binding:"required"`
	BillingPeriod string `json:"billingPeriod" binding:"required"`
	DueDate       string `json:"dueDate"`
	StudentIDs    []uint `json:"studentIds"`
}

// GenerateError reports one student the generator could not bill.
type GenerateError struct {
	StudentID uint   `json:"studentId"`
	Error     string `json:"error"`
}

// GenerateInvoicesHandler creates one invoice per student for a billing
// period. Re-running the same period is safe: students already billed are
// skipped, both by the pre-check and by the unique index on
// (school, student, year, period) under concurrent runs. Each student is
// billed in its own transaction so a failing line item removes only that
// student's invoice.
func GenerateInvoicesHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var input GenerateInvoicesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	dueDate, err := parseDate(input.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dueDate must be formatted as 2006-01-02"})
		return
	}

	students, err := invoiceTargets(school, input.StudentIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not resolve students"})
		return
	}
	if len(students) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No matching students found"})
		return
	}

	var lastSeq int64
	if err := config.DB.Model(&models.Invoice{}).Unscoped().
		Where("school_id = ? AND academic_year = ?", school, input.AcademicYear).
		Count(&lastSeq).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not determine invoice sequence"})
		return
	}

	generated, skipped := 0, 0
	var failures []GenerateError

	for _, student := range students {
		var exists int64
		if err := config.DB.Model(&models.Invoice{}).
			Where("school_id = ? AND student_id = ? AND academic_year = ? AND billing_period = ?",
				school, student.ID, input.AcademicYear, input.BillingPeriod).
			Count(&exists).Error; err != nil {
			failures = append(failures, GenerateError{StudentID: student.ID, Error: "failed to check existing invoices"})
			continue
		}
		if exists > 0 {
			skipped++
			continue
		}

		lastSeq++
		number := fmt.Sprintf("INV-%s-%05d", input.AcademicYear, lastSeq)

		err := config.DB.Transaction(func(tx *gorm.DB) error {
			return generateInvoice(tx, school, student, input, number, dueDate)
		})
		switch {
		case err == nil:
			generated++
		case isUniqueViolation(err):
			// A concurrent run billed this student first.
			lastSeq--
			skipped++
		default:
			lastSeq--
			slog.Warn("Invoice generation failed for student", "student_id", student.ID, "error", err)
			failures = append(failures, GenerateError{StudentID: student.ID, Error: err.Error()})
		}
	}

	if failures == nil {
		failures = make([]GenerateError, 0)
	}
	c.JSON(http.StatusOK, gin.H{
		"studentsProcessed": len(students),
		"generated":         generated,
		"skipped":           skipped,
		"errors":            failures,
	})
}

func invoiceTargets(school uint, studentIDs []uint) ([]models.Student, error) {
	query := config.DB.Where("school_id = ? AND status = ?", school, "active")
	if len(studentIDs) > 0 {
		query = query.Where("id IN ?", studentIDs)
	}
	var students []models.Student
	err := query.Find(&students).Error
	return students, err
}

func generateInvoice(tx *gorm.DB, school uint, student models.Student, input GenerateInvoicesInput, number string, dueDate *time.Time) error {
	var assignments []models.StudentFee
	if err := tx.Joins("JOIN fee_structures ON fee_structures.id = student_fees.fee_structure_id").
		Where("student_fees.student_id = ? AND student_fees.is_active = ? AND fee_structures.academic_year = ?",
			student.ID, true, input.AcademicYear).
		Preload("FeeStructure.FeeCategory").
		Find(&assignments).Error; err != nil {
		return err
	}
	if len(assignments) == 0 {
		return fmt.Errorf("student %s has no active fee assignments for %s", student.FullName(), input.AcademicYear)
	}

	invoice := models.Invoice{
		SchoolID:      school,
		StudentID:     student.ID,
		AcademicYear:  input.AcademicYear,
		BillingPeriod: input.BillingPeriod,
		InvoiceNumber: number,
		DueDate:       dueDate,
		Status:        models.InvoicePending,
	}

	var items []models.InvoiceItem
	for _, assignment := range assignments {
		if assignment.FeeStructure == nil {
			return fmt.Errorf("assignment %d has no fee structure", assignment.ID)
		}
		net, discount := fees.EffectiveAmount(assignment.FeeStructure.Amount, assignment)
		gross := fees.Round2(net + discount)

		description := "Fee"
		if assignment.FeeStructure.FeeCategory != nil {
			description = assignment.FeeStructure.FeeCategory.Name
		}

		items = append(items, models.InvoiceItem{
			StudentFeeID:   assignment.ID,
			FeeStructureID: assignment.FeeStructureID,
			Description:    description,
			UnitAmount:     gross,
			DiscountAmount: discount,
			TotalAmount:    net,
		})

		invoice.TotalAmount = fees.Round2(invoice.TotalAmount + gross)
		invoice.DiscountAmount = fees.Round2(invoice.DiscountAmount + discount)
	}
	invoice.DueAmount = fees.Round2(invoice.TotalAmount - invoice.DiscountAmount)

	if err := tx.Create(&invoice).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].InvoiceID = invoice.ID
	}
	// The transaction rolls the invoice back if any line item fails.
	return tx.Create(&items).Error
}

// ListInvoicesHandler returns the invoices of a school, filterable by
// student, status and period.
func ListInvoicesHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.Invoice{}).Where("school_id = ?", school)
	if student := c.Query("student_id"); student != "" {
		query = query.Where("student_id = ?", student)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if year := c.Query("academic_year"); year != "" {
		query = query.Where("academic_year = ?", year)
	}
	if period := c.Query("billing_period"); period != "" {
		query = query.Where("billing_period = ?", period)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count invoices"})
		return
	}

	var invoices []models.Invoice
	if err := query.Scopes(Paginate(c)).Preload("Student").Order("created_at desc").Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch invoices"})
		return
	}
	if invoices == nil {
		invoices = make([]models.Invoice, 0)
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, invoices, totalRows))
}

// GetInvoiceHandler returns one invoice with its line items and student,
// plus the late fee accrued so far under the structures' policies. The
// accrual is a preview for the cashier screen; it is not written back.
func GetInvoiceHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var invoice models.Invoice
	if err := config.DB.Where("school_id = ?", school).
		Preload("Student").Preload("Items").First(&invoice, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice":        invoice,
		"accruedLateFee": accruedLateFee(invoice, time.Now()),
	})
}

// accruedLateFee sums the per-item late fees of an overdue unpaid invoice.
func accruedLateFee(invoice models.Invoice, now time.Time) float64 {
	if invoice.DueDate == nil || invoice.DueAmount <= 0 {
		return 0
	}
	daysLate := int(now.Sub(*invoice.DueDate).Hours() / 24)
	if daysLate <= 0 {
		return 0
	}

	var total float64
	for _, item := range invoice.Items {
		var structure models.FeeStructure
		if err := config.DB.First(&structure, item.FeeStructureID).Error; err != nil {
			continue
		}
		total = fees.Round2(total + fees.LateFee(structure, item.TotalAmount, daysLate))
	}
	return total
}

// DownloadInvoiceArchiveHandler exports a school's invoices as CSV for the
// accounting office.
func DownloadInvoiceArchiveHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	query := config.DB.Where("school_id = ?", school)
	if year := c.Query("academic_year"); year != "" {
		query = query.Where("academic_year = ?", year)
	}

	var invoices []models.Invoice
	if err := query.Preload("Student").Order("created_at desc").Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices from database"})
		return
	}
	if len(invoices) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No invoices found to export"})
		return
	}

	b := &bytes.Buffer{}
	b.Write([]byte{0xEF, 0xBB, 0xBF}) // BOM for UTF-8

	w := csv.NewWriter(b)
	w.Comma = ';'

	headers := []string{
		"Invoice Number", "Student", "Admission No", "Grade", "Academic Year",
		"Billing Period", "Total", "Discount", "Paid", "Due", "Status", "Due Date", "Created At",
	}
	if err := w.Write(headers); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write CSV header"})
		return
	}

	for _, inv := range invoices {
		var studentName, admissionNo, grade string
		if inv.Student != nil {
			studentName = inv.Student.FullName()
			admissionNo = inv.Student.AdmissionNo
			grade = inv.Student.Grade
		}
		var dueDate string
		if inv.DueDate != nil {
			dueDate = inv.DueDate.Format(dateLayout)
		}

		record := []string{
			inv.InvoiceNumber, studentName, admissionNo, grade, inv.AcademicYear,
			inv.BillingPeriod,
			fmt.Sprintf("%.2f", inv.TotalAmount), fmt.Sprintf("%.2f", inv.DiscountAmount),
			fmt.Sprintf("%.2f", inv.PaidAmount), fmt.Sprintf("%.2f", inv.DueAmount),
			inv.Status, dueDate, inv.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			slog.Warn("Failed to write record to CSV", "invoice_id", inv.ID, "error", err)
			continue
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV data"})
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename=invoices_school_"+strconv.Itoa(int(school))+".csv")
	c.Data(http.StatusOK, "text/csv", b.Bytes())
}
