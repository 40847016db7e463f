package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/models"
	"gorm.io/gorm"
)

type ExpenseInput struct {
	Category      string  `json:"category" binding:"required"`
	Description   string  `json:"description" binding:"required"`
	VendorName    string  `json:"vendorName"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod"`
	ExpenseDate   string  `json:"expenseDate" binding:"required"`
	Notes         string  `json:"notes"`
}

// CreateExpenseHandler records a school expense with a sequential
// EXP-<school>-<n> number.
func CreateExpenseHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var input ExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	expenseDate, err := time.Parse(dateLayout, input.ExpenseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expenseDate must be formatted as 2006-01-02"})
		return
	}

	method := input.PaymentMethod
	if method == "" {
		method = "cash"
	}

	var expense models.Expense
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var seq int64
		if err := tx.Model(&models.Expense{}).Unscoped().Where("school_id = ?", school).Count(&seq).Error; err != nil {
			return err
		}

		expense = models.Expense{
			SchoolID:      school,
			ExpenseNumber: fmt.Sprintf("EXP-%d-%05d", school, seq+1),
			Category:      input.Category,
			Description:   input.Description,
			VendorName:    input.VendorName,
			Amount:        input.Amount,
			PaymentMethod: method,
			ExpenseDate:   expenseDate,
			Status:        "approved",
			Notes:         input.Notes,
		}
		return tx.Create(&expense).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense"})
		return
	}
	c.JSON(http.StatusCreated, expense)
}

// ListExpensesHandler lists a school's expenses with category and date
// filters.
func ListExpensesHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.Expense{}).Where("school_id = ?", school)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if from, err := parseDate(c.Query("from_date")); err == nil && from != nil {
		query = query.Where("expense_date >= ?", *from)
	}
	if to, err := parseDate(c.Query("to_date")); err == nil && to != nil {
		query = query.Where("expense_date <= ?", *to)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count expenses"})
		return
	}

	var expenses []models.Expense
	if err := query.Scopes(Paginate(c)).Order("expense_date desc, id desc").Find(&expenses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch expenses"})
		return
	}
	if expenses == nil {
		expenses = make([]models.Expense, 0)
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, expenses, totalRows))
}

// DeleteExpenseHandler removes an expense entered in error.
func DeleteExpenseHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	result := config.DB.Where("school_id = ?", school).Delete(&models.Expense{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}

type ExpenseClaimInput struct {
	EmployeeName  string  `json:"employeeName" binding:"required"`
	Category      string  `json:"category" binding:"required"`
	Description   string  `json:"description" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod"`
	ExpenseDate   string  `json:"expenseDate" binding:"required"`
}

// CreateExpenseClaimHandler files a staff reimbursement claim. Claims start
// pending and only reach the ledger once approved.
func CreateExpenseClaimHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var input ExpenseClaimInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	expenseDate, err := time.Parse(dateLayout, input.ExpenseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expenseDate must be formatted as 2006-01-02"})
		return
	}

	method := input.PaymentMethod
	if method == "" {
		method = "reimbursement"
	}

	claim := models.ExpenseClaim{
		SchoolID:      school,
		EmployeeName:  input.EmployeeName,
		Category:      input.Category,
		Description:   input.Description,
		Amount:        input.Amount,
		PaymentMethod: method,
		ExpenseDate:   expenseDate,
		Status:        models.ClaimPending,
	}
	if err := config.DB.Create(&claim).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense claim"})
		return
	}
	c.JSON(http.StatusCreated, claim)
}

// ListExpenseClaimsHandler lists claims, filterable by status.
func ListExpenseClaimsHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.ExpenseClaim{}).Where("school_id = ?", school)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count expense claims"})
		return
	}

	var claims []models.ExpenseClaim
	if err := query.Scopes(Paginate(c)).Order("created_at desc").Find(&claims).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch expense claims"})
		return
	}
	if claims == nil {
		claims = make([]models.ExpenseClaim, 0)
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, claims, totalRows))
}

type ReviewClaimInput struct {
	Decision       string   `json:"decision" binding:"required,oneof=approved rejected paid"`
	ApprovedAmount *float64 `json:"approvedAmount"`
	ReviewNotes    string   `json:"reviewNotes"`
}

// ReviewExpenseClaimHandler moves a claim through its lifecycle. An
// approval may reduce the amount; rejections need no amount. Marking a
// claim paid requires it to be approved first.
func ReviewExpenseClaimHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var input ReviewClaimInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var claim models.ExpenseClaim
	if err := config.DB.Where("school_id = ?", school).First(&claim, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense claim not found"})
		return
	}

	switch input.Decision {
	case models.ClaimApproved:
		if claim.Status != models.ClaimPending {
			c.JSON(http.StatusConflict, gin.H{"error": "Only pending claims can be approved"})
			return
		}
		if input.ApprovedAmount != nil && (*input.ApprovedAmount <= 0 || *input.ApprovedAmount > claim.Amount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "approvedAmount must be positive and not exceed the claimed amount"})
			return
		}
		claim.ApprovedAmount = input.ApprovedAmount
	case models.ClaimRejected:
		if claim.Status != models.ClaimPending {
			c.JSON(http.StatusConflict, gin.H{"error": "Only pending claims can be rejected"})
			return
		}
	case models.ClaimPaid:
		if claim.Status != models.ClaimApproved {
			c.JSON(http.StatusConflict, gin.H{"error": "Only approved claims can be marked paid"})
			return
		}
	}

	claim.Status = input.Decision
	claim.ReviewNotes = input.ReviewNotes
	if err := config.DB.Save(&claim).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update expense claim"})
		return
	}
	c.JSON(http.StatusOK, claim)
}
