package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
	"github.com/verixence/erp-school-sub008/internal/fees"
	"github.com/verixence/erp-school-sub008/models"
	"gorm.io/gorm"
)

// The three ledger sources. Fee payments are the income side; expenses and
// approved staff claims are the expense side.

type paymentSource struct{}

func (paymentSource) Fetch(db *gorm.DB, schoolID uint) ([]fees.Transaction, error) {
	var payments []models.Payment
	if err := db.Where("school_id = ?", schoolID).Preload("Student").Find(&payments).Error; err != nil {
		return nil, err
	}

	transactions := make([]fees.Transaction, 0, len(payments))
	for _, p := range payments {
		description := "Fee payment"
		if p.Student != nil {
			description = "Fee payment from " + p.Student.FullName()
		}
		transactions = append(transactions, fees.Transaction{
			ID:            p.ID,
			Date:          p.PaymentDate.Format(dateLayout),
			Type:          "income",
			Category:      "Fee Payment",
			Description:   description,
			Reference:     p.ReceiptNumber,
			PaymentMethod: p.PaymentMethod,
			Amount:        p.Amount,
			Credit:        p.Amount,
			Status:        "completed",
			Notes:         p.Notes,
		})
	}
	return transactions, nil
}

type expenseSource struct{}

func (expenseSource) Fetch(db *gorm.DB, schoolID uint) ([]fees.Transaction, error) {
	var expenses []models.Expense
	if err := db.Where("school_id = ?", schoolID).Find(&expenses).Error; err != nil {
		return nil, err
	}

	transactions := make([]fees.Transaction, 0, len(expenses))
	for _, e := range expenses {
		transactions = append(transactions, fees.Transaction{
			ID:            e.ID,
			Date:          e.ExpenseDate.Format(dateLayout),
			Type:          "expense",
			Category:      e.Category,
			Description:   e.Description,
			Reference:     e.ExpenseNumber,
			PaymentMethod: e.PaymentMethod,
			Amount:        e.Amount,
			Debit:         e.Amount,
			Status:        e.Status,
			Notes:         e.Notes,
		})
	}
	return transactions, nil
}

type claimSource struct{}

func (claimSource) Fetch(db *gorm.DB, schoolID uint) ([]fees.Transaction, error) {
	var claims []models.ExpenseClaim
	if err := db.Where("school_id = ? AND status IN ?", schoolID,
		[]string{models.ClaimApproved, models.ClaimPaid}).Find(&claims).Error; err != nil {
		return nil, err
	}

	transactions := make([]fees.Transaction, 0, len(claims))
	for _, cl := range claims {
		amount := cl.Amount
		if cl.ApprovedAmount != nil {
			amount = *cl.ApprovedAmount
		}
		transactions = append(transactions, fees.Transaction{
			ID:            cl.ID,
			Date:          cl.ExpenseDate.Format(dateLayout),
			Type:          "expense",
			Category:      cl.Category,
			Description:   "Expense claim: " + cl.Description + " (" + cl.EmployeeName + ")",
			PaymentMethod: cl.PaymentMethod,
			Amount:        amount,
			Debit:         amount,
			Status:        cl.Status,
			Notes:         cl.ReviewNotes,
		})
	}
	return transactions, nil
}

var ledgerSources = []fees.LedgerSource{paymentSource{}, expenseSource{}, claimSource{}}

// ReportTransactionsHandler merges fee payments, expenses and approved
// claims into one reconciled ledger with a running balance over the
// filtered view, paginated newest-first.
func ReportTransactionsHandler(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	fromDate, err := parseDate(c.Query("from_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from_date must be formatted as 2006-01-02"})
		return
	}
	toDate, err := parseDate(c.Query("to_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to_date must be formatted as 2006-01-02"})
		return
	}

	filters := fees.LedgerFilters{
		FromDate:      fromDate,
		ToDate:        toDate,
		Type:          c.Query("type"),
		Category:      c.Query("category"),
		PaymentMethod: c.Query("payment_method"),
		Search:        c.Query("search"),
	}

	transactions, summary, err := fees.Reconcile(config.DB, school, ledgerSources, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile transactions: " + err.Error()})
		return
	}

	// The balance fold needs the full filtered set, so pagination slices
	// afterwards instead of in SQL.
	page, pageSize := pageParams(c)
	start := (page - 1) * pageSize
	if start > len(transactions) {
		start = len(transactions)
	}
	end := start + pageSize
	if end > len(transactions) {
		end = len(transactions)
	}

	response := CreatePaginatedResponse(c, transactions[start:end], int64(len(transactions)))
	c.JSON(http.StatusOK, gin.H{
		"data":        response.Data,
		"totalRows":   response.TotalRows,
		"totalPages":  response.TotalPages,
		"currentPage": response.CurrentPage,
		"pageSize":    response.PageSize,
		"summary":     summary,
	})
}
