package fees

import (
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Transaction is the derived ledger row: every income and expense record
// mapped into one shape, with a running balance filled in by Reconcile.
type Transaction struct {
	ID            uint    `json:"id"`
	Date          string  `json:"date"` // 2006-01-02
	Type          string  `json:"type"` // income | expense
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Reference     string  `json:"reference"`
	PaymentMethod string  `json:"paymentMethod"`
	Amount        float64 `json:"amount"`
	Debit         float64 `json:"debit"`
	Credit        float64 `json:"credit"`
	Status        string  `json:"status"`
	Notes         string  `json:"notes,omitempty"`
	Balance       float64 `json:"balance"`
}

// LedgerFilters narrow the reconciled view. The running balance is computed
// over the filtered subset: it is the balance of what is shown, not the
// global ledger balance.
type LedgerFilters struct {
	FromDate      *time.Time
	ToDate        *time.Time
	Type          string // income, expense or empty for both
	Category      string // substring match
	PaymentMethod string
	Search        string // over description and reference
}

// LedgerSource is one backing table mapped into ledger transactions. Adding
// a fourth source never touches the reconciliation itself.
type LedgerSource interface {
	Fetch(db *gorm.DB, schoolID uint) ([]Transaction, error)
}

// CategorySummary aggregates one category's two directions.
type CategorySummary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// LedgerSummary aggregates the filtered transaction set.
type LedgerSummary struct {
	TotalTransactions int                        `json:"totalTransactions"`
	TotalIncome       float64                    `json:"totalIncome"`
	TotalExpenses     float64                    `json:"totalExpenses"`
	NetBalance        float64                    `json:"netBalance"`
	ByPaymentMethod   map[string]float64         `json:"byPaymentMethod"`
	ByCategory        map[string]CategorySummary `json:"byCategory"`
}

func (f LedgerFilters) matches(t Transaction) bool {
	if f.Type != "" && f.Type != "all" && t.Type != f.Type {
		return false
	}
	date, err := time.Parse("2006-01-02", t.Date)
	if err != nil {
		return false
	}
	if f.FromDate != nil && date.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && date.After(*f.ToDate) {
		return false
	}
	if f.Category != "" && !strings.Contains(strings.ToLower(t.Category), strings.ToLower(f.Category)) {
		return false
	}
	if f.PaymentMethod != "" && t.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Description), needle) &&
			!strings.Contains(strings.ToLower(t.Reference), needle) {
			return false
		}
	}
	return true
}

// Reconcile pulls every source, applies the filters, sorts newest-first and
// fills in the running balance: folding credit-debit in ascending date order,
// so the oldest visible row's balance is its own net amount.
func Reconcile(db *gorm.DB, schoolID uint, sources []LedgerSource, filters LedgerFilters) ([]Transaction, LedgerSummary, error) {
	var all []Transaction
	for _, source := range sources {
		rows, err := source.Fetch(db, schoolID)
		if err != nil {
			return nil, LedgerSummary{}, err
		}
		all = append(all, rows...)
	}

	filtered := make([]Transaction, 0, len(all))
	for _, t := range all {
		if filters.matches(t) {
			filtered = append(filtered, t)
		}
	}

	// Oldest first for the balance fold; ties broken by ID for stability.
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Date != filtered[j].Date {
			return filtered[i].Date < filtered[j].Date
		}
		return filtered[i].ID < filtered[j].ID
	})

	balance := 0.0
	for i := range filtered {
		balance += filtered[i].Credit - filtered[i].Debit
		filtered[i].Balance = Round2(balance)
	}

	// Newest first for display.
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	return filtered, summarize(filtered), nil
}

func summarize(transactions []Transaction) LedgerSummary {
	summary := LedgerSummary{
		TotalTransactions: len(transactions),
		ByPaymentMethod:   make(map[string]float64),
		ByCategory:        make(map[string]CategorySummary),
	}

	for _, t := range transactions {
		summary.TotalIncome += t.Credit
		summary.TotalExpenses += t.Debit

		method := t.PaymentMethod
		if method == "" {
			method = "unknown"
		}
		summary.ByPaymentMethod[method] += t.Amount

		cat := summary.ByCategory[t.Category]
		if t.Type == "income" {
			cat.Income += t.Amount
		} else {
			cat.Expense += t.Amount
		}
		summary.ByCategory[t.Category] = cat
	}

	summary.TotalIncome = Round2(summary.TotalIncome)
	summary.TotalExpenses = Round2(summary.TotalExpenses)
	summary.NetBalance = Round2(summary.TotalIncome - summary.TotalExpenses)
	return summary
}
