// Package fees holds the billing arithmetic and reconciliation logic shared
// by the HTTP handlers: discount and late-fee computation, invoice status
// derivation, installment plan validation and the ledger merge. Everything
// here is pure so it can be tested without a database.
package fees

import (
	"math"

	"github.com/verixence/erp-school-sub008/models"
)

// amountEpsilon absorbs float drift when comparing money values.
const amountEpsilon = 0.005

// Round2 rounds a money amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EffectiveAmount computes what an assignment actually bills: the custom
// amount when set, otherwise the structure amount, minus the percentage and
// fixed discounts, floored at zero.
func EffectiveAmount(structureAmount float64, assignment models.StudentFee) (amount, discount float64) {
	base := structureAmount
	if assignment.CustomAmount != nil {
		base = *assignment.CustomAmount
	}

	discount = 0
	if assignment.DiscountPercentage > 0 {
		discount += base * assignment.DiscountPercentage / 100
	}
	if assignment.DiscountAmount > 0 {
		discount += assignment.DiscountAmount
	}
	discount = Round2(discount)

	amount = Round2(math.Max(0, base-discount))
	return amount, discount
}

// DeriveStatus maps the paid/due amounts of an invoice (or status row) onto
// its status. Due of zero is paid; anything paid with a remainder is partial.
func DeriveStatus(paidAmount, dueAmount float64) string {
	switch {
	case dueAmount <= amountEpsilon:
		return models.InvoicePaid
	case paidAmount > amountEpsilon:
		return models.InvoicePartial
	default:
		return models.InvoicePending
	}
}

// LateFee computes the late fee owed on a base amount daysLate days past the
// due date, honouring the grace period and the optional cap. Zero when the
// policy is empty or the grace period has not lapsed.
func LateFee(policy models.FeeStructure, base float64, daysLate int) float64 {
	if daysLate <= policy.LateFeeGraceDays {
		return 0
	}

	var fee float64
	switch policy.LateFeeType {
	case models.LateFeeFixed:
		fee = policy.LateFeeAmount
	case models.LateFeePercentage:
		fee = base * policy.LateFeePercentage / 100
	default:
		return 0
	}

	if policy.LateFeeMax > 0 && fee > policy.LateFeeMax {
		fee = policy.LateFeeMax
	}
	return Round2(fee)
}
