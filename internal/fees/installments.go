package fees

import (
	"errors"
	"fmt"

	"github.com/Knetic/govaluate"
	"github.com/verixence/erp-school-sub008/models"
)

// Installment plan errors returned by Validate; the handler maps them to 400.
var (
	ErrMixedInstallmentForms = errors.New("installments must all use percentage, all fixed_amount, or all formula")
	ErrPercentageOverflow    = errors.New("installment percentages must not sum to more than 100")
	ErrEmptyInstallment      = errors.New("each installment needs a percentage, fixed amount or formula")
)

func installmentForm(inst models.ScheduleInstallment) string {
	switch {
	case inst.Percentage != nil:
		return "percentage"
	case inst.FixedAmount != nil:
		return "fixed"
	case inst.Formula != "":
		return "formula"
	default:
		return ""
	}
}

// ValidateInstallments enforces plan consistency: every row carries exactly
// one amount form, all rows use the same form, and percentage plans stay
// within 100%. Formulas are parse-checked up front so a broken expression
// fails at schedule creation, not at billing time.
func ValidateInstallments(installments []models.ScheduleInstallment) error {
	if len(installments) == 0 {
		return errors.New("installment schedule needs at least one installment")
	}

	form := installmentForm(installments[0])
	if form == "" {
		return ErrEmptyInstallment
	}

	var percentageTotal float64
	for i, inst := range installments {
		f := installmentForm(inst)
		if f == "" {
			return ErrEmptyInstallment
		}
		if f != form {
			return ErrMixedInstallmentForms
		}

		switch f {
		case "percentage":
			if *inst.Percentage <= 0 {
				return fmt.Errorf("installment %d: percentage must be positive", i+1)
			}
			percentageTotal += *inst.Percentage
		case "fixed":
			if *inst.FixedAmount <= 0 {
				return fmt.Errorf("installment %d: fixed amount must be positive", i+1)
			}
		case "formula":
			if _, err := govaluate.NewEvaluableExpression(inst.Formula); err != nil {
				return fmt.Errorf("installment %d: invalid formula: %w", i+1, err)
			}
		}
	}

	if percentageTotal > 100+amountEpsilon {
		return ErrPercentageOverflow
	}
	return nil
}

// InstallmentAmount resolves one installment against the schedule totals.
// Formula expressions see the variables total, discount and net.
func InstallmentAmount(inst models.ScheduleInstallment, total, discount float64) (float64, error) {
	switch installmentForm(inst) {
	case "percentage":
		return Round2(total * *inst.Percentage / 100), nil
	case "fixed":
		return *inst.FixedAmount, nil
	case "formula":
		expr, err := govaluate.NewEvaluableExpression(inst.Formula)
		if err != nil {
			return 0, fmt.Errorf("installment formula %q: %w", inst.Formula, err)
		}
		result, err := expr.Evaluate(map[string]interface{}{
			"total":    total,
			"discount": discount,
			"net":      total - discount,
		})
		if err != nil {
			return 0, fmt.Errorf("evaluating installment formula %q: %w", inst.Formula, err)
		}
		amount, ok := result.(float64)
		if !ok {
			return 0, fmt.Errorf("installment formula %q did not produce a number", inst.Formula)
		}
		return Round2(amount), nil
	default:
		return 0, ErrEmptyInstallment
	}
}
