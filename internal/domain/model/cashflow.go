package model

import "github.com/shopspring/decimal"

// CategorySum is one category's aggregate over the cashflow reporting window.
type CategorySum struct {
	Category Category
	Sum      decimal.Decimal
}

// CashflowSummary is the cashflow aggregate for one reporting window.
// SumExpense is negative as reported by the API; SavingsRate is a fraction
// (0.4 means 40%).
type CashflowSummary struct {
	SumIncome   decimal.Decimal
	SumExpense  decimal.Decimal
	Savings     decimal.Decimal
	SavingsRate decimal.Decimal
	ByCategory  []CategorySum
}

// ExpenseTotal returns total spending as a positive amount.
func (c CashflowSummary) ExpenseTotal() decimal.Decimal {
	return c.SumExpense.Neg()
}

// SavingsRatePercent returns the savings rate scaled to a percentage.
func (c CashflowSummary) SavingsRatePercent() decimal.Decimal {
	return c.SavingsRate.Mul(decimal.NewFromInt(100))
}
