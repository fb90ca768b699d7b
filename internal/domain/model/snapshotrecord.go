package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotRecord is the persisted summary of one published poll cycle.
type SnapshotRecord struct {
	ID           int64
	FetchedAt    time.Time
	AccountCount int
	Assets       decimal.Decimal
	Liabilities  decimal.Decimal
	NetWorth     decimal.Decimal
	SumIncome    decimal.Decimal
	SumExpense   decimal.Decimal
	Savings      decimal.Decimal
	SavingsRate  decimal.Decimal
}
