// Package model contains the domain types shared across monarchwatch.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one complete, internally consistent set of fetched financial
// data. A snapshot is only built when all three fetches of a poll cycle
// succeed, and a new snapshot fully replaces the previous one.
type Snapshot struct {
	Accounts   []Account
	Categories []Category
	Cashflow   CashflowSummary
	FetchedAt  time.Time
}

// NetWorthBreakdown splits net worth into its asset and liability sides.
// Liabilities are kept as a positive magnitude; Net = Assets - Liabilities.
type NetWorthBreakdown struct {
	Assets      decimal.Decimal
	Liabilities decimal.Decimal
	Net         decimal.Decimal
}

// NetWorth sums visible, include-in-net-worth asset accounts against
// liability accounts. Liability accounts are summed regardless of the
// hidden and include flags, matching the upstream presentation.
func (s Snapshot) NetWorth() NetWorthBreakdown {
	assets := decimal.Zero
	liabilities := decimal.Zero

	for _, a := range s.Accounts {
		if a.IsAsset {
			if a.CountsTowardAssets() {
				assets = assets.Add(a.Balance)
			}
			continue
		}
		liabilities = liabilities.Add(a.Balance)
	}

	return NetWorthBreakdown{
		Assets:      assets,
		Liabilities: liabilities,
		Net:         assets.Sub(liabilities),
	}
}

// BalancesByType sums account balances grouped by account type name.
func (s Snapshot) BalancesByType() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, a := range s.Accounts {
		totals[a.TypeName] = totals[a.TypeName].Add(a.Balance)
	}
	return totals
}

// AccountsByType returns the accounts whose type name matches typeName.
func (s Snapshot) AccountsByType(typeName string) []Account {
	var matched []Account
	for _, a := range s.Accounts {
		if a.TypeName == typeName {
			matched = append(matched, a)
		}
	}
	return matched
}

// IncomeByCategory returns per-category income sums. Every known income
// category appears in the result, seeded with zero, so quiet categories
// are still visible to consumers.
func (s Snapshot) IncomeByCategory() map[string]decimal.Decimal {
	return s.sumsByGroup(GroupIncome, false)
}

// ExpenseByCategory returns per-category expense sums with the sign
// flipped so spending reads as a positive amount.
func (s Snapshot) ExpenseByCategory() map[string]decimal.Decimal {
	return s.sumsByGroup(GroupExpense, true)
}

func (s Snapshot) sumsByGroup(group CategoryGroupType, negate bool) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, c := range s.Categories {
		if c.GroupType == group {
			sums[c.Name] = decimal.Zero
		}
	}

	for _, cs := range s.Cashflow.ByCategory {
		if cs.Category.GroupType != group {
			continue
		}
		amount := cs.Sum
		if negate {
			amount = amount.Neg()
		}
		sums[cs.Category.Name] = sums[cs.Category.Name].Add(amount)
	}

	return sums
}
