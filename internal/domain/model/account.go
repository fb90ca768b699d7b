package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account type names as reported by the Monarch API.
const (
	AccountTypeBrokerage      = "brokerage"
	AccountTypeCredit         = "credit"
	AccountTypeDepository     = "depository"
	AccountTypeLoan           = "loan"
	AccountTypeOther          = "other"
	AccountTypeRealEstate     = "real_estate"
	AccountTypeValuables      = "valuables"
	AccountTypeVehicle        = "vehicle"
	AccountTypeOtherAsset     = "other_asset"
	AccountTypeOtherLiability = "other_liability"
)

// Account represents a single financial account as reported by Monarch.
type Account struct {
	ID                string
	DisplayName       string
	Balance           decimal.Decimal
	TypeName          string
	Institution       string
	UpdatedAt         time.Time
	IsAsset           bool
	IncludeInNetWorth bool
	IsHidden          bool
}

// CountsTowardAssets reports whether the account participates in the asset
// side of net worth: an asset account that is visible and flagged for
// inclusion.
func (a Account) CountsTowardAssets() bool {
	return a.IsAsset && a.IncludeInNetWorth && !a.IsHidden
}
