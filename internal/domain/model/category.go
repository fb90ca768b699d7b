package model

// CategoryGroupType classifies a transaction category's group.
type CategoryGroupType string

// Category group types as reported by the Monarch API.
const (
	GroupIncome  CategoryGroupType = "income"
	GroupExpense CategoryGroupType = "expense"
	GroupOther   CategoryGroupType = "other"
)

// Category is a transaction category together with its group classification.
type Category struct {
	Name      string
	GroupType CategoryGroupType
}
