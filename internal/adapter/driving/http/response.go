package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"monarchwatch/internal/application"
	"monarchwatch/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body. Reason carries the
// poller's typed failure reason when one applies.
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	PollState   string `json:"poll_state"`
	LastFailure string `json:"last_failure,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	FetchedAt   string `json:"fetched_at,omitempty"`
	Time        string `json:"time"`
}

// AccountResponse is the JSON representation of a single account.
type AccountResponse struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	Balance           string `json:"balance"`
	Type              string `json:"type"`
	Institution       string `json:"institution,omitempty"`
	UpdatedAt         string `json:"updated_at"`
	IsAsset           bool   `json:"is_asset"`
	IncludeInNetWorth bool   `json:"include_in_net_worth"`
	IsHidden          bool   `json:"is_hidden"`
}

// CategoryResponse is the JSON representation of a transaction category.
type CategoryResponse struct {
	Name  string `json:"name"`
	Group string `json:"group"`
}

// CashflowResponse is the JSON representation of the cashflow summary with
// per-category breakdowns. Amounts are decimal strings; the savings rate is
// scaled to a percentage.
type CashflowResponse struct {
	SumIncome          string            `json:"sum_income"`
	SumExpense         string            `json:"sum_expense"`
	ExpenseTotal       string            `json:"expense_total"`
	Savings            string            `json:"savings"`
	SavingsRatePercent string            `json:"savings_rate_percent"`
	IncomeByCategory   map[string]string `json:"income_by_category"`
	ExpenseByCategory  map[string]string `json:"expense_by_category"`
}

// NetWorthResponse is the JSON representation of the net worth breakdown.
type NetWorthResponse struct {
	Assets         string            `json:"assets"`
	Liabilities    string            `json:"liabilities"`
	Net            string            `json:"net"`
	BalancesByType map[string]string `json:"balances_by_type"`
	FetchedAt      string            `json:"fetched_at"`
}

// SnapshotResponse is the JSON representation of a full snapshot.
type SnapshotResponse struct {
	Accounts   []AccountResponse  `json:"accounts"`
	Categories []CategoryResponse `json:"categories"`
	Cashflow   CashflowResponse   `json:"cashflow"`
	NetWorth   NetWorthResponse   `json:"net_worth"`
	FetchedAt  string             `json:"fetched_at"`
}

// HistoryEntryResponse is the JSON representation of one persisted poll cycle.
type HistoryEntryResponse struct {
	FetchedAt          string `json:"fetched_at"`
	AccountCount       int    `json:"account_count"`
	Assets             string `json:"assets"`
	Liabilities        string `json:"liabilities"`
	NetWorth           string `json:"net_worth"`
	SumIncome          string `json:"sum_income"`
	SumExpense         string `json:"sum_expense"`
	Savings            string `json:"savings"`
	SavingsRatePercent string `json:"savings_rate_percent"`
}

// RefreshResponse is the JSON representation of a completed manual refresh.
type RefreshResponse struct {
	Status    string `json:"status"`
	FetchedAt string `json:"fetched_at"`
}

func toAccountResponse(a model.Account) AccountResponse {
	return AccountResponse{
		ID:                a.ID,
		DisplayName:       a.DisplayName,
		Balance:           a.Balance.String(),
		Type:              a.TypeName,
		Institution:       a.Institution,
		UpdatedAt:         a.UpdatedAt.UTC().Format(time.RFC3339),
		IsAsset:           a.IsAsset,
		IncludeInNetWorth: a.IncludeInNetWorth,
		IsHidden:          a.IsHidden,
	}
}

func toCashflowResponse(snap *model.Snapshot) CashflowResponse {
	cf := snap.Cashflow
	return CashflowResponse{
		SumIncome:          cf.SumIncome.String(),
		SumExpense:         cf.SumExpense.String(),
		ExpenseTotal:       cf.ExpenseTotal().String(),
		Savings:            cf.Savings.String(),
		SavingsRatePercent: cf.SavingsRatePercent().String(),
		IncomeByCategory:   stringAmounts(snap.IncomeByCategory()),
		ExpenseByCategory:  stringAmounts(snap.ExpenseByCategory()),
	}
}

func toNetWorthResponse(snap *model.Snapshot) NetWorthResponse {
	nw := snap.NetWorth()
	return NetWorthResponse{
		Assets:         nw.Assets.String(),
		Liabilities:    nw.Liabilities.String(),
		Net:            nw.Net.String(),
		BalancesByType: stringAmounts(snap.BalancesByType()),
		FetchedAt:      snap.FetchedAt.UTC().Format(time.RFC3339),
	}
}

func toSnapshotResponse(snap *model.Snapshot) SnapshotResponse {
	accounts := make([]AccountResponse, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accounts = append(accounts, toAccountResponse(a))
	}

	categories := make([]CategoryResponse, 0, len(snap.Categories))
	for _, c := range snap.Categories {
		categories = append(categories, CategoryResponse{Name: c.Name, Group: string(c.GroupType)})
	}

	return SnapshotResponse{
		Accounts:   accounts,
		Categories: categories,
		Cashflow:   toCashflowResponse(snap),
		NetWorth:   toNetWorthResponse(snap),
		FetchedAt:  snap.FetchedAt.UTC().Format(time.RFC3339),
	}
}

func toHistoryEntryResponse(rec model.SnapshotRecord) HistoryEntryResponse {
	return HistoryEntryResponse{
		FetchedAt:          rec.FetchedAt.UTC().Format(time.RFC3339),
		AccountCount:       rec.AccountCount,
		Assets:             rec.Assets.String(),
		Liabilities:        rec.Liabilities.String(),
		NetWorth:           rec.NetWorth.String(),
		SumIncome:          rec.SumIncome.String(),
		SumExpense:         rec.SumExpense.String(),
		Savings:            rec.Savings.String(),
		SavingsRatePercent: rec.SavingsRate.Mul(decimal.NewFromInt(100)).String(),
	}
}

func stringAmounts(in map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v.String()
	}
	return out
}

func toHealthResponse(pollSvc *application.PollService) HealthResponse {
	reason, lastErr := pollSvc.LastFailure()

	resp := HealthResponse{
		Status:    "ok",
		PollState: string(pollSvc.State()),
		Time:      time.Now().UTC().Format(time.RFC3339),
	}
	if reason != application.FailureNone {
		resp.Status = "degraded"
		resp.LastFailure = string(reason)
	}
	if lastErr != nil {
		resp.LastError = lastErr.Error()
	}
	if snap := pollSvc.Latest(); snap != nil {
		resp.FetchedAt = snap.FetchedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
