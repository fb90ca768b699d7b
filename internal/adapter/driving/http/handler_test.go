package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monarchwatch/internal/application"
	"monarchwatch/internal/domain/model"
	"monarchwatch/internal/domain/port/driven"
)

type stubClient struct {
	accounts   []model.Account
	categories []model.Category
	cashflow   model.CashflowSummary
	fetchErr   error
}

func (s *stubClient) Login(context.Context, string, string, string) error { return nil }
func (s *stubClient) MultiFactorAuthenticate(context.Context, string, string, string) error {
	return nil
}
func (s *stubClient) Token() string                                { return "tok" }
func (s *stubClient) SetToken(string)                              {}
func (s *stubClient) GetSubscriptionDetails(context.Context) error { return nil }

func (s *stubClient) GetAccounts(context.Context) ([]model.Account, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.accounts, nil
}

func (s *stubClient) GetTransactionCategories(context.Context) ([]model.Category, error) {
	return s.categories, nil
}

func (s *stubClient) GetCashflow(context.Context) (model.CashflowSummary, error) {
	return s.cashflow, nil
}

type stubSessionStore struct{}

func (stubSessionStore) Load(context.Context) ([]byte, error) { return nil, driven.ErrSessionNotFound }
func (stubSessionStore) Save(context.Context, []byte) error   { return nil }
func (stubSessionStore) Clear(context.Context) error          { return nil }

type stubSnapshotStore struct {
	history    []model.SnapshotRecord
	historyErr error
}

func (s *stubSnapshotStore) Save(context.Context, model.Snapshot) error { return nil }
func (s *stubSnapshotStore) Latest(context.Context) (*model.Snapshot, error) {
	return nil, nil
}
func (s *stubSnapshotStore) History(_ context.Context, limit int) ([]model.SnapshotRecord, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	if limit < len(s.history) {
		return s.history[:limit], nil
	}
	return s.history, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSnapshot() *model.Snapshot {
	paychecks := model.Category{Name: "Paychecks", GroupType: model.GroupIncome}
	groceries := model.Category{Name: "Groceries", GroupType: model.GroupExpense}

	return &model.Snapshot{
		Accounts: []model.Account{
			{
				ID:                "acct-1",
				DisplayName:       "Checking",
				Balance:           dec("2500.75"),
				TypeName:          model.AccountTypeDepository,
				Institution:       "First Bank",
				IsAsset:           true,
				IncludeInNetWorth: true,
			},
			{
				ID:          "acct-2",
				DisplayName: "Credit Card",
				Balance:     dec("500"),
				TypeName:    model.AccountTypeCredit,
			},
		},
		Categories: []model.Category{paychecks, groceries},
		Cashflow: model.CashflowSummary{
			SumIncome:   dec("5000"),
			SumExpense:  dec("-3000"),
			Savings:     dec("2000"),
			SavingsRate: dec("0.4"),
			ByCategory: []model.CategorySum{
				{Category: paychecks, Sum: dec("5000")},
				{Category: groceries, Sum: dec("-3000")},
			},
		},
		FetchedAt: time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC),
	}
}

// newTestServer wires a handler onto an unstarted poll service. prime seeds
// the latest snapshot; leave it nil to exercise the no-data paths.
func newTestServer(t *testing.T, prime *model.Snapshot, snapshots driven.SnapshotStore) *httptest.Server {
	t.Helper()

	client := &stubClient{}
	provider := application.NewClientProvider(client)
	auth := application.NewAuthService(
		model.Credentials{Email: "user@example.com", Password: "pw"},
		func() driven.MonarchClient { return client },
		provider,
		stubSessionStore{},
	)
	pollSvc := application.NewPollService(provider, auth, snapshots, time.Hour, 30*time.Second)
	pollSvc.Prime(prime)

	handler := NewHandler(pollSvc, snapshots, testLogger())
	srv := httptest.NewServer(NewServeMux(handler, testLogger()))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, wantStatus int, out any) {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, wantStatus, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealth_NoDataYet(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	var resp HealthResponse
	getJSON(t, srv, "/api/health", http.StatusOK, &resp)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, string(application.StateIdle), resp.PollState)
	assert.Empty(t, resp.FetchedAt)
}

func TestHealth_WithSnapshot(t *testing.T) {
	srv := newTestServer(t, testSnapshot(), nil)

	var resp HealthResponse
	getJSON(t, srv, "/api/health", http.StatusOK, &resp)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "2026-08-20T06:00:00Z", resp.FetchedAt)
}

func TestGetSnapshot_NoData(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "no snapshot")
}

func TestGetSnapshot_OK(t *testing.T) {
	srv := newTestServer(t, testSnapshot(), nil)

	var resp SnapshotResponse
	getJSON(t, srv, "/api/snapshot", http.StatusOK, &resp)

	require.Len(t, resp.Accounts, 2)
	assert.Equal(t, "Checking", resp.Accounts[0].DisplayName)
	assert.Equal(t, "2500.75", resp.Accounts[0].Balance)
	assert.Equal(t, model.AccountTypeDepository, resp.Accounts[0].Type)
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, "income", resp.Categories[0].Group)
	assert.Equal(t, "2026-08-20T06:00:00Z", resp.FetchedAt)
}

func TestGetNetWorth_OK(t *testing.T) {
	srv := newTestServer(t, testSnapshot(), nil)

	var resp NetWorthResponse
	getJSON(t, srv, "/api/networth", http.StatusOK, &resp)

	assert.Equal(t, "2500.75", resp.Assets)
	assert.Equal(t, "500", resp.Liabilities)
	assert.Equal(t, "2000.75", resp.Net)
	assert.Equal(t, "2500.75", resp.BalancesByType[model.AccountTypeDepository])
	assert.Equal(t, "500", resp.BalancesByType[model.AccountTypeCredit])
}

func TestGetCashflow_OK(t *testing.T) {
	srv := newTestServer(t, testSnapshot(), nil)

	var resp CashflowResponse
	getJSON(t, srv, "/api/cashflow", http.StatusOK, &resp)

	assert.Equal(t, "5000", resp.SumIncome)
	assert.Equal(t, "-3000", resp.SumExpense)
	assert.Equal(t, "3000", resp.ExpenseTotal)
	assert.Equal(t, "40", resp.SavingsRatePercent)
	assert.Equal(t, "5000", resp.IncomeByCategory["Paychecks"])
	assert.Equal(t, "3000", resp.ExpenseByCategory["Groceries"])
}

func TestGetHistory_OK(t *testing.T) {
	store := &stubSnapshotStore{history: []model.SnapshotRecord{
		{
			FetchedAt:    time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC),
			AccountCount: 2,
			Assets:       dec("2500.75"),
			Liabilities:  dec("500"),
			NetWorth:     dec("2000.75"),
			SumIncome:    dec("5000"),
			SumExpense:   dec("-3000"),
			Savings:      dec("2000"),
			SavingsRate:  dec("0.4"),
		},
	}}
	srv := newTestServer(t, testSnapshot(), store)

	var resp []HistoryEntryResponse
	getJSON(t, srv, "/api/history", http.StatusOK, &resp)

	require.Len(t, resp, 1)
	assert.Equal(t, 2, resp[0].AccountCount)
	assert.Equal(t, "2000.75", resp[0].NetWorth)
	assert.Equal(t, "40", resp[0].SavingsRatePercent)
}

func TestGetHistory_InvalidLimit(t *testing.T) {
	srv := newTestServer(t, nil, &stubSnapshotStore{})

	resp, err := http.Get(srv.URL + "/api/history?limit=nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetHistory_PersistenceDisabled(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetHistory_StoreError(t *testing.T) {
	srv := newTestServer(t, nil, &stubSnapshotStore{historyErr: errors.New("database is locked")})

	resp, err := http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRefresh_OK(t *testing.T) {
	snap := testSnapshot()
	client := &stubClient{
		accounts:   snap.Accounts,
		categories: snap.Categories,
		cashflow:   snap.Cashflow,
	}
	provider := application.NewClientProvider(client)
	auth := application.NewAuthService(
		model.Credentials{Email: "user@example.com", Password: "pw"},
		func() driven.MonarchClient { return client },
		provider,
		stubSessionStore{},
	)
	pollSvc := application.NewPollService(provider, auth, nil, time.Hour, 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pollSvc.Start(ctx)
	require.Eventually(t, func() bool { return pollSvc.Latest() != nil }, 2*time.Second, 10*time.Millisecond)

	handler := NewHandler(pollSvc, nil, testLogger())
	srv := httptest.NewServer(NewServeMux(handler, testLogger()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body RefreshResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "refreshed", body.Status)
	assert.NotEmpty(t, body.FetchedAt)
}

func TestRefresh_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/refresh")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
