package monarch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"monarchwatch/internal/domain/model"
)

const accountsQuery = `query GetAccounts {
	accounts {
		id
		displayName
		displayBalance
		isAsset
		includeInNetWorth
		isHidden
		updatedAt
		type { name }
		credential { institution { name } }
	}
}`

const categoriesQuery = `query GetTransactionCategories {
	categories {
		name
		group { type }
	}
}`

const cashflowQuery = `query GetCashflow {
	summary: aggregates(fillEmptyValues: true) {
		summary { sumIncome sumExpense savings savingsRate }
	}
	byCategory: aggregates(groupBy: ["category"]) {
		groupBy { category { name group { type } } }
		summary { sum }
	}
}`

const subscriptionQuery = `query GetSubscriptionDetails {
	subscription { id hasPremiumEntitlement }
}`

// graphqlRequest is the JSON body sent to the Monarch GraphQL endpoint.
type graphqlRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// graphqlEnvelope is the outer shape of every GraphQL response.
type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// doGraphQL posts one GraphQL operation and decodes the data payload into
// out. GraphQL-level errors surface with their vendor message text intact
// so the application layer's substring classification keeps working.
func (c *Client) doGraphQL(ctx context.Context, operation, query string, out any) error {
	body, err := json.Marshal(graphqlRequest{OperationName: operation, Query: query})
	if err != nil {
		return fmt.Errorf("graphql %s: marshal request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+graphqlPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("graphql %s: create request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Platform", clientPlatform)
	req.Header.Set("device-uuid", c.deviceUUID)
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql %s: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("graphql %s: read response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("graphql %s: decode envelope: %w", operation, err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql %s: %s", operation, envelope.Errors[0].Message)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("graphql %s: decode data: %w", operation, err)
	}
	return nil
}

// wireAccount is the GraphQL shape of an account.
type wireAccount struct {
	ID                string          `json:"id"`
	DisplayName       string          `json:"displayName"`
	DisplayBalance    decimal.Decimal `json:"displayBalance"`
	IsAsset           bool            `json:"isAsset"`
	IncludeInNetWorth bool            `json:"includeInNetWorth"`
	IsHidden          bool            `json:"isHidden"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	Type              struct {
		Name string `json:"name"`
	} `json:"type"`
	Credential *struct {
		Institution *struct {
			Name string `json:"name"`
		} `json:"institution"`
	} `json:"credential"`
}

// GetAccounts fetches all accounts with their balances and flags.
func (c *Client) GetAccounts(ctx context.Context) ([]model.Account, error) {
	var data struct {
		Accounts []wireAccount `json:"accounts"`
	}
	if err := c.doGraphQL(ctx, "GetAccounts", accountsQuery, &data); err != nil {
		return nil, err
	}

	accounts := make([]model.Account, 0, len(data.Accounts))
	for _, wa := range data.Accounts {
		accounts = append(accounts, mapAccount(wa))
	}
	return accounts, nil
}

func mapAccount(wa wireAccount) model.Account {
	institution := ""
	if wa.Credential != nil && wa.Credential.Institution != nil {
		institution = wa.Credential.Institution.Name
	}

	return model.Account{
		ID:                wa.ID,
		DisplayName:       wa.DisplayName,
		Balance:           wa.DisplayBalance,
		TypeName:          wa.Type.Name,
		Institution:       institution,
		UpdatedAt:         wa.UpdatedAt,
		IsAsset:           wa.IsAsset,
		IncludeInNetWorth: wa.IncludeInNetWorth,
		IsHidden:          wa.IsHidden,
	}
}

// GetTransactionCategories fetches all transaction categories with their
// group classification.
func (c *Client) GetTransactionCategories(ctx context.Context) ([]model.Category, error) {
	var data struct {
		Categories []struct {
			Name  string `json:"name"`
			Group struct {
				Type string `json:"type"`
			} `json:"group"`
		} `json:"categories"`
	}
	if err := c.doGraphQL(ctx, "GetTransactionCategories", categoriesQuery, &data); err != nil {
		return nil, err
	}

	categories := make([]model.Category, 0, len(data.Categories))
	for _, wc := range data.Categories {
		categories = append(categories, model.Category{
			Name:      wc.Name,
			GroupType: model.CategoryGroupType(wc.Group.Type),
		})
	}
	return categories, nil
}

// GetCashflow fetches the cashflow summary for the current reporting
// window together with per-category sums.
func (c *Client) GetCashflow(ctx context.Context) (model.CashflowSummary, error) {
	var data struct {
		Summary []struct {
			Summary struct {
				SumIncome   decimal.Decimal `json:"sumIncome"`
				SumExpense  decimal.Decimal `json:"sumExpense"`
				Savings     decimal.Decimal `json:"savings"`
				SavingsRate decimal.Decimal `json:"savingsRate"`
			} `json:"summary"`
		} `json:"summary"`
		ByCategory []struct {
			GroupBy struct {
				Category struct {
					Name  string `json:"name"`
					Group struct {
						Type string `json:"type"`
					} `json:"group"`
				} `json:"category"`
			} `json:"groupBy"`
			Summary struct {
				Sum decimal.Decimal `json:"sum"`
			} `json:"summary"`
		} `json:"byCategory"`
	}
	if err := c.doGraphQL(ctx, "GetCashflow", cashflowQuery, &data); err != nil {
		return model.CashflowSummary{}, err
	}

	var cf model.CashflowSummary
	if len(data.Summary) > 0 {
		s := data.Summary[0].Summary
		cf.SumIncome = s.SumIncome
		cf.SumExpense = s.SumExpense
		cf.Savings = s.Savings
		cf.SavingsRate = s.SavingsRate
	}

	for _, bc := range data.ByCategory {
		cf.ByCategory = append(cf.ByCategory, model.CategorySum{
			Category: model.Category{
				Name:      bc.GroupBy.Category.Name,
				GroupType: model.CategoryGroupType(bc.GroupBy.Category.Group.Type),
			},
			Sum: bc.Summary.Sum,
		})
	}

	return cf, nil
}

// GetSubscriptionDetails issues the cheapest authenticated call the API
// offers; it is used only as a session liveness probe.
func (c *Client) GetSubscriptionDetails(ctx context.Context) error {
	var data struct {
		Subscription struct {
			ID string `json:"id"`
		} `json:"subscription"`
	}
	return c.doGraphQL(ctx, "GetSubscriptionDetails", subscriptionQuery, &data)
}
