// Package driven defines the driven ports (outbound interfaces) of monarchwatch.
package driven

import (
	"context"

	"monarchwatch/internal/domain/model"
)

// MonarchClient defines the driven port for the Monarch Money API.
//
// A client carries one session token. Login and MultiFactorAuthenticate
// install a fresh token on success; SetToken installs a previously
// persisted token without contacting the service. All errors are returned
// as-is from the transport; classification into the auth taxonomy happens
// in the application layer.
type MonarchClient interface {
	// Login performs a password login. totp may be empty; when non-empty it
	// is submitted alongside the password so an MFA challenge is answered
	// in the same request.
	Login(ctx context.Context, email, password, totp string) error
	// MultiFactorAuthenticate completes a pending MFA challenge with a
	// one-time code.
	MultiFactorAuthenticate(ctx context.Context, email, password, code string) error

	// Token returns the current session token, or "" when unauthenticated.
	Token() string
	// SetToken installs a session token restored from the session store.
	SetToken(token string)

	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetTransactionCategories(ctx context.Context) ([]model.Category, error)
	GetCashflow(ctx context.Context) (model.CashflowSummary, error)

	// GetSubscriptionDetails issues the cheapest authenticated call the API
	// offers. It is used only to probe whether a session is still live.
	GetSubscriptionDetails(ctx context.Context) error
}
