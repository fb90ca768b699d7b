// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"monarchwatch/internal/domain/model"
	"monarchwatch/internal/domain/port/driven"
)

// PollState identifies where the poller is in its cycle.
type PollState string

const (
	StateIdle      PollState = "idle"
	StateFetching  PollState = "fetching"
	StatePublished PollState = "published"
	StateFailed    PollState = "failed"
)

// FailureReason is the typed reason the last cycle failed.
type FailureReason string

const (
	FailureNone FailureReason = ""
	// FailureAuth: re-authentication is exhausted. Polling stops until
	// the instance is reconfigured.
	FailureAuth FailureReason = "auth_failure"
	// FailureFetch: transient. The next scheduled tick retries; the poll
	// interval itself is the only backoff.
	FailureFetch FailureReason = "fetch_failure"
)

// refreshRequest represents a manual refresh trigger.
type refreshRequest struct {
	done chan error
}

// PollService fetches accounts, categories, and cashflow from Monarch on
// a fixed interval and publishes complete snapshots. A snapshot is only
// published when all three fetches of a cycle succeed; consumers never
// see partial data.
type PollService struct {
	provider  *ClientProvider
	auth      *AuthService
	snapshots driven.SnapshotStore
	interval  time.Duration
	timeout   time.Duration
	refreshCh chan refreshRequest

	mu          sync.RWMutex
	state       PollState
	latest      *model.Snapshot
	lastFailure FailureReason
	lastErr     error

	subMu         sync.Mutex
	subscribers   []func(*model.Snapshot)
	onAuthFailure func(error)
}

// NewPollService creates a PollService. snapshots may be nil to disable
// history persistence.
func NewPollService(
	provider *ClientProvider,
	auth *AuthService,
	snapshots driven.SnapshotStore,
	interval time.Duration,
	timeout time.Duration,
) *PollService {
	return &PollService{
		provider:  provider,
		auth:      auth,
		snapshots: snapshots,
		interval:  interval,
		timeout:   timeout,
		refreshCh: make(chan refreshRequest),
		state:     StateIdle,
	}
}

// Subscribe registers a callback invoked with every published snapshot.
// Callbacks run on the polling goroutine and must not block. Register
// before Start; subscription is not synchronized with a running poller
// beyond the internal mutex.
func (s *PollService) Subscribe(fn func(*model.Snapshot)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// OnAuthFailure registers the callback invoked when re-authentication is
// exhausted and polling stops. The host uses it to demand reconfiguration.
func (s *PollService) OnAuthFailure(fn func(error)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.onAuthFailure = fn
}

// Prime seeds the latest snapshot from persisted state so consumers have
// data before the first cycle completes. Call before Start.
func (s *PollService) Prime(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		s.latest = snap
	}
}

// Start runs one eager poll, then polls on the configured interval and
// serves manual refresh requests. It blocks until the context is canceled
// or authentication is exhausted; after an auth failure no further ticks
// are scheduled.
func (s *PollService) Start(ctx context.Context) {
	if err := s.poll(ctx); err != nil {
		slog.Error("initial poll failed", "error", err)
		if errors.Is(err, ErrAuthExhausted) {
			return
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("poll service stopped")
			return
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				slog.Error("poll cycle failed", "error", err)
				if errors.Is(err, ErrAuthExhausted) {
					return
				}
			}
		case req := <-s.refreshCh:
			err := s.poll(ctx)
			req.done <- err
			if errors.Is(err, ErrAuthExhausted) {
				return
			}
		}
	}
}

// RefreshNow triggers an immediate poll cycle, bypassing the interval. It
// blocks until the cycle completes or ctx is canceled.
func (s *PollService) RefreshNow(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.refreshCh <- refreshRequest{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the poller's current state.
func (s *PollService) State() PollState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Latest returns the most recently published snapshot, or nil before the
// first successful cycle.
func (s *PollService) Latest() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// LastFailure returns the typed reason and error of the last failed
// cycle, or (FailureNone, nil) when the last cycle published.
func (s *PollService) LastFailure() (FailureReason, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFailure, s.lastErr
}

// poll runs one full cycle: fetch all three datasets under one timeout
// budget, re-authenticate at most once on an auth rejection, and publish
// the snapshot on success. Every error path resolves to a typed failure;
// nothing escapes to crash the scheduling loop.
func (s *PollService) poll(ctx context.Context) error {
	s.setState(StateFetching)
	start := time.Now()

	// The budget covers the whole cycle, not individual calls; a slow
	// call consumes more of the shared budget.
	cycleCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.fetchAll(cycleCtx)
	if err != nil && isAuthRejection(err) {
		slog.Warn("fetch rejected as unauthenticated, re-authenticating", "error", err)

		if rerr := s.auth.Reauthenticate(cycleCtx); rerr != nil {
			return s.failAuth(fmt.Errorf("%w: %v", ErrAuthExhausted, rerr))
		}

		// One retry of the entire sequence, within the same budget.
		snap, err = s.fetchAll(cycleCtx)
		if err != nil && isAuthRejection(err) {
			return s.failAuth(fmt.Errorf("%w: %v", ErrAuthExhausted, err))
		}
	}
	if err != nil {
		s.fail(FailureFetch, err)
		return err
	}

	s.publish(ctx, snap)
	slog.Info("poll cycle complete",
		"accounts", len(snap.Accounts),
		"categories", len(snap.Categories),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// fetchAll issues the three fetches sequentially. A single polling
// identity keeps calls serial so it does not amplify rate-limit pressure.
func (s *PollService) fetchAll(ctx context.Context) (*model.Snapshot, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, errors.New("fetch: no authenticated client, credentials rejected or not yet bootstrapped")
	}

	accounts, err := client.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}

	categories, err := client.GetTransactionCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}

	cashflow, err := client.GetCashflow(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch cashflow: %w", err)
	}

	return &model.Snapshot{
		Accounts:   accounts,
		Categories: categories,
		Cashflow:   cashflow,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// publish atomically replaces the latest snapshot, persists it
// best-effort, and notifies subscribers.
func (s *PollService) publish(ctx context.Context, snap *model.Snapshot) {
	s.mu.Lock()
	s.state = StatePublished
	s.latest = snap
	s.lastFailure = FailureNone
	s.lastErr = nil
	s.mu.Unlock()

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, *snap); err != nil {
			slog.Error("snapshot persist failed", "error", err)
		}
	}

	s.subMu.Lock()
	subs := slices.Clone(s.subscribers)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *PollService) setState(state PollState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *PollService) fail(reason FailureReason, err error) {
	s.mu.Lock()
	s.state = StateFailed
	s.lastFailure = reason
	s.lastErr = err
	s.mu.Unlock()
}

func (s *PollService) failAuth(err error) error {
	s.fail(FailureAuth, err)

	s.subMu.Lock()
	fn := s.onAuthFailure
	s.subMu.Unlock()

	if fn != nil {
		fn(err)
	}
	return err
}
