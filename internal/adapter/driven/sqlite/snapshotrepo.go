package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"monarchwatch/internal/domain/model"
	"monarchwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SnapshotStore = (*SnapshotRepo)(nil)

// SnapshotRepo is the SQLite implementation of the SnapshotStore port.
// Each published snapshot is stored as a summary row plus the full
// snapshot JSON, so the latest snapshot can be restored across restarts.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a SnapshotRepo backed by the given DB.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save records a published snapshot and its derived summary.
func (r *SnapshotRepo) Save(ctx context.Context, snap model.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	nw := snap.NetWorth()

	const query = `
		INSERT INTO snapshots (
			fetched_at, account_count, assets, liabilities, net_worth,
			sum_income, sum_expense, savings, savings_rate, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Writer.ExecContext(ctx, query,
		snap.FetchedAt.UTC().Format(time.RFC3339Nano),
		len(snap.Accounts),
		nw.Assets.String(),
		nw.Liabilities.String(),
		nw.Net.String(),
		snap.Cashflow.SumIncome.String(),
		snap.Cashflow.SumExpense.String(),
		snap.Cashflow.Savings.String(),
		snap.Cashflow.SavingsRate.String(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	return nil
}

// Latest returns the most recently saved snapshot, or nil when the store
// is empty.
func (r *SnapshotRepo) Latest(ctx context.Context) (*model.Snapshot, error) {
	const query = `SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1`

	var payload string
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot payload: %w", err)
	}
	return &snap, nil
}

// History returns summaries of the most recent poll cycles, newest first.
func (r *SnapshotRepo) History(ctx context.Context, limit int) ([]model.SnapshotRecord, error) {
	const query = `
		SELECT id, fetched_at, account_count, assets, liabilities, net_worth,
		       sum_income, sum_expense, savings, savings_rate
		FROM snapshots
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.SnapshotRecord
	for rows.Next() {
		var rec model.SnapshotRecord
		var fetchedAt string
		var amounts [7]string

		if err := rows.Scan(&rec.ID, &fetchedAt, &rec.AccountCount,
			&amounts[0], &amounts[1], &amounts[2], &amounts[3],
			&amounts[4], &amounts[5], &amounts[6]); err != nil {
			return nil, fmt.Errorf("scan snapshot record: %w", err)
		}

		rec.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("parse fetched_at %q: %w", fetchedAt, err)
		}

		fields := []*decimal.Decimal{
			&rec.Assets, &rec.Liabilities, &rec.NetWorth,
			&rec.SumIncome, &rec.SumExpense, &rec.Savings, &rec.SavingsRate,
		}
		for i, field := range fields {
			*field, err = decimal.NewFromString(amounts[i])
			if err != nil {
				return nil, fmt.Errorf("parse snapshot amount %q: %w", amounts[i], err)
			}
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot history: %w", err)
	}

	return records, nil
}
