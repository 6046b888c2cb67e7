// Package storage holds the persisted lookups the dispatcher's callers
// consult: the block list and read-only device snapshots.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BlockStatus is the result of a block-list lookup.
type BlockStatus struct {
	// Blocked is true when a block-list entry exists for the pair.
	Blocked bool
	// AnonymousOnly restricts the block to anonymous traffic.
	AnonymousOnly bool
}

// BlockList answers whether one account has blocked another.
type BlockList interface {
	Lookup(ctx context.Context, blockedNumber, accountNumber string) (BlockStatus, error)
}

// BlockedAccounts is the Postgres-backed block list.
type BlockedAccounts struct {
	pool *pgxpool.Pool
}

var _ BlockList = (*BlockedAccounts)(nil)

func NewBlockedAccounts(pool *pgxpool.Pool) *BlockedAccounts {
	return &BlockedAccounts{pool: pool}
}

// Lookup runs the single parameterized block-list query. An absent row means
// not blocked.
func (s *BlockedAccounts) Lookup(ctx context.Context, blockedNumber, accountNumber string) (BlockStatus, error) {
	const query = `SELECT anonymous_only FROM blocked_accounts
	               WHERE blocked_account_number = $1 AND account_number = $2`

	var anonymousOnly bool
	err := s.pool.QueryRow(ctx, query, blockedNumber, accountNumber).Scan(&anonymousOnly)
	if errors.Is(err, pgx.ErrNoRows) {
		return BlockStatus{}, nil
	}
	if err != nil {
		return BlockStatus{}, fmt.Errorf("block list lookup failed: %w", err)
	}
	return BlockStatus{Blocked: true, AnonymousOnly: anonymousOnly}, nil
}
