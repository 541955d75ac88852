// Package storage declares the persistence boundary for the voucher pool.
package storage

import (
	"context"

	"github.com/voucherpool/voucherbot/internal/services/voucher/domain"
)

// Store persists the whole pool document with last-writer-wins semantics.
// The engine is single-threaded and its invocations are serialized, so no
// finer-grained locking is required: each handler loads one snapshot,
// mutates it, and writes it back in one call or not at all.
type Store interface {
	GetPool(ctx context.Context) (domain.Pool, error)
	PutPool(ctx context.Context, pool domain.Pool) error
}
