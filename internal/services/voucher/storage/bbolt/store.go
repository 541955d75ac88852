// Package bbolt provides a BoltDB-backed pool store.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/voucherpool/voucherbot/internal/services/voucher/domain"
	"go.etcd.io/bbolt"
)

const (
	poolBucket = "voucher"
	poolKey    = "pool"
)

// Store persists the voucher pool as one JSON document in a Bolt bucket.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetPool fetches the pool document. A missing document yields an empty
// pool, mirroring a get-with-default storage contract.
func (s *Store) GetPool(ctx context.Context) (domain.Pool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Pool{}, err
	}
	if s == nil || s.db == nil {
		return domain.Pool{}, fmt.Errorf("storage is not configured")
	}

	pool := domain.NewPool()
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(poolBucket))
		if bucket == nil {
			return fmt.Errorf("voucher bucket is missing")
		}
		payload := bucket.Get([]byte(poolKey))
		if payload == nil {
			return nil
		}
		if err := json.Unmarshal(payload, &pool); err != nil {
			return fmt.Errorf("unmarshal pool: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Pool{}, err
	}

	pool.Normalize()
	return pool, nil
}

// PutPool replaces the whole pool document in one write.
func (s *Store) PutPool(ctx context.Context, pool domain.Pool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	payload, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("marshal pool: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(poolBucket))
		if bucket == nil {
			return fmt.Errorf("voucher bucket is missing")
		}
		return bucket.Put([]byte(poolKey), payload)
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(poolBucket))
		if err != nil {
			return fmt.Errorf("create voucher bucket: %w", err)
		}
		return nil
	})
}
