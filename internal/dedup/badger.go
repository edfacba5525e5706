// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// fingerprintKeyPrefix namespaces fingerprint records inside the shared
// BadgerDB instance.
const fingerprintKeyPrefix = "fp:"

// BadgerKV implements KV on BadgerDB for durable fingerprint storage.
// Suitable for production use; fingerprints survive restarts, which is
// what makes re-sync suppression work across daemon lifetimes.
type BadgerKV struct {
	db *badger.DB
}

// NewBadgerKV creates a BadgerDB-backed KV. The caller owns the db handle
// and its lifecycle.
func NewBadgerKV(db *badger.DB) *BadgerKV {
	return &BadgerKV{db: db}
}

// Get implements KV.
func (s *BadgerKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fingerprintKeyPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get fingerprint: %w", err)
	}
	return value, true, nil
}

// Set implements KV.
func (s *BadgerKV) Set(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fingerprintKeyPrefix+key), value)
	})
	if err != nil {
		return fmt.Errorf("set fingerprint: %w", err)
	}
	return nil
}

// Delete implements KV.
func (s *BadgerKV) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(fingerprintKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete fingerprint: %w", err)
	}
	return nil
}
