// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ScanSnapshot is a stored detection result for one region.
type ScanSnapshot struct {
	Region  string    `json:"region"`
	Trigger string    `json:"trigger"`
	Result  *Result   `json:"result"`
	Skipped int       `json:"skipped"`
	SavedAt time.Time `json:"savedAt"`
}

// ResultStore keeps the most recent scans so they survive restarts.
type ResultStore interface {
	Save(ctx context.Context, snap *ScanSnapshot) error
	Latest(ctx context.Context, region string) (*ScanSnapshot, error)
}

// HistoryStore is implemented by result stores that retain past scans.
type HistoryStore interface {
	History(ctx context.Context, region string, limit int) ([]ScanSnapshot, error)
}

const (
	scanLatestPrefix  = "scan/latest/"
	scanHistoryPrefix = "scan/history/"

	// allRegionsKey stands in for the empty region in keys.
	allRegionsKey = "_all"
)

// BadgerResultStore stores scans in BadgerDB. The latest scan per region is
// kept indefinitely; history entries expire after the retention period.
type BadgerResultStore struct {
	db        *badger.DB
	retention time.Duration
	ownsDB    bool
}

// OpenBadgerResultStore opens (or creates) a store at path. An empty path
// opens an in-memory database.
func OpenBadgerResultStore(path string, retention time.Duration) (*BadgerResultStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger result store: %w", err)
	}
	s := NewBadgerResultStore(db, retention)
	s.ownsDB = true
	return s, nil
}

// NewBadgerResultStore uses an already open database.
func NewBadgerResultStore(db *badger.DB, retention time.Duration) *BadgerResultStore {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &BadgerResultStore{db: db, retention: retention}
}

func regionKey(region string) string {
	if region == "" {
		return allRegionsKey
	}
	return region
}

func historyKey(region string, at time.Time) []byte {
	// Zero padded so lexical order is time order.
	return []byte(fmt.Sprintf("%s%s/%020d", scanHistoryPrefix, regionKey(region), at.UnixNano()))
}

// Save stores snap as the latest scan of its region and appends it to history.
func (s *BadgerResultStore) Save(_ context.Context, snap *ScanSnapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal scan snapshot: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(scanLatestPrefix+regionKey(snap.Region)), data); err != nil {
			return fmt.Errorf("set latest scan: %w", err)
		}
		e := badger.NewEntry(historyKey(snap.Region, snap.SavedAt), data).WithTTL(s.retention)
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("append scan history: %w", err)
		}
		return nil
	})
}

// Latest returns the most recent scan of region or ErrNoSnapshot.
func (s *BadgerResultStore) Latest(_ context.Context, region string) (*ScanSnapshot, error) {
	var snap ScanSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(scanLatestPrefix + regionKey(region)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSnapshot
		}
		if err != nil {
			return fmt.Errorf("get latest scan: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// History returns up to limit retained scans of region, newest first.
func (s *BadgerResultStore) History(_ context.Context, region string, limit int) ([]ScanSnapshot, error) {
	prefix := []byte(scanHistoryPrefix + regionKey(region) + "/")
	var out []ScanSnapshot

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var snap ScanSnapshot
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			}); err != nil {
				return fmt.Errorf("decode scan %s: %w", it.Item().Key(), err)
			}
			out = append(out, snap)
		}
		return nil
	})
	return out, err
}

// Regions lists regions that have a latest scan.
func (s *BadgerResultStore) Regions(_ context.Context) ([]string, error) {
	var regions []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(scanLatestPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			name := strings.TrimPrefix(string(it.Item().Key()), scanLatestPrefix)
			if name == allRegionsKey {
				name = ""
			}
			regions = append(regions, name)
		}
		return nil
	})
	return regions, err
}

// RunGC reclaims value log space left by expired history entries. It
// rewrites files until badger reports nothing left to collect.
func (s *BadgerResultStore) RunGC(ctx context.Context) error {
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("result store gc: %w", err)
		}
	}
	return ctx.Err()
}

// Close closes the database if the store opened it.
func (s *BadgerResultStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

