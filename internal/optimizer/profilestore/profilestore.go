// Package profilestore persists per-method hotness snapshots across process
// restarts, keyed by a caller-supplied method identifier. pkg/jitruntime
// consults it before constructing an ir.Compilation so that a method
// recompiled after a restart resumes at the tier it earned last run instead
// of cooling back to ir.HotnessCold.
//
// Key namespace design, mirrored from the teacher's metadata store:
//
//	Data Type          Prefix   Key Format           Value Type
//	===========================================================
//	Hotness snapshot   "h:"     h:<methodID>         snapshot (JSON)
package profilestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	jitcoreerrors "github.com/marmos91/jitcore/internal/errors"
	"github.com/marmos91/jitcore/internal/ir"
)

const prefixHotness = "h:"

func keyHotness(methodID string) []byte {
	return []byte(prefixHotness + methodID)
}

// Snapshot is the persisted hotness record for one method.
type Snapshot struct {
	MethodID    string         `json:"method_id"`
	Hotness     ir.MethodHotness `json:"hotness"`
	SampleCount uint64         `json:"sample_count"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Config controls how the backing badger database is opened.
type Config struct {
	// Path is the on-disk directory for the database. Ignored when
	// InMemory is true.
	Path string

	// InMemory runs the store entirely in memory, for tests and for
	// deployments that accept losing profile history across restarts.
	InMemory bool

	// Logger, when set, receives badger's internal log lines. badger
	// defaults to its own stderr logger when nil is passed through, which
	// is noisier than jitcore's structured logging expects, so Open
	// installs a discard logger unless the caller supplies one.
	Logger badgerdb.Logger
}

// Store is a badger-backed persistent map from method identifier to its
// last observed hotness tier.
type Store struct {
	db *badgerdb.DB
}

// Open opens (creating if necessary) the badger database described by cfg.
func Open(cfg Config) (*Store, error) {
	opts := badgerdb.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, jitcoreerrors.New(jitcoreerrors.ErrProfileStoreUnavailable, "profilestore.Open", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordHotness persists the latest observed hotness for methodID, bumping
// its sample count. A method never recorded before starts its count at 1.
func (s *Store) RecordHotness(ctx context.Context, methodID string, hotness ir.MethodHotness) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if methodID == "" {
		return jitcoreerrors.Newf(jitcoreerrors.ErrProfileStoreUnavailable, "profilestore.RecordHotness", "empty method id")
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		snap := Snapshot{MethodID: methodID, Hotness: hotness, SampleCount: 1, UpdatedAt: time.Now().UTC()}

		item, err := txn.Get(keyHotness(methodID))
		switch {
		case err == badgerdb.ErrKeyNotFound:
			// first observation, snap already holds the defaults
		case err != nil:
			return err
		default:
			if verr := item.Value(func(val []byte) error {
				prev, derr := decodeSnapshot(val)
				if derr != nil {
					return derr
				}
				snap.SampleCount = prev.SampleCount + 1
				return nil
			}); verr != nil {
				return verr
			}
		}

		encoded, err := encodeSnapshot(&snap)
		if err != nil {
			return err
		}
		return txn.Set(keyHotness(methodID), encoded)
	})
	if err != nil {
		return jitcoreerrors.New(jitcoreerrors.ErrProfileStoreUnavailable, "profilestore.RecordHotness", err)
	}
	return nil
}

// Lookup returns the persisted snapshot for methodID, or ok=false if none
// has ever been recorded.
func (s *Store) Lookup(ctx context.Context, methodID string) (snap Snapshot, ok bool, err error) {
	if err = ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	err = s.db.View(func(txn *badgerdb.Txn) error {
		item, gerr := txn.Get(keyHotness(methodID))
		if gerr == badgerdb.ErrKeyNotFound {
			return nil
		}
		if gerr != nil {
			return gerr
		}
		ok = true
		return item.Value(func(val []byte) error {
			s, derr := decodeSnapshot(val)
			if derr != nil {
				return derr
			}
			snap = *s
			return nil
		})
	})
	if err != nil {
		return Snapshot{}, false, jitcoreerrors.New(jitcoreerrors.ErrProfileStoreUnavailable, "profilestore.Lookup", err)
	}
	return snap, ok, nil
}

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode hotness snapshot: %w", err)
	}
	return b, nil
}

func decodeSnapshot(val []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("failed to decode hotness snapshot: %w", err)
	}
	return &s, nil
}
