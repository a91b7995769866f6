// Package invariantstore is an optional durable log of per-compilation
// invariant data (method identifier, strategy hash, final node/symref
// counts, and outcome), used to audit that the same strategy applied to
// the same method produces the same shape run over run. It is consulted
// from pkg/jitruntime only when a Postgres DSN is configured; the
// orchestrator itself has no dependency on it.
//
// Connection health is tracked through a pgx pool (mirroring the teacher's
// postgres metadata store), while row CRUD and schema migration go through
// gorm (mirroring the teacher's control-plane store), matching how the
// teacher repo itself splits these two concerns across the two libraries.
package invariantstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	jitcoreerrors "github.com/marmos91/jitcore/internal/errors"
)

// Store is a Postgres-backed log of invariant records.
type Store struct {
	pool   *pgxpool.Pool
	db     *gorm.DB
	config *Config
	log    *slog.Logger
}

// Open applies cfg's defaults, validates it, opens a pgx pool for health
// checks and a gorm connection for CRUD, and (when cfg.AutoMigrate is set)
// migrates the invariant_records table.
func Open(ctx context.Context, cfg *Config, log *slog.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.Open", err)
	}
	if log == nil {
		log = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.Open", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.Open", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.Open", fmt.Errorf("ping: %w", err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		pool.Close()
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.Open", err)
	}

	if cfg.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(&InvariantRecord{}); err != nil {
			pool.Close()
			return nil, jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.Open", fmt.Errorf("migrate: %w", err))
		}
	}

	return &Store{pool: pool, db: db, config: cfg, log: log}, nil
}

// Close releases the pgx pool and gorm's own connection pool, which gorm
// opens separately from the same DSN.
func (s *Store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	s.pool.Close()
}

// Healthy pings the connection pool, for use as a liveness check from
// pkg/jitruntime's own health surface.
func (s *Store) Healthy(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.Healthy", err)
	}
	return nil
}

// Record inserts rec, assigning it a new ID if it doesn't already have one.
func (s *Store) Record(ctx context.Context, rec *InvariantRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.Record", err)
	}
	return nil
}

// ListByMethod returns every recorded run for methodID, most recent first.
func (s *Store) ListByMethod(ctx context.Context, methodID string) ([]InvariantRecord, error) {
	var records []InvariantRecord
	if err := s.db.WithContext(ctx).
		Where("method_id = ?", methodID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.ListByMethod", err)
	}
	return records, nil
}

// DistinctShapes returns the set of (node_count, symref_count) pairs
// recorded for methodID under strategyHash. More than one distinct shape
// for the same method/strategy pair means the optimization pipeline is not
// deterministic for that input, which is the condition this store exists
// to surface.
func (s *Store) DistinctShapes(ctx context.Context, methodID, strategyHash string) ([]InvariantRecord, error) {
	var records []InvariantRecord
	if err := s.db.WithContext(ctx).
		Where("method_id = ? AND strategy_hash = ?", methodID, strategyHash).
		Distinct("node_count", "symref_count").
		Find(&records).Error; err != nil {
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvariantStoreUnavailable, "invariantstore.DistinctShapes", err)
	}
	return records, nil
}
