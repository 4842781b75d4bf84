package ingest

import (
	"context"
	"errors"
	"fmt"

	"listing-sync/core/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result summarizes one reconciliation pass.
type Result struct {
	RunID      string `json:"run_id"`
	Fetched    int    `json:"fetched"`
	Normalized int    `json:"normalized"`
	Dropped    int    `json:"dropped"`
	New        int    `json:"new"`
	Inserted   int    `json:"inserted"`
	Deleted    int64  `json:"deleted"`
	DryRun     bool   `json:"dry_run"`
	// Plan is only set for dry runs.
	Plan *Plan `json:"plan,omitempty"`
}

// Plan lists what a pass would change.
type Plan struct {
	Insert Snapshot `json:"insert"`
	Stale  []string `json:"stale"`
}

// Opener opens the store for one pass. release is called once the pass is over.
type Opener func(ctx context.Context) (db *gorm.DB, release func(), err error)

// Pool returns an Opener over an already open database. Releasing it is a no-op.
func Pool(db *gorm.DB) Opener {
	return func(context.Context) (*gorm.DB, func(), error) {
		return db, func() {}, nil
	}
}

// Ingestor runs reconciliation passes of one dataset.
type Ingestor struct {
	open   Opener
	policy Policy
	cfg    Config
	logger *zap.Logger
}

// New creates an Ingestor. A nil logger disables logging.
func New(open Opener, policy Policy, cfg Config, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{open: open, policy: policy, cfg: cfg, logger: logger}
}

// Run performs one pass: fetch, normalize, then on a single dedicated
// connection insert records whose key is not persisted and delete rows whose
// key is absent from the snapshot. Insert and delete commit separately.
//
// The store is only opened after the snapshot was fetched and normalized, so a
// fetch failure never touches it.
func (i *Ingestor) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), DryRun: i.cfg.DryRun}
	log := i.logger.With(
		zap.String("dataset", i.policy.Name()),
		zap.String("table", i.policy.Table()),
		zap.String("run_id", res.RunID),
	)
	log.Info("Reconciliation pass started", zap.Bool("dry_run", i.cfg.DryRun))

	raw, err := i.policy.Fetch(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrFetch, i.policy.Name(), err)
	}

	records := i.policy.Normalize(raw)
	res.Fetched = len(raw)
	res.Normalized = len(records)
	res.Dropped = len(raw) - len(records)
	log.Info("Snapshot fetched",
		zap.Int("fetched", res.Fetched),
		zap.Int("normalized", res.Normalized),
	)
	if res.Dropped > 0 {
		log.Debug("Records without natural key dropped", zap.Int("dropped", res.Dropped))
	}

	if len(records) < i.cfg.MinSnapshotRows {
		return res, fmt.Errorf("%w: %d rows, minimum %d", ErrSnapshotTooSmall, len(records), i.cfg.MinSnapshotRows)
	}
	if len(records) == 0 {
		log.Warn("Snapshot is empty, pruning will remove every persisted row")
	}

	db, release, err := i.open(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: open: %w", ErrStore, err)
	}
	defer release()

	err = db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		conn = conn.Session(&gorm.Session{})

		if err := i.checkTable(conn); err != nil {
			return err
		}

		fresh, err := i.filterNew(ctx, conn, records)
		if err != nil {
			return err
		}
		res.New = len(fresh)

		if i.cfg.DryRun {
			stale, err := i.staleKeys(ctx, conn, records)
			if err != nil {
				return err
			}
			res.Plan = &Plan{Insert: fresh, Stale: stale}
			return nil
		}

		if len(fresh) > 0 {
			if err := i.policy.InsertBatch(ctx, conn, fresh); err != nil {
				return fmt.Errorf("%w: %w", ErrStore, err)
			}
			res.Inserted = len(fresh)
			log.Info("Inserted new rows", zap.Int("inserted", res.Inserted))
		}

		deleted, err := i.policy.DeleteWhereKeyNotIn(ctx, conn, i.policy.KeysOf(records))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStore, err)
		}
		res.Deleted = deleted
		if deleted > 0 {
			log.Info("Pruned stale rows", zap.Int64("deleted", deleted))
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrStore) && !errors.Is(err, ErrSchema) {
			err = fmt.Errorf("%w: acquire connection: %w", ErrStore, err)
		}
		return res, err
	}

	if res.Plan != nil {
		log.Info("Dry run: no changes were made",
			zap.Int("would_insert", len(res.Plan.Insert)),
			zap.Int("would_delete", len(res.Plan.Stale)),
		)
		return res, nil
	}

	log.Info("Reconciliation pass done",
		zap.Int("inserted", res.Inserted),
		zap.Int64("deleted", res.Deleted),
		zap.Int("unchanged", res.Normalized-res.New),
	)
	return res, nil
}

// checkTable verifies the target table carries the natural-key column.
func (i *Ingestor) checkTable(conn *gorm.DB) error {
	ok, err := database.HasColumn(conn, i.policy.Table(), i.policy.KeyColumn())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if !ok {
		return fmt.Errorf("%w: table %s has no column %s", ErrSchema, i.policy.Table(), i.policy.KeyColumn())
	}
	return nil
}

// filterNew returns the records whose key is not persisted yet, in snapshot
// order. A key repeated in the snapshot is only returned once (first wins).
func (i *Ingestor) filterNew(ctx context.Context, conn *gorm.DB, records Snapshot) (Snapshot, error) {
	column := i.policy.KeyColumn()

	candidates := make(Snapshot, 0, len(records))
	keys := make([]string, 0, len(records))
	seen := make(KeySet, len(records))
	for _, rec := range records {
		k := KeyOf(rec, column)
		if k == "" || seen.Has(k) {
			continue
		}
		seen[k] = struct{}{}
		candidates = append(candidates, rec)
		keys = append(keys, k)
	}

	fresh := make(Snapshot, 0, len(candidates))

	if prober, ok := i.policy.(KeyProber); ok {
		existing, err := prober.ExistingKeys(ctx, conn, keys)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		for idx, rec := range candidates {
			if !existing.Has(keys[idx]) {
				fresh = append(fresh, rec)
			}
		}
		return fresh, nil
	}

	for idx, rec := range candidates {
		exists, err := i.policy.Exists(ctx, conn, keys[idx])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		if !exists {
			fresh = append(fresh, rec)
		}
	}
	return fresh, nil
}

// staleKeys lists persisted keys that pruning would delete.
func (i *Ingestor) staleKeys(ctx context.Context, conn *gorm.DB, records Snapshot) ([]string, error) {
	lister, ok := i.policy.(KeyLister)
	if !ok {
		return nil, fmt.Errorf("dataset %s cannot list persisted keys for a dry run", i.policy.Name())
	}
	persisted, err := lister.PersistedKeys(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	current := i.policy.KeysOf(records)
	stale := make(KeySet)
	for k := range persisted {
		if !current.Has(k) {
			stale[k] = struct{}{}
		}
	}
	return stale.Sorted(), nil
}
