package ingest

import (
	"context"

	"gorm.io/gorm"
)

// Source yields the current full snapshot of one dataset.
type Source interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// Policy supplies everything dataset specific that a reconciliation pass needs.
// The Ingestor drives it; a Policy never commits outside InsertBatch and
// DeleteWhereKeyNotIn.
type Policy interface {
	// Name identifies the dataset in logs (e.g. "listed_stock").
	Name() string
	// Table is the target table.
	Table() string
	// KeyColumn is the natural-key column.
	KeyColumn() string

	// Fetch returns the raw snapshot from the source.
	Fetch(ctx context.Context) (Snapshot, error)
	// Normalize drops invalid records and returns the cleaned snapshot.
	// Every returned record has a non-empty natural key.
	Normalize(raw Snapshot) Snapshot
	// Exists reports whether a row with key is already persisted.
	Exists(ctx context.Context, conn *gorm.DB, key string) (bool, error)
	// KeysOf extracts the natural-key set used for pruning.
	KeysOf(s Snapshot) KeySet
	// InsertBatch inserts records in one transaction.
	InsertBatch(ctx context.Context, conn *gorm.DB, records Snapshot) error
	// DeleteWhereKeyNotIn deletes every row whose key is outside keys in one
	// transaction and returns the number of deleted rows. An empty set deletes all rows.
	DeleteWhereKeyNotIn(ctx context.Context, conn *gorm.DB, keys KeySet) (int64, error)
}

// KeyProber is implemented by policies that can check many keys in one query.
// ExistingKeys returns the subset of keys that are already persisted.
type KeyProber interface {
	ExistingKeys(ctx context.Context, conn *gorm.DB, keys []string) (KeySet, error)
}

// KeyLister is implemented by policies that can list every persisted key.
// It is needed for dry-run planning.
type KeyLister interface {
	PersistedKeys(ctx context.Context, conn *gorm.DB) (KeySet, error)
}
