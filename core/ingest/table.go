package ingest

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"
)

// identifier restricts table and column names to plain (optionally schema
// qualified) SQL identifiers, so they can be written into statements unquoted.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

const (
	defaultProbeBatchSize  = 500
	defaultInsertBatchSize = 200
)

// TableDataset implements the store side of a Policy for a table with a single
// natural-key column. Dataset policies embed it and add Name, Fetch and Normalize.
type TableDataset struct {
	table       string
	key         string
	columns     []string
	probeBatch  int
	insertBatch int
}

// TableOption customizes a TableDataset.
type TableOption func(*TableDataset)

// WithProbeBatchSize sets the number of keys per existence query.
func WithProbeBatchSize(n int) TableOption {
	return func(t *TableDataset) {
		if n > 0 {
			t.probeBatch = n
		}
	}
}

// WithInsertBatchSize sets the number of rows per INSERT statement.
func WithInsertBatchSize(n int) TableOption {
	return func(t *TableDataset) {
		if n > 0 {
			t.insertBatch = n
		}
	}
}

// NewTableDataset validates the identifiers and returns the table side of a dataset.
// The key column is added to columns when it is not listed.
func NewTableDataset(table, key string, columns []string, opts ...TableOption) (*TableDataset, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if !identifier.MatchString(key) {
		return nil, fmt.Errorf("invalid key column %q", key)
	}

	cols := make([]string, 0, len(columns)+1)
	hasKey := false
	for _, c := range columns {
		if !identifier.MatchString(c) {
			return nil, fmt.Errorf("invalid column name %q", c)
		}
		if c == key {
			hasKey = true
		}
		cols = append(cols, c)
	}
	if !hasKey {
		cols = append([]string{key}, cols...)
	}

	t := &TableDataset{
		table:       table,
		key:         key,
		columns:     cols,
		probeBatch:  defaultProbeBatchSize,
		insertBatch: defaultInsertBatchSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Table returns the target table.
func (t *TableDataset) Table() string { return t.table }

// KeyColumn returns the natural-key column.
func (t *TableDataset) KeyColumn() string { return t.key }

// Columns returns the columns written on insert.
func (t *TableDataset) Columns() []string { return t.columns }

// Project restricts rec to the dataset columns.
func (t *TableDataset) Project(rec Record) Record { return Project(rec, t.columns) }

// KeysOf returns the natural keys present in s.
func (t *TableDataset) KeysOf(s Snapshot) KeySet { return KeysOf(s, t.key) }

// Exists counts rows with the given key.
func (t *TableDataset) Exists(ctx context.Context, conn *gorm.DB, key string) (bool, error) {
	var n int64
	err := conn.WithContext(ctx).Table(t.table).Where(t.key+" = ?", key).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("probe %s=%s: %w", t.key, key, err)
	}
	return n > 0, nil
}

// ExistingKeys returns which of keys are persisted, querying probeBatch keys at a time.
// A returned row only settles the key it equals byte for byte. The column
// collation may fold case or padding, so once a batch matched any row, its keys
// without an exact match are checked with Exists.
func (t *TableDataset) ExistingKeys(ctx context.Context, conn *gorm.DB, keys []string) (KeySet, error) {
	found := make(KeySet, len(keys))
	for start := 0; start < len(keys); start += t.probeBatch {
		end := min(start+t.probeBatch, len(keys))
		chunk := keys[start:end]

		var present []string
		err := conn.WithContext(ctx).
			Table(t.table).
			Where(t.key+" IN ?", chunk).
			Pluck(t.key, &present).Error
		if err != nil {
			return nil, fmt.Errorf("probe %d keys in %s: %w", len(chunk), t.table, err)
		}
		if len(present) == 0 {
			continue
		}

		matched := make(KeySet, len(present))
		for _, k := range present {
			matched[k] = struct{}{}
		}
		for _, k := range chunk {
			if matched.Has(k) {
				found[k] = struct{}{}
				continue
			}
			ok, err := t.Exists(ctx, conn, k)
			if err != nil {
				return nil, err
			}
			if ok {
				found[k] = struct{}{}
			}
		}
	}
	return found, nil
}

// PersistedKeys lists every key currently in the table.
func (t *TableDataset) PersistedKeys(ctx context.Context, conn *gorm.DB) (KeySet, error) {
	var keys []string
	if err := conn.WithContext(ctx).Table(t.table).Pluck(t.key, &keys).Error; err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", t.table, err)
	}
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set, nil
}

// InsertBatch writes all records in one transaction, insertBatch rows per statement.
func (t *TableDataset) InsertBatch(ctx context.Context, conn *gorm.DB, records Snapshot) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, t.Project(rec))
	}

	// A single chunk commits through the default transaction of Create,
	// several chunks share one transaction opened by CreateInBatches
	if err := conn.WithContext(ctx).Table(t.table).CreateInBatches(rows, t.insertBatch).Error; err != nil {
		return fmt.Errorf("insert into %s: %w", t.table, err)
	}
	return nil
}

// DeleteWhereKeyNotIn removes every row whose key is not in keys, in one transaction.
// Rows with a NULL key are never part of a snapshot and are removed as well.
// An empty set removes every row.
func (t *TableDataset) DeleteWhereKeyNotIn(ctx context.Context, conn *gorm.DB, keys KeySet) (int64, error) {
	var deleted int64
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res *gorm.DB
		if len(keys) == 0 {
			res = tx.Exec("DELETE FROM " + t.table)
		} else {
			res = tx.Exec("DELETE FROM "+t.table+" WHERE "+t.key+" NOT IN ? OR "+t.key+" IS NULL", keys.Sorted())
		}
		if res.Error != nil {
			return fmt.Errorf("delete stale rows from %s: %w", t.table, res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}
