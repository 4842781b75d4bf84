package listedstock

import (
	"context"
	"fmt"

	"listing-sync/core/ingest"
)

const (
	// Name identifies the dataset.
	Name = "listed_stock"
	// DefaultTable is the table the dataset is written to.
	DefaultTable = "listed_stock"
	// KeyColumn is the natural key: the exchange ticker.
	KeyColumn = "symbol"
)

// Columns are the listing columns persisted per symbol.
var Columns = []string{
	"symbol",
	"organ_name",
	"en_organ_name",
	"icb_name3",
	"en_icb_name3",
	"icb_name2",
	"en_icb_name2",
	"icb_name4",
	"en_icb_name4",
	"com_type_code",
	"icb_code1",
	"icb_code2",
	"icb_code3",
	"icb_code4",
}

// Dataset is the ingest policy for listed stocks grouped by industry.
type Dataset struct {
	*ingest.TableDataset
	source ingest.Source
}

// New creates the dataset writing to table (DefaultTable when empty).
func New(source ingest.Source, table string, opts ...ingest.TableOption) (*Dataset, error) {
	if table == "" {
		table = DefaultTable
	}
	td, err := ingest.NewTableDataset(table, KeyColumn, Columns, opts...)
	if err != nil {
		return nil, fmt.Errorf("listed stock dataset: %w", err)
	}
	return &Dataset{TableDataset: td, source: source}, nil
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return Name }

// Fetch returns the full listing from the source.
func (d *Dataset) Fetch(ctx context.Context) (ingest.Snapshot, error) {
	return d.source.Fetch(ctx)
}

// Normalize drops records without a symbol and projects the rest onto Columns.
// The symbol is stored trimmed.
func (d *Dataset) Normalize(raw ingest.Snapshot) ingest.Snapshot {
	out := make(ingest.Snapshot, 0, len(raw))
	for _, rec := range raw {
		symbol := ingest.KeyOf(rec, KeyColumn)
		if symbol == "" {
			continue
		}
		row := d.Project(rec)
		row[KeyColumn] = symbol
		out = append(out, row)
	}
	return out
}
