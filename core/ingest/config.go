package ingest

// Config holds the per-run settings of the ingest job.
type Config struct {
	// Table overrides the dataset's default target table when set.
	Table string `mapstructure:"table" default:""`
	// DryRun computes the pass without writing anything.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// MinSnapshotRows refuses to mutate the table when the normalized snapshot
	// has fewer rows. 0 disables the guard, so an empty snapshot prunes every row.
	MinSnapshotRows int `mapstructure:"min_snapshot_rows" default:"0"`
	// ProbeBatchSize is the number of keys per existence query.
	ProbeBatchSize int `mapstructure:"probe_batch_size" default:"500"`
	// InsertBatchSize is the number of rows per INSERT statement.
	InsertBatchSize int `mapstructure:"insert_batch_size" default:"200"`
}
