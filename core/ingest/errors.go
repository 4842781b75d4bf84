package ingest

import "errors"

var (
	// ErrFetch marks a failure to obtain the snapshot from the source.
	// Nothing has been written when it is returned.
	ErrFetch = errors.New("fetch snapshot")

	// ErrStore marks a connection or SQL failure. Steps committed earlier in
	// the same pass stay committed.
	ErrStore = errors.New("store")

	// ErrSchema marks a target table that does not satisfy the dataset contract.
	ErrSchema = errors.New("table contract")

	// ErrSnapshotTooSmall is returned when the normalized snapshot is below
	// the configured minimum row count. Nothing has been written.
	ErrSnapshotTooSmall = errors.New("snapshot below minimum row count")
)
