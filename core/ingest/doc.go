// Package ingest reconciles a relational table with the latest snapshot of an
// external dataset.
//
// A pass makes the set of natural keys in the table equal to the set of keys
// in the normalized snapshot:
//
//  1. Fetch the raw snapshot from the dataset's source.
//  2. Normalize it; records without a natural key are dropped.
//  3. On one dedicated connection, find the records whose key is not persisted.
//  4. Insert them in one transaction.
//  5. Delete every row whose key is absent from the snapshot, in one transaction.
//
// Rows that already exist are never updated: their non-key columns keep the
// values of the insert that created them.
//
// # Policies
//
// Dataset specifics live behind the Policy interface. TableDataset provides
// the SQL half for tables with a single key column, so a concrete policy
// usually embeds it and only adds Name, Fetch and Normalize. Policies that
// also implement KeyProber get one IN query per batch of keys instead of one
// probe per record.
//
// # Empty snapshots
//
// An empty snapshot is valid and prunes the whole table. A transient empty or
// partial response from the provider therefore wipes the table. Config.MinSnapshotRows
// refuses to mutate below a threshold; it defaults to 0 (disabled).
package ingest
