// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client (AWS S3 or self-hosted MinIO). The ingest job
// only reads from storage: a dataset may be fed from a JSON snapshot object
// dropped into a bucket by an upstream exporter instead of a live provider.
//
// # Client Interface
//
// The Client interface is kept to the calls the job makes, which keeps the
// testify mock in core/storage/mocks small.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	exists, err := client.BucketExists(ctx, "market-data")
package storage
