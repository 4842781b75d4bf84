package source

import (
	"context"
	"encoding/json"
	"fmt"

	"listing-sync/core/ingest"
	"listing-sync/core/storage"

	"github.com/minio/minio-go/v7"
)

// Object reads a snapshot stored as a JSON array of objects in a bucket.
type Object struct {
	client storage.Client
	bucket string
	name   string
}

// NewObject creates a source reading bucket/name.
func NewObject(client storage.Client, bucket, name string) *Object {
	return &Object{client: client, bucket: bucket, name: name}
}

// Fetch downloads and decodes the snapshot object.
func (o *Object) Fetch(ctx context.Context) (ingest.Snapshot, error) {
	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", o.bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", o.bucket)
	}

	reader, err := o.client.GetObject(ctx, o.bucket, o.name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", o.bucket, o.name, err)
	}
	defer reader.Close()

	var rows []map[string]any
	if err := json.NewDecoder(reader).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", o.bucket, o.name, err)
	}

	snap := make(ingest.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap = append(snap, ingest.Record(row))
	}
	return snap, nil
}
