package source

import (
	"fmt"
	"time"

	"listing-sync/core/ingest"
	"listing-sync/core/storage"
)

// New builds the source selected by cfg.Kind.
// client and bucket are only used by the object source and may be zero otherwise.
func New(cfg Config, client storage.Client, bucket string) (ingest.Source, error) {
	switch cfg.Kind {
	case KindVCI, "":
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		return NewVCI(cfg.Endpoint, timeout), nil
	case KindObject:
		if client == nil {
			return nil, fmt.Errorf("source %q needs a storage client", cfg.Kind)
		}
		return NewObject(client, bucket, cfg.Object), nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", cfg.Kind)
	}
}
