package seed

import (
	"context"

	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

// Sink stores embedded entries.
type Sink interface {
	Save(ctx context.Context, entries []entry.Entry) error
}
