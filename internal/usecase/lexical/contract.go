package lexical

import "github.com/kailas-cloud/ragsearch/internal/corpus"

// SnapshotReader exposes the current corpus view.
type SnapshotReader interface {
	Snapshot() *corpus.Snapshot
}
