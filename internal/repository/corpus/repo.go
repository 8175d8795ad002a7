// Package corpus persists corpus entries as Redis hashes.
package corpus

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/db"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

// fetchBatch caps the number of HGETALLs pipelined in one round-trip.
const fetchBatch = 500

// store is the consumer interface for the corpus repository (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements corpus.Source and corpus.Sink over Redis hashes
// stored at "<prefix>corpus:<id>".
type Repo struct {
	store     store
	keyPrefix string
	logger    *zap.Logger
}

// New creates a corpus repository. prefix namespaces every key.
func New(s store, prefix string, logger *zap.Logger) *Repo {
	return &Repo{store: s, keyPrefix: prefix + "corpus:", logger: logger}
}

// Load reads every stored entry, ordered by key so loads are deterministic.
// Malformed hashes are skipped and logged.
func (r *Repo) Load(ctx context.Context) ([]entry.Entry, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]entry.Entry, 0, len(keys))
	for start := 0; start < len(keys); start += fetchBatch {
		batch := keys[start:min(start+fetchBatch, len(keys))]
		hashes, err := r.store.HGetAllMulti(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("fetch corpus entries: %w", err)
		}
		for i, m := range hashes {
			if len(m) == 0 {
				continue
			}
			e, err := parseHashFields(strings.TrimPrefix(batch[i], r.keyPrefix), m)
			if err != nil {
				r.logger.Warn("Skipping malformed corpus entry", zap.String("key", batch[i]), zap.Error(err))
				continue
			}
			entries = append(entries, e)
		}
	}

	r.logger.Debug("Corpus entries fetched", zap.Int("entries", len(entries)))
	return entries, nil
}

// Save writes entries in one pipelined round-trip, replacing existing hashes with the same ID.
func (r *Repo) Save(ctx context.Context, entries []entry.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(entries))
	for i := range entries {
		fields, err := buildHashFields(&entries[i])
		if err != nil {
			return err
		}
		items[i] = db.HashSetItem{Key: r.key(entries[i].ID()), Fields: fields}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("save corpus entries: %w", err)
	}
	return nil
}

// Delete removes one entry. Returns false if it did not exist.
func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.store.Del(ctx, r.key(id))
	if err != nil {
		return false, fmt.Errorf("delete corpus entry %s: %w", id, err)
	}
	return n > 0, nil
}

// Clear removes every stored entry and returns how many were deleted.
func (r *Repo) Clear(ctx context.Context) (int64, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for start := 0; start < len(keys); start += fetchBatch {
		n, err := r.store.Del(ctx, keys[start:min(start+fetchBatch, len(keys))]...)
		if err != nil {
			return total, fmt.Errorf("clear corpus: %w", err)
		}
		total += n
	}
	return total, nil
}

// Count returns the number of stored entries.
func (r *Repo) Count(ctx context.Context) (int, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (r *Repo) keys(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan corpus keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Repo) key(id string) string {
	return r.keyPrefix + id
}
