// Package seed embeds corpus records in parallel batches and writes them to storage.
package seed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
	"github.com/kailas-cloud/ragsearch/internal/repository/corpusfile"
)

// Defaults for Config fields left at zero.
const (
	DefaultBatchSize = 64
	DefaultWorkers   = 4
)

// Config tunes batching and parallelism.
type Config struct {
	BatchSize int
	Workers   int
}

// Report summarizes a seeding run.
type Report struct {
	Records  int
	Embedded int
	Saved    int
	Skipped  int
	Failed   int
}

// Service seeds a corpus.
type Service struct {
	embedder domain.Embedder
	sink     Sink
	cfg      Config
	logger   *zap.Logger
}

// New creates a seeding service.
func New(embedder domain.Embedder, sink Sink, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Service{embedder: embedder, sink: sink, cfg: cfg, logger: logger}
}

// Run embeds records lacking a vector and saves every valid record. Records
// without an ID get a generated one. Batch failures are counted and joined
// into the returned error; successful batches stay saved.
func (s *Service) Run(ctx context.Context, records []corpusfile.Record) (Report, error) {
	rep := Report{Records: len(records)}

	valid := make([]corpusfile.Record, 0, len(records))
	for _, r := range records {
		if r.Text == "" {
			rep.Skipped++
			continue
		}
		if r.ID == "" {
			r.ID = corpus.NewID()
		}
		valid = append(valid, r)
	}

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return rep, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errs     []error
		embedded atomic.Int64
		saved    atomic.Int64
		failed   atomic.Int64
	)

	for start := 0; start < len(valid); start += s.cfg.BatchSize {
		batch := valid[start:min(start+s.cfg.BatchSize, len(valid))]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			n, err := s.process(ctx, batch)
			embedded.Add(int64(n))
			if err != nil {
				failed.Add(int64(len(batch)))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				s.logger.Warn("Seed batch failed", zap.Int("size", len(batch)), zap.Error(err))
				return
			}
			saved.Add(int64(len(batch)))
			s.logger.Debug("Seed batch saved", zap.Int("size", len(batch)))
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			failed.Add(int64(len(batch)))
			mu.Lock()
			errs = append(errs, fmt.Errorf("submit batch: %w", err))
			mu.Unlock()
		}
	}
	wg.Wait()

	rep.Embedded = int(embedded.Load())
	rep.Saved = int(saved.Load())
	rep.Failed = int(failed.Load())
	s.logger.Info("Seeding finished",
		zap.Int("records", rep.Records),
		zap.Int("embedded", rep.Embedded),
		zap.Int("saved", rep.Saved),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
	)
	return rep, errors.Join(errs...)
}

// process embeds the batch records that have no vector and saves the whole batch.
// Returns how many records were embedded.
func (s *Service) process(ctx context.Context, batch []corpusfile.Record) (int, error) {
	var idx []int
	var texts []string
	for i := range batch {
		if len(batch[i].Vector) == 0 {
			idx = append(idx, i)
			texts = append(texts, batch[i].Text)
		}
	}

	vectors := make(map[int][]float32, len(idx))
	if len(texts) > 0 {
		res, err := domain.EmbedBatch(ctx, s.embedder, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch: %w", err)
		}
		if len(res.Embeddings) != len(texts) {
			return 0, fmt.Errorf("expected %d embeddings, got %d: %w",
				len(texts), len(res.Embeddings), domain.ErrEmbeddingProviderError)
		}
		for j, i := range idx {
			vectors[i] = res.Embeddings[j]
		}
	}

	entries := make([]entry.Entry, 0, len(batch))
	for i := range batch {
		r := batch[i]
		if v, ok := vectors[i]; ok {
			r.Vector = v
		}
		e, err := r.Entry()
		if err != nil {
			return len(idx), fmt.Errorf("record %q: %w", r.ID, err)
		}
		entries = append(entries, e)
	}

	if err := s.sink.Save(ctx, entries); err != nil {
		return len(idx), fmt.Errorf("save batch: %w", err)
	}
	return len(idx), nil
}
