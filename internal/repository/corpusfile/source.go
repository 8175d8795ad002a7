// Package corpusfile loads a corpus from a YAML or JSON document.
package corpusfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

// Document is the on-disk layout. JSON is valid YAML, so one parser reads both.
type Document struct {
	Entries []Record `yaml:"entries" json:"entries"`
}

// Record is one corpus entry as written in the file.
type Record struct {
	ID        string         `yaml:"id" json:"id"`
	Text      string         `yaml:"text" json:"text"`
	Vector    []float32      `yaml:"vector,omitempty" json:"vector,omitempty"`
	Category  string         `yaml:"category,omitempty" json:"category,omitempty"`
	Timestamp int64          `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	Metadata  map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Source reads entries from a file on every Load.
type Source struct {
	path   string
	logger *zap.Logger
}

// New creates a file-backed corpus source.
func New(path string, logger *zap.Logger) *Source {
	return &Source{path: path, logger: logger}
}

// Load parses the file. Records without an ID or text are skipped and logged.
func (s *Source) Load(_ context.Context) ([]entry.Entry, error) {
	doc, err := ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	entries := make([]entry.Entry, 0, len(doc.Entries))
	for i := range doc.Entries {
		e, err := doc.Entries[i].Entry()
		if err != nil {
			s.logger.Warn("Skipping invalid corpus record",
				zap.String("path", s.path), zap.Int("index", i), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}

	s.logger.Info("Corpus file loaded",
		zap.String("path", s.path),
		zap.Int("records", len(doc.Entries)),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// ReadFile parses a corpus document.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Document{}, fmt.Errorf("failed to read corpus file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON corpus document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse corpus file: %w", err)
	}
	return doc, nil
}

// Entry converts the record. Category and timestamp land in metadata.
func (r *Record) Entry() (entry.Entry, error) {
	meta := entry.CloneMetadata(r.Metadata)
	if r.Category != "" || r.Timestamp != 0 {
		if meta == nil {
			meta = make(map[string]any, 2)
		}
		if r.Category != "" {
			meta[entry.MetaCategory] = r.Category
		}
		if r.Timestamp != 0 {
			meta[entry.MetaTimestamp] = r.Timestamp
		}
	}
	return entry.New(r.ID, r.Text, r.Vector, meta)
}
