package corpusfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

const yamlCorpus = `
entries:
  - id: "0"
    text: "Cats are small domesticated carnivorous mammals."
    vector: [1, 0, 0]
    category: pets
    timestamp: 1700000000000
  - id: "1"
    text: "Dogs are loyal companions."
    vector: [0, 1, 0]
    metadata:
      source: wiki
  - id: ""
    text: "missing id"
  - id: "3"
    text: "no vector yet"
`

const jsonCorpus = `{"entries":[{"id":"a","text":"alpha","vector":[0.5,0.5],"category":"letters"}]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	src := New(writeFile(t, "corpus.yaml", yamlCorpus), zap.NewNop())

	entries, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries (invalid skipped), got %d", len(entries))
	}

	cat := entries[0]
	if cat.ID() != "0" || cat.Dim() != 3 {
		t.Errorf("unexpected first entry %q dim=%d", cat.ID(), cat.Dim())
	}
	if cat.Metadata()[entry.MetaCategory] != "pets" {
		t.Errorf("category = %v", cat.Metadata()[entry.MetaCategory])
	}
	if cat.Metadata()[entry.MetaTimestamp] != int64(1700000000000) {
		t.Errorf("timestamp = %v", cat.Metadata()[entry.MetaTimestamp])
	}
	if entries[1].Metadata()["source"] != "wiki" {
		t.Errorf("expected free-form metadata, got %v", entries[1].Metadata())
	}
	if entries[2].Dim() != 0 || entries[2].Metadata() != nil {
		t.Errorf("expected bare entry, got dim=%d meta=%v", entries[2].Dim(), entries[2].Metadata())
	}
}

func TestLoad_JSON(t *testing.T) {
	src := New(writeFile(t, "corpus.json", jsonCorpus), zap.NewNop())

	entries, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].Text() != "alpha" {
		t.Fatalf("unexpected entries %v", entries)
	}
	if entries[0].Metadata()[entry.MetaCategory] != "letters" {
		t.Errorf("category = %v", entries[0].Metadata()[entry.MetaCategory])
	}
}

func TestLoad_MissingFile(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop())
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("entries: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}
