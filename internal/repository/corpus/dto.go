package corpus

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

// Hash field names.
const (
	fieldID        = "id"
	fieldText      = "text"
	fieldVector    = "vector"
	fieldCategory  = "category"
	fieldTimestamp = "timestamp"
	fieldMetadata  = "metadata"
)

// buildHashFields flattens an entry for HSET. Category and timestamp get their
// own fields; any other metadata is stored as one JSON field.
func buildHashFields(e *entry.Entry) (map[string]string, error) {
	m := map[string]string{
		fieldID:   e.ID(),
		fieldText: e.Text(),
	}
	if e.Dim() > 0 {
		m[fieldVector] = string(domain.EncodeVector(e.Embedding()))
	}

	extra := make(map[string]any)
	for k, v := range e.Metadata() {
		switch k {
		case entry.MetaCategory:
			m[fieldCategory] = fmt.Sprint(v)
		case entry.MetaTimestamp:
			m[fieldTimestamp] = formatTimestamp(v)
		default:
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		raw, err := json.Marshal(extra)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata for %s: %w", e.ID(), err)
		}
		m[fieldMetadata] = string(raw)
	}
	return m, nil
}

// parseHashFields rebuilds an entry from HGETALL output. fallbackID is used when
// the hash predates the id field.
func parseHashFields(fallbackID string, m map[string]string) (entry.Entry, error) {
	id := m[fieldID]
	if id == "" {
		id = fallbackID
	}

	var vector []float32
	if raw, ok := m[fieldVector]; ok && raw != "" {
		v, err := domain.DecodeVector([]byte(raw))
		if err != nil {
			return entry.Entry{}, fmt.Errorf("entry %s: %w", id, err)
		}
		vector = v
	}

	meta := make(map[string]any)
	if raw := m[fieldMetadata]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return entry.Entry{}, fmt.Errorf("entry %s metadata: %w", id, err)
		}
	}
	if c, ok := m[fieldCategory]; ok {
		meta[entry.MetaCategory] = c
	}
	if ts, ok := m[fieldTimestamp]; ok {
		meta[entry.MetaTimestamp] = parseTimestamp(ts)
	}
	if len(meta) == 0 {
		meta = nil
	}

	return entry.Reconstruct(id, m[fieldText], vector, meta), nil
}

func formatTimestamp(v any) string {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// parseTimestamp keeps numeric timestamps numeric (epoch milliseconds).
func parseTimestamp(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
