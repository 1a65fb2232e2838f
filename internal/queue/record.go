package queue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Payload is the job body carried through the pipeline. The codec preserves
// values across a round trip; numbers decode as json.Number so integer ids
// and view counts are not flattened into floats.
type Payload map[string]any

// Clone returns a deep copy of the payload. Nested maps and slices are
// copied; scalar values are shared.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for key, value := range p {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case Payload:
		return v.Clone()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, nested := range v {
			out[key] = cloneValue(nested)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, nested := range v {
			out[i] = cloneValue(nested)
		}
		return out
	default:
		return v
	}
}

// Record is the stored envelope for one queued job. EnqueuedAt is assigned at
// push time and is the sole ordering key; filesystem timestamps are never
// consulted for ordering.
type Record struct {
	ID         string    `json:"id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Payload    Payload   `json:"payload"`
}

// EncodeRecord renders the record as indented JSON with a trailing newline.
// Records are read by humans during incident triage as often as by the
// store, so the encoding stays diff-friendly.
func EncodeRecord(rec Record) ([]byte, error) {
	if rec.ID == "" {
		return nil, errors.New("encode record: id is required")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return buf.Bytes(), nil
}

// DecodeRecord parses a record previously produced by EncodeRecord. Malformed
// bytes or an envelope without an id yield a CorruptRecordError.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return Record{}, &CorruptRecordError{Err: err}
	}
	if rec.ID == "" {
		return Record{}, &CorruptRecordError{Err: errors.New("envelope missing id")}
	}
	return rec, nil
}
