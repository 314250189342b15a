package model

import (
	"bytes"
	"encoding/json"
	"iter"
)

// Result keys recorded by the conductor.
const (
	KeyNoopDetection = "NOOP Detection"
	KeyDetection     = "Detection"
	KeyLocalization  = "Localization"
	KeyMitigation    = "Mitigation"
	KeyTTD           = "TTD"
	KeyTTL           = "TTL"
	KeyTTM           = "TTM"
	KeyAborted       = "Aborted"
)

// Cloner is implemented by values that own mutable state and must be deep-copied into snapshots.
type Cloner interface {
	CloneValue() any
}

type entry struct {
	key   string
	value any
}

// Results is an insertion-ordered, insert-only accumulator of graded outcomes.
// It is not safe for concurrent use; the conductor guards it and hands out clones.
type Results struct {
	entries []entry
	index   map[string]int
}

// NewResults creates an empty accumulator.
func NewResults() *Results {
	return &Results{index: make(map[string]int)}
}

// Insert records value under key. It returns false and leaves the accumulator unchanged when key exists.
func (r *Results) Insert(key string, value any) bool {
	if _, ok := r.index[key]; ok {
		return false
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, entry{key: key, value: value})
	return true
}

// Get returns the value recorded under key.
func (r *Results) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.entries[i].value, true
}

// Has reports whether key was recorded.
func (r *Results) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Len returns the number of recorded keys.
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Keys returns the recorded keys in insertion order.
func (r *Results) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// All iterates the recorded entries in insertion order.
func (r *Results) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if r == nil {
			return
		}
		for _, e := range r.entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Clone returns an independent deep copy.
func (r *Results) Clone() *Results {
	out := NewResults()
	if r == nil {
		return out
	}
	out.entries = make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		out.index[e.key] = len(out.entries)
		out.entries = append(out.entries, entry{key: e.key, value: cloneValue(e.value)})
	}
	return out
}

// MarshalJSON encodes the accumulator as a JSON object, preserving insertion order.
func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r != nil {
		for i, e := range r.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.key)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(e.value)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Cloner:
		return val.CloneValue()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
