package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrInvalidRecord is wrapped by every ValidationError.
var ErrInvalidRecord = errors.New("invalid record")

// Record is the raw document shape exchanged with a record store.
// Values are whatever a JSON decoder would produce: string, float64,
// bool, []any, map[string]any, or nil.
type Record map[string]any

// ID returns the record's "id" field, or "" when absent.
func (r Record) ID() string {
	s, _ := r["id"].(string)
	return s
}

// Clone returns a shallow copy with array values copied.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if arr, ok := v.([]any); ok {
			cp := make([]any, len(arr))
			copy(cp, arr)
			v = cp
		}
		out[k] = v
	}
	return out
}

// Merge returns a copy of r with every key of patch applied on top.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Keys returns the record's keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidationError lists every problem found while decoding one record.
type ValidationError struct {
	Collection Collection
	ID         string
	Problems   []string
}

func (e *ValidationError) Error() string {
	id := e.ID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("%s %s: %s", e.Collection, id, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }

// decoder accumulates problems while reading typed fields from a Record.
type decoder struct {
	rec      Record
	problems []string
}

func newDecoder(rec Record) *decoder {
	return &decoder{rec: rec}
}

func (d *decoder) fail(format string, args ...any) {
	d.problems = append(d.problems, fmt.Sprintf(format, args...))
}

func (d *decoder) err(c Collection) error {
	if len(d.problems) == 0 {
		return nil
	}
	return &ValidationError{Collection: c, ID: d.rec.ID(), Problems: d.problems}
}

func (d *decoder) str(field string) string {
	v, ok := d.rec[field]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail("%s: expected string, got %T", field, v)
		return ""
	}
	return s
}

func (d *decoder) required(field string) string {
	s := d.str(field)
	if s == "" {
		d.fail("%s: required", field)
	}
	return s
}

func (d *decoder) bounded(field string, min, max int) string {
	s := d.str(field)
	n := len([]rune(s))
	if n < min || n > max {
		d.fail("%s: length %d outside %d..%d", field, n, min, max)
	}
	return s
}

func (d *decoder) list(field string) []string {
	v, ok := d.rec[field]
	if !ok || v == nil {
		return nil
	}
	switch arr := v.(type) {
	case []string:
		out := make([]string, len(arr))
		copy(out, arr)
		return out
	case []any:
		out := make([]string, 0, len(arr))
		for i, item := range arr {
			s, ok := item.(string)
			if !ok {
				d.fail("%s[%d]: expected string, got %T", field, i, item)
				continue
			}
			out = append(out, s)
		}
		return out
	case string:
		// A single relation id is accepted where a list is expected.
		if arr == "" {
			return nil
		}
		return []string{arr}
	default:
		d.fail("%s: expected list, got %T", field, v)
		return nil
	}
}

func (d *decoder) number(field string) float64 {
	v, ok := d.rec[field]
	if !ok || v == nil {
		d.fail("%s: required", field)
		return 0
	}
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			d.fail("%s: not a finite number", field)
		}
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		d.fail("%s: expected number, got %T", field, v)
		return 0
	}
}

func (d *decoder) timestamp(field string) time.Time {
	s := d.str(field)
	if s == "" {
		d.fail("%s: required", field)
		return time.Time{}
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		d.fail("%s: %v", field, err)
	}
	return t
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
