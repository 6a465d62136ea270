package telemetry

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawRecord is a backend object decoded without a schema.
type RawRecord map[string]any

// timestamp layouts accepted from the backend, most specific first
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (r RawRecord) lookup(key string) (any, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the first key holding a non-empty string.
func (r RawRecord) String(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s, true
			}
		case json.Number:
			return s.String(), true
		case float64:
			return formatFloat(s), true
		}
	}
	return "", false
}

// ID returns the first key holding a string or numeric identifier, rendered
// as a string so integer and string ids compare equal.
func (r RawRecord) ID(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		switch id := v.(type) {
		case string:
			if id = strings.TrimSpace(id); id != "" {
				return id, true
			}
		case json.Number:
			return id.String(), true
		case float64:
			return formatFloat(id), true
		case int:
			return strconv.Itoa(id), true
		case int64:
			return strconv.FormatInt(id, 10), true
		}
	}
	return "", false
}

// Number returns the first key holding a finite number. Numeric strings are
// accepted; null and anything unparseable are treated as absent.
func (r RawRecord) Number(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		var f float64
		var err error
		switch n := v.(type) {
		case float64:
			f = n
		case float32:
			f = float64(n)
		case int:
			f = float64(n)
		case int64:
			f = float64(n)
		case json.Number:
			f, err = n.Float64()
		case string:
			f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
		default:
			continue
		}
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return f, true
	}
	return 0, false
}

// Bool reads a flag the backend may encode as bool, 0/1 or "true"/"1".
func (r RawRecord) Bool(key string) bool {
	v, ok := r.lookup(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "1" || s == "true" || s == "yes"
	}
	if n, ok := r.Number(key); ok {
		return n != 0
	}
	return false
}

// Time parses the first key holding an ISO datetime. Naive timestamps are
// read as UTC.
func (r RawRecord) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		s, ok := r.String(k)
		if !ok {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Object returns a nested object, or nil when the key is absent or not an
// object. Lookups on the nil result report every key as absent.
func (r RawRecord) Object(key string) RawRecord {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	switch o := v.(type) {
	case map[string]any:
		return RawRecord(o)
	case RawRecord:
		return o
	}
	return nil
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
