// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest

import (
	"fmt"
	"time"

	"github.com/taibuivan/parseadmin/internal/storage"
)

// # Encoded Values

// isoLayout is the millisecond UTC layout used for every encoded date.
const isoLayout = "2006-01-02T15:04:05.000Z"

// EncodeDate returns the wire form {__type: "Date", iso: ...} of t.
func EncodeDate(t time.Time) map[string]any {
	return map[string]any{"__type": "Date", "iso": t.UTC().Format(isoLayout)}
}

// FormatISO formats t the way encoded dates and timestamps are rendered.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// DecodeDate reads a date that crossed the storage boundary. An encoded value
// is recognised by its __type before anything else; a native date is accepted
// as a fallback.
func DecodeDate(v any) (time.Time, error) {
	if m, ok := storage.AsMap(v); ok {
		if m["__type"] != "Date" {
			return time.Time{}, fmt.Errorf("rest: value is not an encoded date")
		}
		iso, _ := m["iso"].(string)
		parsed, err := time.Parse(time.RFC3339Nano, iso)
		if err != nil {
			return time.Time{}, fmt.Errorf("rest: invalid iso date %q: %w", iso, err)
		}
		return parsed.UTC(), nil
	}

	if t, ok := storage.AsTime(v); ok {
		return t.UTC(), nil
	}

	if s, ok := v.(string); ok {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("rest: value %T is not a date", v)
}

// DeleteOp is the update operand that removes a field.
func DeleteOp() map[string]any {
	return map[string]any{"__op": "Delete"}
}

func isDeleteOp(v any) bool {
	m, ok := storage.AsMap(v)
	return ok && m["__op"] == "Delete"
}

func isEncodedDate(v any) bool {
	m, ok := storage.AsMap(v)
	return ok && m["__type"] == "Date"
}
