package devutil

import json "github.com/goccy/go-json"

const redacted = "[redacted]"

// toMap round-trips v through JSON so struct tags decide the key names.
func toMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// Pick returns only the requested top-level keys of v. Useful for log lines.
func Pick(v any, keys ...string) map[string]any {
	m := toMap(v)
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if val, ok := m[k]; ok {
			out[k] = val
		}
	}
	return out
}

// Redact returns v as a map with the given top-level keys masked.
func Redact(v any, keys ...string) map[string]any {
	m := toMap(v)
	for _, k := range keys {
		if _, ok := m[k]; ok {
			m[k] = redacted
		}
	}
	return m
}
