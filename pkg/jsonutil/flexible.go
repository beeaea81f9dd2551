// Package jsonutil holds small helpers for loosely typed JSON documents.
package jsonutil

import (
	"fmt"

	"github.com/goccy/go-json"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling documents
// that store numbers or booleans where a string is expected. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal.String()
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// Lookup walks nested objects by key and returns the value at the end of the path.
func Lookup(obj map[string]any, keys ...string) (any, bool) {
	var cur any = obj
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// LookupString is Lookup for string leaves. Non-string leaves are formatted
// the way FlexibleStringValue would format them.
func LookupString(obj map[string]any, keys ...string) string {
	v, ok := Lookup(obj, keys...)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return FlexibleStringValue(b)
}

// SetString replaces an existing string at the path. It refuses to create
// intermediate objects and reports whether the value was set.
func SetString(obj map[string]any, value string, keys ...string) bool {
	if len(keys) == 0 {
		return false
	}
	parent, ok := Lookup(obj, keys[:len(keys)-1]...)
	if !ok {
		return false
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return false
	}
	if _, exists := m[keys[len(keys)-1]]; !exists {
		return false
	}
	m[keys[len(keys)-1]] = value
	return true
}
