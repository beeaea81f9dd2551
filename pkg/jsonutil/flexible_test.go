package jsonutil

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{name: "string value", input: json.RawMessage(`"hello"`), want: "hello"},
		{name: "integer value", input: json.RawMessage(`42`), want: "42"},
		{name: "float value", input: json.RawMessage(`3.14`), want: "3.14"},
		{name: "boolean true", input: json.RawMessage(`true`), want: "true"},
		{name: "boolean false", input: json.RawMessage(`false`), want: "false"},
		{name: "null value", input: json.RawMessage(`null`), want: ""},
		{name: "empty raw message", input: json.RawMessage{}, want: ""},
		{name: "nil raw message", input: nil, want: ""},
		{name: "large integer preserves precision", input: json.RawMessage(`9007199254740993`), want: "9007199254740993"},
		{name: "nested object falls back to raw string", input: json.RawMessage(`{"a":1}`), want: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleStringValue(tt.input))
		})
	}
}

func TestLookupAndSetString(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"dataset_definition": {
			"name": "tracks.csv",
			"s3ExecutionContext": {"s3Uri": "s3://old/tracks.csv", "s3HasHeader": true}
		}
	}`), &doc))

	assert.Equal(t, "tracks.csv", LookupString(doc, "dataset_definition", "name"))
	assert.Equal(t, "true", LookupString(doc, "dataset_definition", "s3ExecutionContext", "s3HasHeader"))
	assert.Equal(t, "", LookupString(doc, "dataset_definition", "missing"))
	assert.Equal(t, "", LookupString(doc, "dataset_definition", "name", "deeper"))

	assert.True(t, SetString(doc, "s3://new/tracks.csv", "dataset_definition", "s3ExecutionContext", "s3Uri"))
	assert.Equal(t, "s3://new/tracks.csv", LookupString(doc, "dataset_definition", "s3ExecutionContext", "s3Uri"))

	assert.False(t, SetString(doc, "x", "dataset_definition", "s3ExecutionContext", "absent"))
	assert.False(t, SetString(doc, "x", "nope", "s3Uri"))
	assert.False(t, SetString(doc, "x"))
}
