package apptrove

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestTemplatesExtractorPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantRule string
		want     any
	}{
		{
			name:     "data.items wins over items",
			body:     `{"data":{"items":[{"id":"A"}]},"items":[{"id":"B"}]}`,
			wantRule: ".data.items",
			want:     []any{map[string]any{"id": "A"}},
		},
		{
			name:     "items when data.items missing",
			body:     `{"data":{"count":1},"items":[{"id":"B"}]}`,
			wantRule: ".items",
			want:     []any{map[string]any{"id": "B"}},
		},
		{
			name:     "data.items that is not an array is skipped",
			body:     `{"data":{"items":"oops"},"items":[{"id":"B"}]}`,
			wantRule: ".items",
			want:     []any{map[string]any{"id": "B"}},
		},
		{
			name:     "data as array",
			body:     `{"data":[{"id":"C"}]}`,
			wantRule: ".data",
			want:     []any{map[string]any{"id": "C"}},
		},
		{
			name:     "body itself is an array",
			body:     `[{"id":"D"}]`,
			wantRule: ".",
			want:     []any{map[string]any{"id": "D"}},
		},
		{
			name:     "unknown shape falls back to empty",
			body:     `{"result":"ok"}`,
			wantRule: "default",
			want:     []any{},
		},
		{
			name:     "string body falls back to empty",
			body:     `"hello"`,
			wantRule: "default",
			want:     []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := TemplatesExtractor.Extract(decode(t, tt.body))
			assert.Equal(t, tt.wantRule, rule)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplatesExtractorNilBody(t *testing.T) {
	got, rule := TemplatesExtractor.Extract(nil)
	assert.Equal(t, "default", rule)
	assert.Equal(t, []any{}, got)
}

func TestStatsExtractor(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantRule string
		want     any
	}{
		{
			name:     "data.stats",
			body:     `{"data":{"stats":{"clicks":5}},"stats":{"clicks":9}}`,
			wantRule: ".data.stats",
			want:     map[string]any{"clicks": float64(5)},
		},
		{
			name:     "stats",
			body:     `{"stats":{"installs":2}}`,
			wantRule: ".stats",
			want:     map[string]any{"installs": float64(2)},
		},
		{
			name:     "data object",
			body:     `{"data":{"clicks":1}}`,
			wantRule: ".data",
			want:     map[string]any{"clicks": float64(1)},
		},
		{
			name:     "body object",
			body:     `{"clicks":3}`,
			wantRule: ".",
			want:     map[string]any{"clicks": float64(3)},
		},
		{
			name:     "array falls back to empty object",
			body:     `[1,2]`,
			wantRule: "default",
			want:     map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := StatsExtractor.Extract(decode(t, tt.body))
			assert.Equal(t, tt.wantRule, rule)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinkExtractors(t *testing.T) {
	body := decode(t, `{"data":{"url":"https://u.test/x","id":42},"unilink":"https://u.test/top","_id":"abc"}`)

	unilink, rule := UnilinkExtractor.Extract(body)
	assert.Equal(t, ".unilink", rule)
	assert.Equal(t, "https://u.test/top", unilink)

	id, rule := LinkIDExtractor.Extract(body)
	assert.Equal(t, ".data.id", rule)
	assert.Equal(t, "42", id)

	missing, rule := UnilinkExtractor.Extract(decode(t, `{"data":{"url":""}}`))
	assert.Nil(t, missing)
	assert.Empty(t, rule)
}

func TestRuleApply(t *testing.T) {
	body := map[string]any{"data": map[string]any{"items": []any{"x"}}}

	v, ok := PathRule(".data.items").Apply(body, ShapeArray)
	assert.True(t, ok)
	assert.Equal(t, []any{"x"}, v)

	_, ok = PathRule(".data.items").Apply(body, ShapeObject)
	assert.False(t, ok)

	_, ok = PathRule(".missing.deeper").Apply(body, ShapeArray)
	assert.False(t, ok)

	_, ok = SelfArrayRule().Apply(body, ShapeArray)
	assert.False(t, ok)

	v, ok = SelfObjectRule().Apply(body, ShapeObject)
	assert.True(t, ok)
	assert.Equal(t, body, v)

	v, ok = DefaultRule(func() any { return "fallback" }).Apply(nil, ShapeString)
	assert.True(t, ok)
	assert.Equal(t, "fallback", v)
}

func TestPathRulePanicsOnInvalidExpression(t *testing.T) {
	assert.Panics(t, func() { PathRule(".data[") })
}
