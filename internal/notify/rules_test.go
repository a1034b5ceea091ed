package notify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

func TestRuleMatches(t *testing.T) {
	t.Parallel()

	event := sentry.ChangeEvent{
		EventType: "ENTITY_PROPERTY_MODIFIED",
		SourceURL: "https://shop.example.com/products/42",
		Details: map[string]any{
			"property": "price",
			"old":      10.0,
			"new":      12.5,
			"change":   map[string]any{"field": "price", "delta": 2.5},
			"tags":     []any{"pricing", "catalog"},
		},
	}

	tests := []struct {
		name    string
		rule    map[string]any
		matched bool
		wantErr bool
	}{
		{
			name:    "empty rule matches everything",
			rule:    map[string]any{},
			matched: true,
		},
		{
			name:    "event type match",
			rule:    map[string]any{"event_type": "ENTITY_PROPERTY_MODIFIED"},
			matched: true,
		},
		{
			name: "event type mismatch",
			rule: map[string]any{"event_type": "ENTITY_REMOVED"},
		},
		{
			name:    "source url prefix match",
			rule:    map[string]any{"source_url_prefix": "https://shop.example.com/"},
			matched: true,
		},
		{
			name: "source url prefix mismatch",
			rule: map[string]any{"source_url_prefix": "https://other.example.com/"},
		},
		{
			name:    "details field match",
			rule:    map[string]any{"details": map[string]any{"property": "price"}},
			matched: true,
		},
		{
			name: "details field mismatch",
			rule: map[string]any{"details": map[string]any{"property": "title"}},
		},
		{
			name: "details field absent",
			rule: map[string]any{"details": map[string]any{"missing": "x"}},
		},
		{
			name:    "numeric details compare across json types",
			rule:    map[string]any{"details": map[string]any{"old": 10}},
			matched: true,
		},
		{
			name:    "nested object details match",
			rule:    map[string]any{"details": map[string]any{"change": map[string]any{"field": "price", "delta": 2.5}}},
			matched: true,
		},
		{
			name: "nested object details mismatch",
			rule: map[string]any{"details": map[string]any{"change": map[string]any{"field": "title"}}},
		},
		{
			name:    "array details match",
			rule:    map[string]any{"details": map[string]any{"tags": []any{"pricing", "catalog"}}},
			matched: true,
		},
		{
			name: "all keys must match",
			rule: map[string]any{
				"event_type":        "ENTITY_PROPERTY_MODIFIED",
				"source_url_prefix": "https://other.example.com/",
			},
		},
		{
			name: "combined keys all matching",
			rule: map[string]any{
				"event_type":        "ENTITY_PROPERTY_MODIFIED",
				"source_url_prefix": "https://shop.example.com/",
				"details":           map[string]any{"property": "price"},
			},
			matched: true,
		},
		{
			name:    "unknown key is an error",
			rule:    map[string]any{"severity": "high"},
			wantErr: true,
		},
		{
			name:    "wrong value type is an error",
			rule:    map[string]any{"event_type": 7},
			wantErr: true,
		},
		{
			name:    "details must be an object",
			rule:    map[string]any{"details": "price"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			matched, err := RuleMatches(tt.rule, event)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.matched, matched)
		})
	}
}
