// Package staticoracle provides deterministic relevance and diff
// implementations that need no external service. They stand in when no
// model is configured and keep the crawler usable offline: the scorer rates
// links by keyword overlap with the mission goal, and the differ reports a
// whole-document replacement whenever the text changed at all.
package staticoracle

import (
	"context"
	"strings"
	"unicode"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Scorer rates a link by the share of goal keywords that appear in its URL,
// anchor text, or surrounding context.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

func (s *Scorer) Score(_ context.Context, goal string, links []sentry.DiscoveredLink) ([]sentry.ScoredLink, error) {
	keywords := tokenize(goal)

	out := make([]sentry.ScoredLink, len(links))
	for i, l := range links {
		out[i] = sentry.ScoredLink{
			DiscoveredLink: l,
			Score:          overlap(keywords, l.URL+" "+l.AnchorText+" "+l.Context),
		}
	}
	return out, nil
}

func overlap(keywords []string, text string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// tokenize lowercases the goal and keeps words long enough to carry signal.
func tokenize(goal string) []string {
	fields := strings.FieldsFunc(strings.ToLower(goal), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

// Differ emits a single document-replaced event when the two texts differ.
// It cannot tell cosmetic changes from meaningful ones; callers that need
// that distinction configure a model-backed differ instead.
type Differ struct{}

func NewDiffer() *Differ { return &Differ{} }

func (d *Differ) Diff(_ context.Context, oldText, newText string) ([]sentry.ChangeEvent, error) {
	if oldText == newText {
		return nil, nil
	}
	return []sentry.ChangeEvent{
		{
			EventType: "DOCUMENT_REPLACED",
			Details: map[string]any{
				"old_length": len(oldText),
				"new_length": len(newText),
			},
		},
	}, nil
}
