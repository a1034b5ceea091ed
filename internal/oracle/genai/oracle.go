// Package genaioracle backs the relevance and semantic diff capabilities
// with Google's Gemini API. Prompts instruct the model to reply with bare
// JSON and the responses are parsed defensively; a response that cannot be
// parsed is an error for the caller to degrade on.
package genaioracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

const defaultModel = "gemini-2.0-flash"

type Oracle struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey, model string) (*Oracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Oracle{client: client, model: model}, nil
}

const scorePromptHeader = `You score hyperlinks for how likely they are to lead toward a stated goal.
Reply with a JSON array only, no prose and no code fences. One object per
link, in input order: {"url": string, "score": number between 0.0 and 1.0}.

Goal: %s

Links:
%s`

// Score asks the model to rate each discovered link against the mission
// goal. Links the model omits or mangles come back with score 0 rather than
// being dropped, so the caller always sees every input link.
func (o *Oracle) Score(ctx context.Context, goal string, links []sentry.DiscoveredLink) ([]sentry.ScoredLink, error) {
	if len(links) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, l := range links {
		fmt.Fprintf(&sb, "%d. url=%s anchor=%q context=%q\n", i+1, l.URL, l.AnchorText, l.Context)
	}
	prompt := fmt.Sprintf(scorePromptHeader, goal, sb.String())

	raw, err := o.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseScores(raw, links)
}

const diffPromptHeader = `You compare two versions of a web page's extracted text and report the
meaningful changes. Reply with a JSON array only, no prose and no code
fences. Each element: {"event_type": string, "details": object}. Use event
types ENTITY_ADDED, ENTITY_REMOVED or ENTITY_PROPERTY_MODIFIED. Cosmetic
rewording with no change in meaning produces an empty array.

OLD VERSION:
%s

NEW VERSION:
%s`

// Diff asks the model for the semantic changes between two content
// snapshots. SourceURL and Time are left for the caller to stamp.
func (o *Oracle) Diff(ctx context.Context, oldText, newText string) ([]sentry.ChangeEvent, error) {
	prompt := fmt.Sprintf(diffPromptHeader, clip(oldText, maxDiffInput), clip(newText, maxDiffInput))

	raw, err := o.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseChangeEvents(raw)
}

const maxDiffInput = 60_000

func (o *Oracle) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := o.client.Models.GenerateContent(ctx, o.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generation failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GenAI returned an empty response")
	}
	return text, nil
}

type scoredLinkResponse struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

func parseScores(raw string, links []sentry.DiscoveredLink) ([]sentry.ScoredLink, error) {
	var parsed []scoredLinkResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("unparseable score response: %w", err)
	}

	byURL := make(map[string]float64, len(parsed))
	for _, p := range parsed {
		byURL[p.URL] = clampScore(p.Score)
	}

	out := make([]sentry.ScoredLink, len(links))
	for i, l := range links {
		out[i] = sentry.ScoredLink{DiscoveredLink: l, Score: byURL[l.URL]}
	}
	return out, nil
}

type changeEventResponse struct {
	EventType string         `json:"event_type"`
	Details   map[string]any `json:"details"`
}

func parseChangeEvents(raw string) ([]sentry.ChangeEvent, error) {
	var parsed []changeEventResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("unparseable diff response: %w", err)
	}

	var out []sentry.ChangeEvent
	for _, p := range parsed {
		if p.EventType == "" {
			continue
		}
		out = append(out, sentry.ChangeEvent{EventType: p.EventType, Details: p.Details})
	}
	return out, nil
}

// stripFences tolerates models that wrap JSON in a markdown code fence
// despite the response MIME type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func (o *Oracle) Close() error {
	// google.golang.org/genai's Client exposes no Close; it holds no
	// long-lived connection that needs releasing.
	return nil
}
