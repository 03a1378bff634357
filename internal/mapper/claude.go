package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/maude-cli/pkg/anthropic"
)

const selectSystemPrompt = `You are an IMDRF coding expert. Return only valid JSON.`

const selectUserPrompt = `You are selecting the most appropriate IMDRF term for a device problem.

Device Problem: %q
%s
Available terms (you MUST select exactly one from this list):
%s

CRITICAL RULES:
- Return ONLY valid JSON
- Select the EXACT term from the list above that best matches the device problem
- If no good match, return {"selected": "NO_MATCH"}
- Do NOT modify or paraphrase the term

Return format (JSON only):
{"selected": "<exact term from list>"} OR {"selected": "NO_MATCH"}`

// ClaudeSelector implements Selector with a single blocking message per
// stage. Calls are rate limited and bounded by a per-call timeout; the
// caller downgrades any error to NoMatch.
type ClaudeSelector struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	usage   anthropic.TokenUsage
}

// NewClaudeSelector builds a selector. rps bounds the sustained request
// rate; timeout bounds each round trip.
func NewClaudeSelector(client anthropic.Client, model string, rps float64, timeout time.Duration) *ClaudeSelector {
	if rps <= 0 {
		rps = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClaudeSelector{
		client:  client,
		model:   model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *ClaudeSelector) Select(ctx context.Context, fragment string, candidates []string, parent string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "selector: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var parentLine string
	if parent != "" {
		parentLine = fmt.Sprintf("Parent term context: %q\n", parent)
	}

	quoted := make([]string, len(candidates))
	for i, c := range candidates {
		quoted[i] = fmt.Sprintf("%q", c)
	}

	temp := 0.1
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   100,
		System:      selectSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(selectUserPrompt, fragment, parentLine, strings.Join(quoted, ", "))},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "selector: create message")
	}
	s.usage.Add(resp.Usage)

	var result struct {
		Selected string `json:"selected"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(extractText(resp))), &result); err != nil {
		return "", eris.Wrap(err, "selector: parse response")
	}
	if result.Selected == "" {
		return "", eris.New("selector: response missing selected field")
	}

	return result.Selected, nil
}

// Usage returns the accumulated token usage across all selections.
func (s *ClaudeSelector) Usage() anthropic.TokenUsage {
	return s.usage
}

// Model returns the configured model ID.
func (s *ClaudeSelector) Model() string {
	return s.model
}

// extractText concatenates all text content blocks from a message response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
