package mapper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/maude-cli/pkg/anthropic"
	"github.com/sells-group/maude-cli/pkg/anthropic/mocks"
)

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 120, OutputTokens: 15},
	}
}

func newTestSelector(client anthropic.Client) *ClaudeSelector {
	return NewClaudeSelector(client, "claude-haiku-4-5-20251001", 1000, time.Second)
}

func TestClaudeSelector_Select(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" && len(req.Messages) == 1
	})).Return(textResponse(`{"selected": "Biocompatibility"}`), nil)

	s := newTestSelector(client)
	choice, err := s.Select(context.Background(), "residue on device", []string{"Biocompatibility", "Infusion Issue"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Biocompatibility", choice)
	assert.Equal(t, int64(120), s.Usage().InputTokens)
}

func TestClaudeSelector_SelectNoMatch(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"selected": "NO_MATCH"}`), nil)

	s := newTestSelector(client)
	choice, err := s.Select(context.Background(), "unrelated text", []string{"Biocompatibility"}, "")
	require.NoError(t, err)
	assert.Equal(t, NoMatch, choice)
}

func TestClaudeSelector_MarkdownFencedResponse(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("```json\n{\"selected\": \"Excess Residue\"}\n```"), nil)

	s := newTestSelector(client)
	choice, err := s.Select(context.Background(), "residue", []string{"Excess Residue"}, "Biocompatibility")
	require.NoError(t, err)
	assert.Equal(t, "Excess Residue", choice)
}

func TestClaudeSelector_MalformedResponse(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("I think the best match is Biocompatibility."), nil)

	s := newTestSelector(client)
	_, err := s.Select(context.Background(), "residue", []string{"Biocompatibility"}, "")
	assert.Error(t, err)
}

func TestClaudeSelector_MissingSelectedField(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"answer": "Biocompatibility"}`), nil)

	s := newTestSelector(client)
	_, err := s.Select(context.Background(), "residue", []string{"Biocompatibility"}, "")
	assert.Error(t, err)
}

func TestClaudeSelector_TransportError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	s := newTestSelector(client)
	_, err := s.Select(context.Background(), "residue", []string{"Biocompatibility"}, "")
	assert.Error(t, err)
}

func TestClaudeSelector_ParentContextInPrompt(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 &&
			strings.Contains(req.Messages[0].Content, "Biocompatibility") &&
			strings.Contains(req.Messages[0].Content, "Excess Residue")
	})).Return(textResponse(`{"selected": "Excess Residue"}`), nil)

	s := newTestSelector(client)
	_, err := s.Select(context.Background(), "residue", []string{"Excess Residue"}, "Biocompatibility")
	require.NoError(t, err)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"selected": "X"}`, `{"selected": "X"}`},
		{"fenced", "```json\n{\"selected\": \"X\"}\n```", `{"selected": "X"}`},
		{"surrounding prose", `Sure: {"selected": "X"} there`, `{"selected": "X"}`},
		{"whitespace", "  {\"selected\": \"X\"}  ", `{"selected": "X"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
