package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMessages(t *testing.T) {
	msgs := []Message{
		{Role: "system", Content: "rules"},
		{Role: "User", Content: "one"},
		{Role: "assistant", Content: "  "},
		{Role: "user", Content: "two"},
	}

	t.Run("anthropic drops system and empty assistant turns", func(t *testing.T) {
		got := NormalizeMessages(msgs, Anthropic)
		assert.Equal(t, []Message{{Role: "user", Content: "one"}, {Role: "user", Content: "two"}}, got)
	})

	t.Run("mistral inserts filler between user turns", func(t *testing.T) {
		got := NormalizeMessages(msgs, Mistral)
		assert.Equal(t, []Message{
			{Role: "system", Content: "rules"},
			{Role: "user", Content: "one"},
			{Role: "assistant", Content: fillerAssistantMessage},
			{Role: "user", Content: "two"},
		}, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, NormalizeMessages(nil, OpenAI))
	})
}

func TestSystemPromptFoldsSystemTurns(t *testing.T) {
	params := CallParams{
		System:   "top",
		Messages: []Message{{Role: "system", Content: "inline"}, {Role: "user", Content: "hi"}},
	}
	assert.Equal(t, "top\n\ninline", systemPrompt(params))
	assert.Empty(t, systemPrompt(CallParams{}))
}

func TestEffortBudget(t *testing.T) {
	assert.Equal(t, 32000, EffortBudget(Anthropic, "high"))
	assert.Equal(t, 1024, EffortBudget(Google, "LOW"))
	assert.Zero(t, EffortBudget(OpenAI, "high"))

	a := NewAnthropicAdapter(Options{})
	body := a.BuildRequestBody(CallParams{Model: "claude-sonnet-4-20250514", ReasoningEffort: "low"})
	assert.Equal(t, map[string]any{"type": "enabled", "budget_tokens": 5000}, body["thinking"])
}
