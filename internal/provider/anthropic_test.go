package provider

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicBuildRequestBody(t *testing.T) {
	a := NewAnthropicAdapter(Options{})

	t.Run("sampling without thinking", func(t *testing.T) {
		body := a.BuildRequestBody(CallParams{
			Model:       "claude-3-5-sonnet-20241022",
			System:      "be brief",
			Messages:    []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
			Temperature: ptr(0.2),
			TopK:        ptr(40),
		})
		assert.Equal(t, 0.2, body["temperature"])
		assert.Equal(t, 40, body["top_k"])
		assert.Equal(t, "be brief", body["system"])
		assert.Equal(t, anthropicDefaultMaxTokens, body["max_tokens"])
		assert.NotContains(t, body, "thinking")

		msgs := body["messages"].([]map[string]string)
		require.Len(t, msgs, 2)
		assert.Equal(t, "assistant", msgs[1]["role"])
	})

	t.Run("thinking excludes sampling and expands max tokens", func(t *testing.T) {
		body := a.BuildRequestBody(CallParams{
			Model:          "claude-3-7-sonnet-20250219",
			Temperature:    ptr(0.2),
			TopP:           ptr(0.9),
			MaxTokens:      2000,
			ThinkingBudget: 8000,
		})
		assert.NotContains(t, body, "temperature")
		assert.NotContains(t, body, "top_p")
		assert.Equal(t, map[string]any{"type": "enabled", "budget_tokens": 8000}, body["thinking"])
		assert.Equal(t, 8000+anthropicDefaultMaxTokens, body["max_tokens"])
	})

	t.Run("max tokens above budget kept", func(t *testing.T) {
		body := a.BuildRequestBody(CallParams{
			Model:          "claude-sonnet-4-20250514",
			MaxTokens:      20000,
			ThinkingBudget: 4000,
		})
		assert.Equal(t, 20000, body["max_tokens"])
	})

	t.Run("budget ignored for models without thinking", func(t *testing.T) {
		body := a.BuildRequestBody(CallParams{Model: "claude-3-5-haiku-20241022", ThinkingBudget: 4000})
		assert.NotContains(t, body, "thinking")
		assert.Contains(t, body, "temperature")
	})
}

func TestAnthropicCallAPI(t *testing.T) {
	fake := newFakeVendor(t, map[string]fakeResponse{
		"POST /messages": {http.StatusOK, `{
			"model": "claude-3-7-sonnet-20250219",
			"content": [{"type":"thinking","thinking":"hmm"},{"type":"text","text":"answer"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`},
	})
	a := NewAnthropicAdapter(testOptions(Anthropic, fake.URL))

	result, err := a.CallAPI(context.Background(), CallParams{
		Key:      "sk-ant",
		Model:    "claude-3-7-sonnet-20250219",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", result.Content)
	assert.Equal(t, "hmm", result.Reasoning)
	assert.Equal(t, "end_turn", result.FinishReason)
	assert.Equal(t, 15, result.Usage.TotalTokens())

	h := fake.Last().Header
	assert.Equal(t, "sk-ant", h.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, h.Get("anthropic-version"))
	assert.Equal(t, anthropicOutput128kBeta, h.Get("anthropic-beta"))
}

func TestAnthropicBetaOnlyForFamily(t *testing.T) {
	assert.Empty(t, anthropicBeta("claude-3-5-haiku-20241022"))
	assert.Equal(t, anthropicOutput128kBeta, anthropicBeta("claude-3-7-sonnet-latest"))
}

func TestAnthropicListModels(t *testing.T) {
	fake := newFakeVendor(t, map[string]fakeResponse{
		"GET /models": {http.StatusOK, `{"data":[
			{"id":"claude-sonnet-4-20250514","display_name":"Claude Sonnet 4","created_at":"2025-05-14T00:00:00Z","type":"model"}
		],"has_more":false}`},
	})
	a := NewAnthropicAdapter(testOptions(Anthropic, fake.URL))

	models, err := a.ListModels(context.Background(), "sk-ant")
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "claude-sonnet-4-20250514", models[0].ID)
	assert.Equal(t, "Claude Sonnet 4", models[0].Name)
	assert.Equal(t, int64(1747180800), models[0].Created)
}

func TestAnthropicProbeNotFound(t *testing.T) {
	fake := newFakeVendor(t, map[string]fakeResponse{
		"POST /messages": {http.StatusNotFound, `{"type":"error","error":{"type":"not_found_error","message":"model: nope"}}`},
	})
	a := NewAnthropicAdapter(testOptions(Anthropic, fake.URL))

	status, err := a.Probe(context.Background(), "sk-ant", "nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.EqualValues(t, 1, fake.Last().Body["max_tokens"])
}

func TestAnthropicCallAPIErrorMessage(t *testing.T) {
	fake := newFakeVendor(t, map[string]fakeResponse{
		"POST /messages": {http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`},
	})
	a := NewAnthropicAdapter(testOptions(Anthropic, fake.URL))

	_, err := a.CallAPI(context.Background(), CallParams{Key: "bad", Model: "claude-3-5-haiku-20241022"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid x-api-key", apiErr.Message)
	assert.Equal(t, ErrorTypeAuth, apiErr.Type)
}
