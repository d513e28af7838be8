package provider

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openRouterModelsBody = `{"data":[
	{
		"id": "anthropic/claude-sonnet-4",
		"name": "Anthropic: Claude Sonnet 4",
		"created": 1747930371,
		"context_length": 200000,
		"pricing": {"prompt": "0.000003", "completion": "0.000015"},
		"architecture": {"input_modalities": ["image", "text"]},
		"top_provider": {"context_length": 200000, "max_completion_tokens": 64000},
		"supported_parameters": ["max_tokens", "reasoning", "temperature"]
	},
	{
		"id": "some/free-model:free",
		"name": "Free",
		"pricing": {"prompt": "0", "completion": "-1"},
		"top_provider": {"context_length": 8192}
	}
]}`

func TestOpenRouterFetchModels(t *testing.T) {
	fake := newFakeVendor(t, map[string]fakeResponse{
		"GET /key":    {http.StatusOK, `{"data":{"label":"sk-or-v1-abc"}}`},
		"GET /models": {http.StatusOK, openRouterModelsBody},
	})
	a := NewOpenRouterAdapter(testOptions(OpenRouter, fake.URL))

	models := a.FetchModels(context.Background(), "sk-or")
	require.Len(t, models, 2)

	claude := models[0]
	assert.Equal(t, "anthropic/claude-sonnet-4", claude.ID)
	assert.Equal(t, 3.0, claude.CostPer1MInput)
	assert.Equal(t, 15.0, claude.CostPer1MOutput)
	assert.Equal(t, 200000, claude.ContextWindow)
	assert.Equal(t, 64000, claude.ProviderMaxTokens)
	assert.True(t, claude.HasCapability(CapabilityVision))
	assert.True(t, claude.IsReasoning())
	assert.True(t, claude.SupportsReasoningEffort)
	assert.Equal(t, int64(1747930371), claude.Created)

	free := models[1]
	assert.Zero(t, free.CostPer1MInput)
	assert.Zero(t, free.CostPer1MOutput)
	assert.Equal(t, 8192, free.ContextWindow)
}

func TestOpenRouterValidateKeyUsesKeyEndpoint(t *testing.T) {
	fake := newFakeVendor(t, map[string]fakeResponse{
		"GET /key":    {http.StatusUnauthorized, `{"error":{"message":"No auth credentials found","code":401}}`},
		"GET /models": {http.StatusOK, openRouterModelsBody},
	})
	a := NewOpenRouterAdapter(testOptions(OpenRouter, fake.URL))

	ok, err := a.ValidateKey(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)
	for _, r := range fake.Requests() {
		assert.NotEqual(t, "/models", r.Path)
	}
}

func TestOpenRouterChatDelegates(t *testing.T) {
	fake := newFakeVendor(t, map[string]fakeResponse{
		"POST /chat/completions": {http.StatusOK, openAIChatResponse},
	})
	a := NewOpenRouterAdapter(testOptions(OpenRouter, fake.URL))

	result, err := a.CallAPI(context.Background(), CallParams{Key: "sk-or", Model: "openai/gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Content)
	assert.Equal(t, "openai/gpt-4o", fake.Last().Body["model"])
	assert.Equal(t, OpenRouter, a.ID())
}

func TestPricePerMillion(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0.000003", 3},
		{"0.00000015", 0.15},
		{"0", 0},
		{"-1", 0},
		{"", 0},
		{"n/a", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, pricePerMillion(tt.in))
		})
	}
}
