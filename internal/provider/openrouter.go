package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/shopspring/decimal"
)

var openRouterDescriptor = func() Descriptor {
	d := openAICompatible(OpenRouter, "OpenRouter", "https://openrouter.ai/api/v1",
		"openai/gpt-4o-mini", "", "OPENROUTER_API_KEY")
	d.Dialect = DialectOpenRouter
	d.NativeSlashIDs = true
	return d
}()

var openRouterModels = []ModelVariant{
	{ID: "openai/gpt-4o", Name: "OpenAI: GPT-4o", ContextWindow: 128000, MaxOutputTokens: 16384,
		CostPer1MInput: 2.5, CostPer1MOutput: 10.0, Capabilities: caps(CapabilityVision)},
	{ID: "openai/gpt-4o-mini", Name: "OpenAI: GPT-4o-mini", ContextWindow: 128000, MaxOutputTokens: 16384,
		CostPer1MInput: 0.15, CostPer1MOutput: 0.6, Capabilities: caps(CapabilityVision)},
	{ID: "anthropic/claude-sonnet-4", Name: "Anthropic: Claude Sonnet 4", ContextWindow: 200000, MaxOutputTokens: 64000,
		CostPer1MInput: 3.0, CostPer1MOutput: 15.0,
		Capabilities:           caps(CapabilityVision, CapabilityCoding, CapabilityReasoning),
		SupportsThinkingBudget: true},
	{ID: "google/gemini-2.5-flash", Name: "Google: Gemini 2.5 Flash", ContextWindow: 1048576, MaxOutputTokens: 65535,
		CostPer1MInput: 0.3, CostPer1MOutput: 2.5,
		Capabilities: caps(CapabilityVision, CapabilityReasoning), SupportsThinkingBudget: true},
	{ID: "deepseek/deepseek-r1", Name: "DeepSeek: R1", ContextWindow: 163840,
		CostPer1MInput: 0.4, CostPer1MOutput: 2.0, Capabilities: caps(CapabilityReasoning),
		SupportsReasoningEffort: true},
	{ID: "meta-llama/llama-3.3-70b-instruct", Name: "Meta: Llama 3.3 70B Instruct", ContextWindow: 131072,
		CostPer1MInput: 0.13, CostPer1MOutput: 0.4, Capabilities: caps()},
}

var perMillion = decimal.NewFromInt(1_000_000)

// OpenRouterAdapter reuses the OpenAI-compatible chat path and reads the
// richer OpenRouter model schema.
type OpenRouterAdapter struct {
	*OpenAICompatibleAdapter
}

// NewOpenRouterAdapter creates the OpenRouter adapter.
func NewOpenRouterAdapter(opts Options) *OpenRouterAdapter {
	return &OpenRouterAdapter{
		OpenAICompatibleAdapter: NewOpenAICompatibleAdapter(openRouterDescriptor, opts),
	}
}

type openRouterModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Created       int64  `json:"created"`
	ContextLength int    `json:"context_length"`
	Pricing       struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
	Architecture struct {
		InputModalities []string `json:"input_modalities"`
	} `json:"architecture"`
	TopProvider struct {
		ContextLength       int `json:"context_length"`
		MaxCompletionTokens int `json:"max_completion_tokens"`
	} `json:"top_provider"`
	SupportedParameters []string `json:"supported_parameters"`
}

// checkKey calls the key endpoint; the model list itself is public, so a
// non-empty list proves nothing about the key.
func (a *OpenRouterAdapter) checkKey(ctx context.Context, key string) error {
	_, _, err := a.http.do(ctx, OpList, http.MethodGet, a.http.baseURL+"/key", a.authHeaders(key), nil)
	return err
}

func (a *OpenRouterAdapter) listModels(ctx context.Context, key string) ([]openRouterModel, error) {
	if err := a.checkKey(ctx, key); err != nil {
		return nil, err
	}
	data, _, err := a.http.do(ctx, OpList, http.MethodGet, a.http.baseURL+"/models", a.authHeaders(key), nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []openRouterModel `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse openrouter model list: %w", err)
	}
	return resp.Data, nil
}

func (a *OpenRouterAdapter) ValidateKey(ctx context.Context, key string) (bool, error) {
	models, err := a.ListModels(ctx, key)
	if err != nil {
		if isAuthFailure(err) {
			return false, nil
		}
		return false, err
	}
	return len(models) > 0, nil
}

func (a *OpenRouterAdapter) ListModels(ctx context.Context, key string) ([]RawModel, error) {
	models, err := a.listModels(ctx, key)
	if err != nil {
		return nil, err
	}
	raw := make([]RawModel, 0, len(models))
	for _, m := range models {
		raw = append(raw, RawModel{ID: m.ID, Name: m.Name, Description: m.Description, Created: m.Created})
	}
	return raw, nil
}

func (a *OpenRouterAdapter) FetchModels(ctx context.Context, key string) []ModelVariant {
	models, err := a.listModels(ctx, key)
	if err != nil {
		a.http.logger.Debug().Err(err).Msg("model list unavailable")
		return []ModelVariant{}
	}
	now := a.now()
	variants := make([]ModelVariant, 0, len(models))
	for _, m := range models {
		v := GenericVariant(RawModel{ID: m.ID, Name: m.Name, Description: m.Description, Created: m.Created}, now)
		v.ContextWindow = m.ContextLength
		if v.ContextWindow == 0 {
			v.ContextWindow = m.TopProvider.ContextLength
		}
		v.MaxOutputTokens = m.TopProvider.MaxCompletionTokens
		v.ProviderMaxTokens = m.TopProvider.MaxCompletionTokens
		v.CostPer1MInput = pricePerMillion(m.Pricing.Prompt)
		v.CostPer1MOutput = pricePerMillion(m.Pricing.Completion)
		if slices.Contains(m.Architecture.InputModalities, "image") {
			v.Capabilities = append(v.Capabilities, CapabilityVision)
		}
		if slices.Contains(m.SupportedParameters, "reasoning") {
			v.SupportsReasoningEffort = true
			if !v.HasCapability(CapabilityReasoning) {
				v.Capabilities = append(v.Capabilities, CapabilityReasoning)
			}
		}
		// Inference only fills what the schema left empty.
		variants = append(variants, Enrich(v, a.inferencer))
	}
	return variants
}

// pricePerMillion converts an OpenRouter per-token price string to a
// per-million-token cost. Unparseable or negative prices ("-1" marks
// variable pricing) become zero.
func pricePerMillion(perToken string) float64 {
	if perToken == "" {
		return 0
	}
	d, err := decimal.NewFromString(perToken)
	if err != nil || d.IsNegative() {
		return 0
	}
	return d.Mul(perMillion).Round(6).InexactFloat64()
}
