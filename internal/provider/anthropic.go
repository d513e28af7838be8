package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicVersion = "2023-06-01"
	// anthropicDefaultMaxTokens is sent when the caller sets no limit; the
	// Messages API requires max_tokens.
	anthropicDefaultMaxTokens = 4096
	anthropicOutput128kBeta   = "output-128k-2025-02-19"
)

var anthropicDescriptor = Descriptor{
	ID:                  Anthropic,
	Name:                "Anthropic",
	BaseURL:             "https://api.anthropic.com/v1",
	Dialect:             DialectAnthropic,
	AuthHeader:          "x-api-key",
	DefaultTemperature:  0.7,
	SupportsTemperature: true,
	SupportsTopP:        true,
	SupportsMaxTokens:   true,
	DefaultModel:        "claude-3-5-haiku-20241022",
	HasListEndpoint:     true,
	AggregatorPrefix:    "anthropic",
	KeyEnv:              []string{"ANTHROPIC_API_KEY"},
}

var anthropicModels = []ModelVariant{
	// Claude 4.x
	{ID: "claude-opus-4-1-20250805", Name: "Claude Opus 4.1", ContextWindow: 200000, MaxOutputTokens: 32000,
		CostPer1MInput: 15.0, CostPer1MOutput: 75.0,
		Capabilities:           caps(CapabilityVision, CapabilityCoding, CapabilityReasoning),
		SupportsThinkingBudget: true, Created: 1754352000},
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", ContextWindow: 200000, MaxOutputTokens: 64000,
		CostPer1MInput: 3.0, CostPer1MOutput: 15.0,
		Capabilities:           caps(CapabilityVision, CapabilityCoding, CapabilityReasoning),
		SupportsThinkingBudget: true, Created: 1759104000},
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextWindow: 200000, MaxOutputTokens: 64000,
		CostPer1MInput: 3.0, CostPer1MOutput: 15.0,
		Capabilities:           caps(CapabilityVision, CapabilityCoding, CapabilityReasoning),
		SupportsThinkingBudget: true, Created: 1747180800},
	{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5", ContextWindow: 200000, MaxOutputTokens: 64000,
		CostPer1MInput: 1.0, CostPer1MOutput: 5.0,
		Capabilities:           caps(CapabilityVision, CapabilityCoding, CapabilityReasoning),
		SupportsThinkingBudget: true, Created: 1759276800},
	// Claude 3.x
	{ID: "claude-3-7-sonnet-20250219", Name: "Claude 3.7 Sonnet", ContextWindow: 200000, MaxOutputTokens: 128000,
		CostPer1MInput: 3.0, CostPer1MOutput: 15.0,
		Capabilities:           caps(CapabilityVision, CapabilityCoding, CapabilityReasoning),
		SupportsThinkingBudget: true, Created: 1739923200},
	{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", ContextWindow: 200000, MaxOutputTokens: 8192,
		CostPer1MInput: 3.0, CostPer1MOutput: 15.0,
		Capabilities: caps(CapabilityVision, CapabilityCoding), Created: 1729555200},
	{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ContextWindow: 200000, MaxOutputTokens: 8192,
		CostPer1MInput: 0.8, CostPer1MOutput: 4.0,
		Capabilities: caps(CapabilityVision), Created: 1729555200},
}

// AnthropicAdapter speaks the Anthropic Messages API.
type AnthropicAdapter struct {
	desc       Descriptor
	http       baseHTTP
	inferencer Inferencer
	now        func() time.Time
}

// NewAnthropicAdapter creates the Anthropic adapter.
func NewAnthropicAdapter(opts Options) *AnthropicAdapter {
	opts = opts.withDefaults()
	return &AnthropicAdapter{
		desc:       anthropicDescriptor,
		http:       newBaseHTTP(anthropicDescriptor, opts),
		inferencer: opts.Inferencer,
		now:        opts.Now,
	}
}

func (a *AnthropicAdapter) ID() ID { return Anthropic }

// headers sets authentication, the API version and any model-specific beta flag.
func (a *AnthropicAdapter) headers(key, model string) map[string]string {
	h := map[string]string{
		a.desc.AuthHeader:   key,
		"anthropic-version": anthropicVersion,
	}
	if beta := anthropicBeta(model); beta != "" {
		h["anthropic-beta"] = beta
	}
	return h
}

// anthropicBeta returns the beta header a model family needs, if any.
func anthropicBeta(model string) string {
	m := strings.ToLower(model)
	if strings.Contains(m, "claude-3-7") || strings.Contains(m, "claude-3.7") {
		return anthropicOutput128kBeta
	}
	return ""
}

func (a *AnthropicAdapter) ValidateKey(ctx context.Context, key string) (bool, error) {
	models, err := a.ListModels(ctx, key)
	if err != nil {
		if isAuthFailure(err) {
			return false, nil
		}
		return false, err
	}
	return len(models) > 0, nil
}

func (a *AnthropicAdapter) ListModels(ctx context.Context, key string) ([]RawModel, error) {
	data, _, err := a.http.do(ctx, OpList, http.MethodGet, a.http.baseURL+"/models?limit=1000", a.headers(key, ""), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
			CreatedAt   string `json:"created_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse anthropic model list: %w", err)
	}

	models := make([]RawModel, 0, len(resp.Data))
	for _, m := range resp.Data {
		raw := RawModel{ID: m.ID, Name: m.DisplayName}
		if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
			raw.Created = t.Unix()
		}
		models = append(models, raw)
	}
	return models, nil
}

func (a *AnthropicAdapter) FetchModels(ctx context.Context, key string) []ModelVariant {
	raw, err := a.ListModels(ctx, key)
	if err != nil {
		a.http.logger.Debug().Err(err).Msg("model list unavailable")
		return []ModelVariant{}
	}
	now := a.now()
	listed := make([]ModelVariant, 0, len(raw))
	for _, r := range raw {
		listed = append(listed, GenericVariant(r, now))
	}
	return mergeListed(Anthropic, listed, a.inferencer, now)
}

// BuildRequestBody translates params into a Messages API body. Extended
// thinking and sampling parameters are mutually exclusive.
func (a *AnthropicAdapter) BuildRequestBody(params CallParams) map[string]any {
	variant := variantOf(params, a.inferencer)

	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	body := map[string]any{
		"model":    params.Model,
		"messages": convertToAnthropicMessages(NormalizeMessages(params.Messages, Anthropic)),
	}
	if system := systemPrompt(params); system != "" {
		body["system"] = system
	}

	if budget := thinkingBudget(Anthropic, params); budget > 0 && variant.SupportsThinkingBudget {
		// max_tokens must exceed the thinking budget.
		if maxTokens <= budget {
			maxTokens = budget + max(params.MaxTokens, anthropicDefaultMaxTokens)
		}
		body["thinking"] = map[string]any{
			"type":          "enabled",
			"budget_tokens": budget,
		}
	} else {
		temp := a.desc.DefaultTemperature
		if params.Temperature != nil {
			temp = *params.Temperature
		}
		body["temperature"] = temp
		if params.TopP != nil {
			body["top_p"] = *params.TopP
		}
		if params.TopK != nil {
			body["top_k"] = *params.TopK
		}
	}
	if len(params.Stop) > 0 {
		body["stop_sequences"] = params.Stop
	}
	body["max_tokens"] = maxTokens
	return body
}

func (a *AnthropicAdapter) CallAPI(ctx context.Context, params CallParams) (*CallResult, error) {
	body := a.BuildRequestBody(params)
	data, _, err := a.http.do(ctx, OpChat, http.MethodPost, a.http.baseURL+"/messages", a.headers(params.Key, params.Model), body)
	if err != nil {
		return nil, err
	}

	var apiResp struct {
		Model   string `json:"model"`
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text,omitempty"`
			Thinking string `json:"thinking,omitempty"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var content, reasoning strings.Builder
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "thinking":
			reasoning.WriteString(block.Thinking)
		}
	}

	return &CallResult{
		Content:      content.String(),
		Reasoning:    reasoning.String(),
		Model:        apiResp.Model,
		FinishReason: apiResp.StopReason,
		Usage: Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
		},
	}, nil
}

func (a *AnthropicAdapter) Probe(ctx context.Context, key, model string) (int, error) {
	body := map[string]any{
		"model":      model,
		"max_tokens": 1,
		"messages":   []map[string]string{{"role": "user", "content": probePrompt}},
	}
	return probeStatus(a.http.do(ctx, OpProbe, http.MethodPost, a.http.baseURL+"/messages", a.headers(key, model), body))
}

// convertToAnthropicMessages maps roles onto user/assistant.
func convertToAnthropicMessages(messages []Message) []map[string]string {
	result := make([]map[string]string, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if strings.EqualFold(msg.Role, "assistant") {
			role = "assistant"
		}
		result = append(result, map[string]string{"role": role, "content": msg.Content})
	}
	return result
}
