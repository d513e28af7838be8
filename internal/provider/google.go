package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

var googleDescriptor = Descriptor{
	ID:                  Google,
	Name:                "Google Gemini",
	BaseURL:             "https://generativelanguage.googleapis.com/v1beta",
	Dialect:             DialectGoogle,
	AuthQueryParam:      "key",
	DefaultTemperature:  0.7,
	SupportsTemperature: true,
	SupportsTopP:        true,
	SupportsMaxTokens:   true,
	DefaultModel:        "gemini-2.0-flash",
	HasListEndpoint:     true,
	AggregatorPrefix:    "google",
	KeyEnv:              []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

var googleModels = []ModelVariant{
	// Gemini 3.x
	{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro Preview", ContextWindow: 1048576, MaxOutputTokens: 65536,
		CostPer1MInput: 2.0, CostPer1MOutput: 12.0,
		Capabilities:          caps(CapabilityVision, CapabilityCoding, CapabilityReasoning),
		SupportsThinkingLevel: true, Created: 1763424000},
	// Gemini 2.5
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", ContextWindow: 1048576, MaxOutputTokens: 65536,
		CostPer1MInput: 1.25, CostPer1MOutput: 10.0,
		Capabilities:           caps(CapabilityVision, CapabilityCoding, CapabilityReasoning),
		SupportsThinkingBudget: true, Created: 1750118400},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", ContextWindow: 1048576, MaxOutputTokens: 65536,
		CostPer1MInput: 0.3, CostPer1MOutput: 2.5,
		Capabilities:           caps(CapabilityVision, CapabilityReasoning),
		SupportsThinkingBudget: true, Created: 1750118400},
	{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash-Lite", ContextWindow: 1048576, MaxOutputTokens: 65536,
		CostPer1MInput: 0.1, CostPer1MOutput: 0.4,
		Capabilities:           caps(CapabilityVision, CapabilityReasoning),
		SupportsThinkingBudget: true, Created: 1753142400},
	// Gemini 2.0
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", ContextWindow: 1048576, MaxOutputTokens: 8192,
		CostPer1MInput: 0.1, CostPer1MOutput: 0.4,
		Capabilities: caps(CapabilityVision), Created: 1738713600},
	{ID: "gemini-2.0-flash-lite", Name: "Gemini 2.0 Flash-Lite", ContextWindow: 1048576, MaxOutputTokens: 8192,
		CostPer1MInput: 0.075, CostPer1MOutput: 0.3,
		Capabilities: caps(CapabilityVision), Created: 1738713600},
}

// googleSafetyCategories are relaxed to BLOCK_NONE on every request.
var googleSafetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// GoogleAdapter speaks the Gemini generateContent API.
type GoogleAdapter struct {
	desc       Descriptor
	http       baseHTTP
	inferencer Inferencer
	now        func() time.Time
}

// NewGoogleAdapter creates the Google Gemini adapter.
func NewGoogleAdapter(opts Options) *GoogleAdapter {
	opts = opts.withDefaults()
	return &GoogleAdapter{
		desc:       googleDescriptor,
		http:       newBaseHTTP(googleDescriptor, opts),
		inferencer: opts.Inferencer,
		now:        opts.Now,
	}
}

func (a *GoogleAdapter) ID() ID { return Google }

// endpoint builds a URL carrying the key as a query parameter.
func (a *GoogleAdapter) endpoint(path, key string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set(a.desc.AuthQueryParam, key)
	return a.http.baseURL + path + "?" + query.Encode()
}

func (a *GoogleAdapter) ValidateKey(ctx context.Context, key string) (bool, error) {
	models, err := a.ListModels(ctx, key)
	if err != nil {
		// Gemini answers an invalid key with 400 API_KEY_INVALID.
		if isAuthFailure(err) || StatusCode(err) == http.StatusBadRequest {
			return false, nil
		}
		return false, err
	}
	return len(models) > 0, nil
}

type googleModel struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	InputTokenLimit            int      `json:"inputTokenLimit"`
	OutputTokenLimit           int      `json:"outputTokenLimit"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// listGenerative returns models supporting generateContent, with the
// "models/" prefix stripped.
func (a *GoogleAdapter) listGenerative(ctx context.Context, key string) ([]googleModel, error) {
	data, _, err := a.http.do(ctx, OpList, http.MethodGet,
		a.endpoint("/models", key, url.Values{"pageSize": {"1000"}}), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Models []googleModel `json:"models"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse google model list: %w", err)
	}

	models := make([]googleModel, 0, len(resp.Models))
	for _, m := range resp.Models {
		if !slices.Contains(m.SupportedGenerationMethods, "generateContent") {
			continue
		}
		m.Name = strings.TrimPrefix(m.Name, googleModelPrefix)
		models = append(models, m)
	}
	return models, nil
}

func (a *GoogleAdapter) ListModels(ctx context.Context, key string) ([]RawModel, error) {
	models, err := a.listGenerative(ctx, key)
	if err != nil {
		return nil, err
	}
	raw := make([]RawModel, 0, len(models))
	for _, m := range models {
		raw = append(raw, RawModel{ID: m.Name, Name: m.DisplayName, Description: m.Description})
	}
	return raw, nil
}

func (a *GoogleAdapter) FetchModels(ctx context.Context, key string) []ModelVariant {
	models, err := a.listGenerative(ctx, key)
	if err != nil {
		a.http.logger.Debug().Err(err).Msg("model list unavailable")
		return []ModelVariant{}
	}
	now := a.now()
	listed := make([]ModelVariant, 0, len(models))
	for _, m := range models {
		v := GenericVariant(RawModel{ID: m.Name, Name: m.DisplayName, Description: m.Description}, now)
		v.ContextWindow = m.InputTokenLimit
		v.MaxOutputTokens = m.OutputTokenLimit
		listed = append(listed, v)
	}
	return mergeListed(Google, listed, a.inferencer, now)
}

// BuildRequestBody translates params into a generateContent body.
func (a *GoogleAdapter) BuildRequestBody(params CallParams) map[string]any {
	variant := variantOf(params, a.inferencer)

	body := map[string]any{
		"contents": convertToGeminiContents(NormalizeMessages(params.Messages, Google)),
	}
	if system := systemPrompt(params); system != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]string{{"text": system}},
		}
	}

	safety := make([]map[string]string, 0, len(googleSafetyCategories))
	for _, c := range googleSafetyCategories {
		safety = append(safety, map[string]string{"category": c, "threshold": "BLOCK_NONE"})
	}
	body["safetySettings"] = safety

	temp := a.desc.DefaultTemperature
	if params.Temperature != nil {
		temp = *params.Temperature
	}
	genConfig := map[string]any{"temperature": temp}
	if params.TopP != nil {
		genConfig["topP"] = *params.TopP
	}
	if params.TopK != nil {
		genConfig["topK"] = *params.TopK
	}
	if params.MaxTokens > 0 {
		genConfig["maxOutputTokens"] = params.MaxTokens
	}
	if len(params.Stop) > 0 {
		genConfig["stopSequences"] = params.Stop
	}

	thinking := map[string]any{}
	if budget := thinkingBudget(Google, params); budget > 0 && variant.SupportsThinkingBudget {
		thinking["thinkingBudget"] = budget
	}
	if params.ThinkingLevel != "" && variant.SupportsThinkingLevel {
		thinking["thinkingLevel"] = params.ThinkingLevel
	}
	if len(thinking) > 0 {
		thinking["includeThoughts"] = true
		genConfig["thinkingConfig"] = thinking
	}
	body["generationConfig"] = genConfig
	return body
}

func (a *GoogleAdapter) CallAPI(ctx context.Context, params CallParams) (*CallResult, error) {
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(params.Model))
	data, _, err := a.http.do(ctx, OpChat, http.MethodPost, a.endpoint(path, params.Key, nil), nil, a.BuildRequestBody(params))
	if err != nil {
		return nil, err
	}
	return parseGeminiResponse(data, params.Model)
}

func parseGeminiResponse(data []byte, model string) (*CallResult, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text    string `json:"text"`
					Thought bool   `json:"thought"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
		} `json:"usageMetadata"`
		ModelVersion string `json:"modelVersion"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	candidate := resp.Candidates[0]
	var content, reasoning strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Thought {
			reasoning.WriteString(part.Text)
		} else {
			content.WriteString(part.Text)
		}
	}

	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}
	return &CallResult{
		Content:      content.String(),
		Reasoning:    reasoning.String(),
		Model:        model,
		FinishReason: candidate.FinishReason,
		Usage: Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount + resp.UsageMetadata.ThoughtsTokenCount,
		},
	}, nil
}

func (a *GoogleAdapter) Probe(ctx context.Context, key, model string) (int, error) {
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model))
	body := map[string]any{
		"contents":         convertToGeminiContents([]Message{{Role: "user", Content: probePrompt}}),
		"generationConfig": map[string]any{"maxOutputTokens": 1},
	}
	return probeStatus(a.http.do(ctx, OpProbe, http.MethodPost, a.endpoint(path, key, nil), nil, body))
}

// convertToGeminiContents maps assistant turns to the "model" role.
func convertToGeminiContents(messages []Message) []map[string]any {
	contents := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if strings.EqualFold(msg.Role, "assistant") {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]string{{"text": msg.Content}},
		})
	}
	return contents
}
