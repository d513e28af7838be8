package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatibleAdapter works with any OpenAI-compatible API
type OpenAICompatibleAdapter struct {
	desc       Descriptor
	http       baseHTTP
	inferencer Inferencer
	now        func() time.Time
}

// NewOpenAICompatibleAdapter creates an adapter for an OpenAI-dialect vendor
func NewOpenAICompatibleAdapter(desc Descriptor, opts Options) *OpenAICompatibleAdapter {
	opts = opts.withDefaults()
	return &OpenAICompatibleAdapter{
		desc:       desc,
		http:       newBaseHTTP(desc, opts),
		inferencer: opts.Inferencer,
		now:        opts.Now,
	}
}

func (a *OpenAICompatibleAdapter) ID() ID { return a.desc.ID }

// client builds a go-openai client scoped to one key. Keys are per call, so
// clients are never cached.
func (a *OpenAICompatibleAdapter) client(key string) *openai.Client {
	config := openai.DefaultConfig(key)
	config.BaseURL = a.http.baseURL
	config.HTTPClient = a.http.client
	return openai.NewClientWithConfig(config)
}

func (a *OpenAICompatibleAdapter) authHeaders(key string) map[string]string {
	return map[string]string{a.desc.AuthHeader: a.desc.AuthPrefix + key}
}

// ValidateKey treats a non-empty model list as proof of a valid key.
func (a *OpenAICompatibleAdapter) ValidateKey(ctx context.Context, key string) (bool, error) {
	models, err := a.ListModels(ctx, key)
	if err != nil {
		if isAuthFailure(err) {
			return false, nil
		}
		return false, err
	}
	return len(models) > 0, nil
}

func (a *OpenAICompatibleAdapter) ListModels(ctx context.Context, key string) ([]RawModel, error) {
	if !a.desc.HasListEndpoint {
		return nil, nil
	}
	start := time.Now()
	list, err := a.client(key).ListModels(ctx)
	err = fromOpenAI(a.desc.ID, err)
	a.http.observe(OpList, start, err)
	if err != nil {
		return nil, err
	}

	models := make([]RawModel, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, RawModel{ID: m.ID, Created: m.CreatedAt})
	}
	return models, nil
}

func (a *OpenAICompatibleAdapter) FetchModels(ctx context.Context, key string) []ModelVariant {
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
	return mergeListed(a.desc.ID, listed, a.inferencer, now)
}

// BuildChatRequest translates params into the OpenAI request body. The second
// return value holds vendor extension fields go-openai cannot express.
func (a *OpenAICompatibleAdapter) BuildChatRequest(params CallParams) (openai.ChatCompletionRequest, map[string]any) {
	variant := variantOf(params, a.inferencer)
	req := openai.ChatCompletionRequest{
		Model:    params.Model,
		Messages: convertToOpenAIMessages(params.System, NormalizeMessages(params.Messages, a.desc.ID)),
	}
	extras := map[string]any{}

	// Reasoning models reject sampling parameters and the legacy max_tokens.
	if variant.IsReasoning() || IsReasoningModel(params.Model) {
		if params.MaxTokens > 0 {
			req.MaxCompletionTokens = params.MaxTokens
		}
	} else {
		if a.desc.SupportsTemperature {
			temp := a.desc.DefaultTemperature
			if params.Temperature != nil {
				temp = *params.Temperature
			}
			req.Temperature = float32(temp)
		}
		if a.desc.SupportsTopP && params.TopP != nil {
			req.TopP = float32(*params.TopP)
		}
		if a.desc.SupportsMaxTokens && params.MaxTokens > 0 {
			req.MaxTokens = params.MaxTokens
		}
		if params.FrequencyPenalty != nil {
			req.FrequencyPenalty = float32(*params.FrequencyPenalty)
		}
		if params.PresencePenalty != nil {
			req.PresencePenalty = float32(*params.PresencePenalty)
		}
		req.Seed = params.Seed
		req.Stop = params.Stop
		if params.ResponseFormat != "" {
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatType(params.ResponseFormat),
			}
		}
		if params.LogProbs {
			req.LogProbs = true
			req.TopLogProbs = params.TopLogProbs
		}
	}

	if params.ReasoningEffort != "" && variant.SupportsReasoningEffort {
		req.ReasoningEffort = params.ReasoningEffort
	}
	if params.EnableThinking != nil && variant.SupportsEnableThinking {
		extras["enable_thinking"] = *params.EnableThinking
	}
	return req, extras
}

func (a *OpenAICompatibleAdapter) CallAPI(ctx context.Context, params CallParams) (*CallResult, error) {
	req, extras := a.BuildChatRequest(params)
	if len(extras) > 0 || clientRejectsSampling(req) {
		return a.callRaw(ctx, params.Key, req, extras)
	}

	start := time.Now()
	resp, err := a.client(params.Key).CreateChatCompletion(ctx, req)
	err = fromOpenAI(a.desc.ID, err)
	a.http.observe(OpChat, start, err)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", a.desc.ID)
	}

	choice := resp.Choices[0]
	return &CallResult{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// clientReasoningPrefixes are the ids go-openai validates as reasoning
// models, refusing sampling fields before the request is sent.
var clientReasoningPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// clientRejectsSampling reports whether go-openai would refuse req locally.
// Non-reasoning ids under those prefixes, such as gpt-5-chat-latest, still
// accept sampling fields upstream.
func clientRejectsSampling(req openai.ChatCompletionRequest) bool {
	matched := false
	for _, prefix := range clientReasoningPrefixes {
		if strings.HasPrefix(req.Model, prefix) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	return (req.Temperature > 0 && req.Temperature != 1) || req.TopP > 0 || req.MaxTokens > 0 ||
		req.PresencePenalty != 0 || req.FrequencyPenalty != 0 || req.LogProbs
}

// rawChatResponse covers the fields of a chat completion that some
// OpenAI-compatible vendors extend, such as reasoning_content.
type rawChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			Reasoning        string `json:"reasoning"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// callRaw posts the request with extension fields merged into the body.
func (a *OpenAICompatibleAdapter) callRaw(ctx context.Context, key string, req openai.ChatCompletionRequest, extras map[string]any) (*CallResult, error) {
	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	body := map[string]any{}
	if err := json.Unmarshal(encoded, &body); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range extras {
		body[k] = v
	}

	data, _, err := a.http.do(ctx, OpChat, http.MethodPost, a.http.baseURL+"/chat/completions", a.authHeaders(key), body)
	if err != nil {
		return nil, err
	}
	return parseRawChatResponse(a.desc.ID, data)
}

func parseRawChatResponse(p ID, data []byte) (*CallResult, error) {
	var resp rawChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p)
	}
	choice := resp.Choices[0]
	reasoning := choice.Message.ReasoningContent
	if reasoning == "" {
		reasoning = choice.Message.Reasoning
	}
	return &CallResult{
		Content:      choice.Message.Content,
		Reasoning:    reasoning,
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// Probe sends a one-token completion and reports the HTTP status.
func (a *OpenAICompatibleAdapter) Probe(ctx context.Context, key, model string) (int, error) {
	body := map[string]any{
		"model":    model,
		"messages": []map[string]string{{"role": "user", "content": probePrompt}},
	}
	if IsReasoningModel(model) {
		body["max_completion_tokens"] = 1
	} else {
		body["max_tokens"] = 1
	}
	return probeStatus(a.http.do(ctx, OpProbe, http.MethodPost, a.http.baseURL+"/chat/completions", a.authHeaders(key), body))
}

// convertToOpenAIMessages prepends the system prompt and maps roles.
func convertToOpenAIMessages(system string, msgs []Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range msgs {
		role := strings.ToLower(msg.Role)
		switch role {
		case openai.ChatMessageRoleSystem, openai.ChatMessageRoleAssistant:
		default:
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return messages
}

const probePrompt = "hi"

// probeStatus reduces a do result to the probe contract: any HTTP status is
// a result, only transport failures are errors.
func probeStatus(_ []byte, status int, err error) (int, error) {
	if status > 0 {
		return status, nil
	}
	return 0, err
}

func isAuthFailure(err error) bool {
	status := StatusCode(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
