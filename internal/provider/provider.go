package provider

import (
	"context"
	"errors"
	"strings"
)

// ID identifies a vendor. The set is closed and defined at build time.
type ID string

const (
	OpenAI     ID = "openai"
	Anthropic  ID = "anthropic"
	Google     ID = "google"
	OpenRouter ID = "openrouter"
	Groq       ID = "groq"
	DeepSeek   ID = "deepseek"
	Mistral    ID = "mistral"
	XAI        ID = "xai"
	Together   ID = "together"
)

// ErrUnsupportedProvider is returned for provider ids outside the closed set.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Adapter translates the common call contract into one vendor's HTTP dialect.
type Adapter interface {
	ID() ID

	// ValidateKey reports whether the key is accepted by the vendor.
	ValidateKey(ctx context.Context, key string) (bool, error)

	// ListModels returns the vendor's raw model list. A nil slice with a nil
	// error means the vendor has no list endpoint and the caller must fall back.
	ListModels(ctx context.Context, key string) ([]RawModel, error)

	// FetchModels returns a best-effort enriched catalog. It never fails;
	// any error yields an empty list.
	FetchModels(ctx context.Context, key string) []ModelVariant

	// CallAPI executes a single chat completion.
	CallAPI(ctx context.Context, params CallParams) (*CallResult, error)

	// Probe issues a minimal one-token request against model and returns the
	// HTTP status code. Transport failures return a non-nil error and status 0.
	Probe(ctx context.Context, key, model string) (int, error)
}

// RawModel is one entry of a vendor list-models response.
type RawModel struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Created     int64  `json:"created,omitempty"`
}

// Message represents a conversation message
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ResponseFormat values accepted by CallParams.ResponseFormat.
const (
	ResponseFormatText = "text"
	ResponseFormatJSON = "json_object"
)

// CallParams is the vendor-neutral chat request.
type CallParams struct {
	Key      string    `json:"-"`
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	System   string    `json:"system,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`

	// Reasoning controls. Each is only forwarded when the resolved variant
	// supports it.
	ReasoningEffort string `json:"reasoning_effort,omitempty"`
	ThinkingBudget  int    `json:"thinking_budget,omitempty"`
	ThinkingLevel   string `json:"thinking_level,omitempty"`
	EnableThinking  *bool  `json:"enable_thinking,omitempty"`

	// Advanced sampling, OpenAI-compatible dialect only.
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	ResponseFormat   string   `json:"response_format,omitempty"`
	LogProbs         bool     `json:"logprobs,omitempty"`
	TopLogProbs      int      `json:"top_logprobs,omitempty"`

	// Variant is the catalog metadata for Model, when known.
	Variant *ModelVariant `json:"-"`
}

// CallResult is the vendor-neutral chat response.
type CallResult struct {
	Content      string `json:"content"`
	Reasoning    string `json:"reasoning,omitempty"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TotalTokens returns the total token count
func (u Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// ParseModel splits "provider/model" into provider ID and model ID. The
// provider part is only recognized when it names a known provider.
func ParseModel(spec string) (ID, string) {
	if idx := strings.Index(spec, ":"); idx > 0 {
		if id := ID(spec[:idx]); IsKnown(id) {
			return id, spec[idx+1:]
		}
	}
	parts := strings.SplitN(spec, "/", 2)
	if len(parts) == 2 && IsKnown(ID(parts[0])) {
		return ID(parts[0]), parts[1]
	}
	return "", spec
}

// variantOf returns the variant attached to params, inferring one from the
// model id when none was resolved from the catalog.
func variantOf(params CallParams, inf Inferencer) ModelVariant {
	if params.Variant != nil {
		return *params.Variant
	}
	v := ModelVariant{ID: params.Model, Name: params.Model}
	return Enrich(v, inf)
}
