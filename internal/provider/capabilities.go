package provider

import (
	"regexp"
	"strings"
)

// Inference is the capability metadata guessed for a model id.
type Inference struct {
	Capabilities            []Capability
	SupportsReasoningEffort bool
	SupportsThinkingBudget  bool
	SupportsThinkingLevel   bool
	SupportsEnableThinking  bool
}

// Inferencer guesses capability metadata from a bare model id. A richer
// metadata source can satisfy the same interface.
type Inferencer interface {
	Infer(modelID string) Inference
}

// HeuristicInferencer classifies ids by substring matching.
type HeuristicInferencer struct{}

var (
	oSeriesPattern = regexp.MustCompile(`^o\d(\b|-|$)`)

	visionMarkers = []string{
		"vision", "-vl", "gpt-4o", "gpt-4.1", "gpt-5", "claude-3", "claude-sonnet-4",
		"claude-opus-4", "claude-haiku-4", "gemini", "pixtral", "llava", "grok-4", "llama-4",
	}
	codingMarkers = []string{"code", "coder", "codestral", "devstral", "codex"}

	reasoningMarkers = []string{
		"reasoner", "-r1", "r1-", "thinking", "qwq", "qwen3", "claude-3-7", "claude-3.7",
		"claude-sonnet-4", "claude-opus-4", "claude-haiku-4", "gemini-2.5", "gemini-3",
		"grok-3-mini", "grok-4", "magistral", "gpt-oss",
	}
	effortMarkers = []string{"grok-3-mini", "gpt-oss"}
	budgetMarkers = []string{
		"claude-3-7", "claude-3.7", "claude-sonnet-4", "claude-opus-4", "claude-haiku-4", "gemini-2.5",
	}
)

// Infer implements Inferencer.
func (HeuristicInferencer) Infer(modelID string) Inference {
	id := baseModelID(modelID)
	var inf Inference

	openAIReasoning := oSeriesPattern.MatchString(id) || isGPT5Reasoning(id)

	if containsAny(id, visionMarkers) || (openAIReasoning && !strings.HasPrefix(id, "o1-mini") && !strings.HasPrefix(id, "o3-mini")) {
		inf.Capabilities = append(inf.Capabilities, CapabilityVision)
	}
	if containsAny(id, codingMarkers) {
		inf.Capabilities = append(inf.Capabilities, CapabilityCoding)
	}
	if openAIReasoning || containsAny(id, reasoningMarkers) {
		inf.Capabilities = append(inf.Capabilities, CapabilityReasoning)
	}

	inf.SupportsReasoningEffort = openAIReasoning || containsAny(id, effortMarkers)
	inf.SupportsThinkingBudget = containsAny(id, budgetMarkers)
	inf.SupportsThinkingLevel = strings.Contains(id, "gemini-3")
	inf.SupportsEnableThinking = strings.Contains(id, "qwen3") && !strings.Contains(id, "coder")
	return inf
}

// IsReasoningModel reports whether id is classified as a reasoning model.
func IsReasoningModel(id string) bool {
	for _, c := range (HeuristicInferencer{}).Infer(id).Capabilities {
		if c == CapabilityReasoning {
			return true
		}
	}
	return false
}

// Enrich fills the variant's empty capability metadata from inf. Declared
// metadata is never overwritten.
func Enrich(v ModelVariant, inf Inferencer) ModelVariant {
	if inf == nil {
		inf = HeuristicInferencer{}
	}
	guess := inf.Infer(v.ID)
	if len(v.Capabilities) == 0 {
		v.Capabilities = caps(guess.Capabilities...)
	}
	v.SupportsReasoningEffort = v.SupportsReasoningEffort || guess.SupportsReasoningEffort
	v.SupportsThinkingBudget = v.SupportsThinkingBudget || guess.SupportsThinkingBudget
	v.SupportsThinkingLevel = v.SupportsThinkingLevel || guess.SupportsThinkingLevel
	v.SupportsEnableThinking = v.SupportsEnableThinking || guess.SupportsEnableThinking
	return v
}

// isGPT5Reasoning excludes the non-reasoning chat aliases of gpt-5.
func isGPT5Reasoning(id string) bool {
	return strings.HasPrefix(id, "gpt-5") && !strings.Contains(id, "chat")
}

// baseModelID lowercases id and drops any aggregator or path prefix.
func baseModelID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
