package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicInferencer(t *testing.T) {
	tests := []struct {
		id        string
		vision    bool
		coding    bool
		reasoning bool
		effort    bool
		budget    bool
		level     bool
		enable    bool
	}{
		{id: "gpt-4o", vision: true},
		{id: "o1-mini", reasoning: true, effort: true},
		{id: "o3", vision: true, reasoning: true, effort: true},
		{id: "gpt-5-chat-latest", vision: true},
		{id: "openai/gpt-5-mini", vision: true, reasoning: true, effort: true},
		{id: "claude-3-7-sonnet-20250219", vision: true, reasoning: true, budget: true},
		{id: "claude-3-5-haiku-20241022", vision: true},
		{id: "gemini-2.5-pro", vision: true, reasoning: true, budget: true},
		{id: "gemini-3-pro-preview", vision: true, reasoning: true, level: true},
		{id: "deepseek-reasoner", reasoning: true},
		{id: "deepseek-chat"},
		{id: "codestral-latest", coding: true},
		{id: "qwen/qwen3-32b", reasoning: true, enable: true},
		{id: "Qwen/Qwen3-Coder-480B", coding: true, reasoning: true},
		{id: "grok-3-mini", reasoning: true, effort: true},
		{id: "llama-3.1-8b-instant"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			v := Enrich(ModelVariant{ID: tt.id}, HeuristicInferencer{})
			assert.Equal(t, tt.vision, v.HasCapability(CapabilityVision), "vision")
			assert.Equal(t, tt.coding, v.HasCapability(CapabilityCoding), "coding")
			assert.Equal(t, tt.reasoning, v.IsReasoning(), "reasoning")
			assert.Equal(t, tt.effort, v.SupportsReasoningEffort, "reasoning effort")
			assert.Equal(t, tt.budget, v.SupportsThinkingBudget, "thinking budget")
			assert.Equal(t, tt.level, v.SupportsThinkingLevel, "thinking level")
			assert.Equal(t, tt.enable, v.SupportsEnableThinking, "enable thinking")
			assert.NotNil(t, v.Capabilities)
		})
	}
}

func TestEnrichKeepsDeclaredCapabilities(t *testing.T) {
	declared := ModelVariant{ID: "gpt-4o", Capabilities: []Capability{CapabilityCoding}}
	v := Enrich(declared, nil)
	assert.Equal(t, []Capability{CapabilityCoding}, v.Capabilities)
}

type fixedInferencer struct{ inf Inference }

func (f fixedInferencer) Infer(string) Inference { return f.inf }

func TestEnrichUsesInjectedInferencer(t *testing.T) {
	inf := fixedInferencer{Inference{Capabilities: []Capability{CapabilityVision}, SupportsThinkingLevel: true}}
	v := Enrich(ModelVariant{ID: "anything"}, inf)
	assert.True(t, v.HasCapability(CapabilityVision))
	assert.True(t, v.SupportsThinkingLevel)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, IsReasoningModel("o4-mini"))
	assert.True(t, IsReasoningModel("deepseek-r1-distill-llama-70b"))
	assert.False(t, IsReasoningModel("gpt-4.1"))
	assert.False(t, IsReasoningModel("gpt-5-chat-latest"))
}
