package provider

var openAIDescriptor = openAICompatible(OpenAI, "OpenAI", "https://api.openai.com/v1",
	"gpt-4o-mini", "openai", "OPENAI_API_KEY")

var openAIModels = []ModelVariant{
	// GPT-5.x series
	{ID: "gpt-5", Name: "GPT-5", ContextWindow: 400000, MaxOutputTokens: 128000,
		CostPer1MInput: 1.25, CostPer1MOutput: 10.0,
		Capabilities:            caps(CapabilityVision, CapabilityCoding, CapabilityReasoning),
		SupportsReasoningEffort: true, Created: 1754524800},
	{ID: "gpt-5-mini", Name: "GPT-5 Mini", ContextWindow: 400000, MaxOutputTokens: 128000,
		CostPer1MInput: 0.25, CostPer1MOutput: 2.0,
		Capabilities:            caps(CapabilityVision, CapabilityReasoning),
		SupportsReasoningEffort: true, Created: 1754524800},
	// GPT-4.x series
	{ID: "gpt-4.1", Name: "GPT-4.1", ContextWindow: 1047576, MaxOutputTokens: 32768,
		CostPer1MInput: 2.0, CostPer1MOutput: 8.0,
		Capabilities: caps(CapabilityVision, CapabilityCoding), Created: 1744588800},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", ContextWindow: 1047576, MaxOutputTokens: 32768,
		CostPer1MInput: 0.4, CostPer1MOutput: 1.6,
		Capabilities: caps(CapabilityVision), Created: 1744588800},
	{ID: "gpt-4o", Name: "GPT-4o", ContextWindow: 128000, MaxOutputTokens: 16384,
		CostPer1MInput: 5.0, CostPer1MOutput: 15.0,
		Capabilities: caps(CapabilityVision), Created: 1715558400},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", ContextWindow: 128000, MaxOutputTokens: 16384,
		CostPer1MInput: 0.15, CostPer1MOutput: 0.6,
		Capabilities: caps(CapabilityVision), Created: 1721174400},
	// o-series reasoning
	{ID: "o3", Name: "o3", ContextWindow: 200000, MaxOutputTokens: 100000,
		CostPer1MInput: 2.0, CostPer1MOutput: 8.0,
		Capabilities:            caps(CapabilityVision, CapabilityReasoning),
		SupportsReasoningEffort: true, Created: 1744848000},
	{ID: "o4-mini", Name: "o4-mini", ContextWindow: 200000, MaxOutputTokens: 100000,
		CostPer1MInput: 1.1, CostPer1MOutput: 4.4,
		Capabilities:            caps(CapabilityVision, CapabilityReasoning),
		SupportsReasoningEffort: true, Created: 1744848000},
	{ID: "o1", Name: "o1", ContextWindow: 200000, MaxOutputTokens: 100000,
		CostPer1MInput: 15.0, CostPer1MOutput: 60.0,
		Capabilities:            caps(CapabilityVision, CapabilityReasoning),
		SupportsReasoningEffort: true, Created: 1734393600},
}
