package provider

var xaiDescriptor = openAICompatible(XAI, "xAI", "https://api.x.ai/v1",
	"grok-3-mini", "x-ai", "XAI_API_KEY")

var xaiModels = []ModelVariant{
	{ID: "grok-4", Name: "Grok 4", ContextWindow: 256000, MaxOutputTokens: 16384,
		CostPer1MInput: 3.0, CostPer1MOutput: 15.0,
		Capabilities: caps(CapabilityVision, CapabilityReasoning)},
	{ID: "grok-3", Name: "Grok 3", ContextWindow: 131072, MaxOutputTokens: 16384,
		CostPer1MInput: 3.0, CostPer1MOutput: 15.0, Capabilities: caps()},
	// grok-3-mini is the only Grok model that accepts reasoning_effort
	{ID: "grok-3-mini", Name: "Grok 3 Mini", ContextWindow: 131072, MaxOutputTokens: 16384,
		CostPer1MInput: 0.3, CostPer1MOutput: 0.5,
		Capabilities: caps(CapabilityReasoning), SupportsReasoningEffort: true},
	{ID: "grok-code-fast-1", Name: "Grok Code Fast", ContextWindow: 256000, MaxOutputTokens: 10000,
		CostPer1MInput: 0.2, CostPer1MOutput: 1.5,
		Capabilities: caps(CapabilityCoding, CapabilityReasoning)},
	{ID: "grok-2-vision-1212", Name: "Grok 2 Vision", ContextWindow: 32768, MaxOutputTokens: 8192,
		CostPer1MInput: 2.0, CostPer1MOutput: 10.0, Capabilities: caps(CapabilityVision)},
}
