package provider

var mistralDescriptor = openAICompatible(Mistral, "Mistral AI", "https://api.mistral.ai/v1",
	"mistral-small-latest", "mistralai", "MISTRAL_API_KEY")

var mistralModels = []ModelVariant{
	// Mistral Large / Medium / Small
	{ID: "mistral-large-latest", Name: "Mistral Large", ContextWindow: 131072, MaxOutputTokens: 8192,
		CostPer1MInput: 2.0, CostPer1MOutput: 6.0, Capabilities: caps()},
	{ID: "mistral-medium-latest", Name: "Mistral Medium", ContextWindow: 131072, MaxOutputTokens: 8192,
		CostPer1MInput: 0.4, CostPer1MOutput: 2.0, Capabilities: caps(CapabilityVision)},
	{ID: "mistral-small-latest", Name: "Mistral Small", ContextWindow: 131072, MaxOutputTokens: 8192,
		CostPer1MInput: 0.1, CostPer1MOutput: 0.3, Capabilities: caps()},
	// Code and reasoning
	{ID: "codestral-latest", Name: "Codestral", ContextWindow: 256000, MaxOutputTokens: 8192,
		CostPer1MInput: 0.3, CostPer1MOutput: 0.9, Capabilities: caps(CapabilityCoding)},
	{ID: "devstral-medium-latest", Name: "Devstral Medium", ContextWindow: 131072, MaxOutputTokens: 8192,
		CostPer1MInput: 0.4, CostPer1MOutput: 2.0, Capabilities: caps(CapabilityCoding)},
	{ID: "magistral-medium-latest", Name: "Magistral Medium", ContextWindow: 40000, MaxOutputTokens: 40000,
		CostPer1MInput: 2.0, CostPer1MOutput: 5.0, Capabilities: caps(CapabilityReasoning)},
	// Pixtral (vision)
	{ID: "pixtral-large-latest", Name: "Pixtral Large", ContextWindow: 131072, MaxOutputTokens: 8192,
		CostPer1MInput: 2.0, CostPer1MOutput: 6.0, Capabilities: caps(CapabilityVision)},
}
