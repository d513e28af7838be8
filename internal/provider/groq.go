package provider

var groqDescriptor = func() Descriptor {
	d := openAICompatible(Groq, "Groq", "https://api.groq.com/openai/v1",
		"llama-3.1-8b-instant", "", "GROQ_API_KEY")
	d.NativeSlashIDs = true
	return d
}()

var groqModels = []ModelVariant{
	// Meta Llama
	{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B Versatile", ContextWindow: 131072,
		MaxOutputTokens: 32768, CostPer1MInput: 0.59, CostPer1MOutput: 0.79, Capabilities: caps()},
	{ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B Instant", ContextWindow: 131072,
		MaxOutputTokens: 8192, CostPer1MInput: 0.05, CostPer1MOutput: 0.08, Capabilities: caps()},
	{ID: "meta-llama/llama-4-scout-17b-16e-instruct", Name: "Llama 4 Scout", ContextWindow: 131072,
		MaxOutputTokens: 8192, CostPer1MInput: 0.11, CostPer1MOutput: 0.34, Capabilities: caps(CapabilityVision)},
	// Qwen
	{ID: "qwen/qwen3-32b", Name: "Qwen3 32B", ContextWindow: 131072, MaxOutputTokens: 40960,
		CostPer1MInput: 0.29, CostPer1MOutput: 0.59,
		Capabilities: caps(CapabilityReasoning), SupportsReasoningEffort: true},
	// OpenAI open weights
	{ID: "openai/gpt-oss-120b", Name: "GPT OSS 120B", ContextWindow: 131072, MaxOutputTokens: 32766,
		CostPer1MInput: 0.15, CostPer1MOutput: 0.75,
		Capabilities: caps(CapabilityReasoning), SupportsReasoningEffort: true},
}
