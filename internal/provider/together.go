package provider

var togetherDescriptor = func() Descriptor {
	d := openAICompatible(Together, "Together AI", "https://api.together.xyz/v1",
		"meta-llama/Llama-3.3-70B-Instruct-Turbo", "", "TOGETHER_API_KEY")
	d.NativeSlashIDs = true
	return d
}()

var togetherModels = []ModelVariant{
	// Meta Llama models
	{ID: "meta-llama/Llama-3.3-70B-Instruct-Turbo", Name: "Llama 3.3 70B Instruct Turbo",
		ContextWindow: 131072, MaxOutputTokens: 8192, CostPer1MInput: 0.88, CostPer1MOutput: 0.88,
		Capabilities: caps()},
	{ID: "meta-llama/Llama-3.2-90B-Vision-Instruct-Turbo", Name: "Llama 3.2 90B Vision",
		ContextWindow: 131072, MaxOutputTokens: 8192, CostPer1MInput: 1.2, CostPer1MOutput: 1.2,
		Capabilities: caps(CapabilityVision)},
	// Qwen models
	{ID: "Qwen/Qwen2.5-Coder-32B-Instruct", Name: "Qwen 2.5 Coder 32B",
		ContextWindow: 32768, MaxOutputTokens: 8192, CostPer1MInput: 0.8, CostPer1MOutput: 0.8,
		Capabilities: caps(CapabilityCoding)},
	{ID: "Qwen/Qwen3-235B-A22B-fp8-tput", Name: "Qwen3 235B",
		ContextWindow: 40960, MaxOutputTokens: 8192, CostPer1MInput: 0.2, CostPer1MOutput: 0.6,
		Capabilities: caps(CapabilityReasoning), SupportsEnableThinking: true},
	// DeepSeek models
	{ID: "deepseek-ai/DeepSeek-R1", Name: "DeepSeek R1",
		ContextWindow: 163840, MaxOutputTokens: 32768, CostPer1MInput: 3.0, CostPer1MOutput: 7.0,
		Capabilities: caps(CapabilityReasoning)},
}
