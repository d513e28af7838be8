package provider

var deepSeekDescriptor = openAICompatible(DeepSeek, "DeepSeek", "https://api.deepseek.com/v1",
	"deepseek-chat", "deepseek", "DEEPSEEK_API_KEY")

var deepSeekModels = []ModelVariant{
	{ID: "deepseek-chat", Name: "DeepSeek Chat", ContextWindow: 65536, MaxOutputTokens: 8192,
		CostPer1MInput: 0.27, CostPer1MOutput: 1.1,
		Capabilities: caps(CapabilityCoding)},
	{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner", ContextWindow: 65536, MaxOutputTokens: 32768,
		CostPer1MInput: 0.55, CostPer1MOutput: 2.19,
		Capabilities: caps(CapabilityReasoning)},
}
