package provider

import "slices"

// Dialect is the HTTP request shape a vendor speaks.
type Dialect string

const (
	DialectOpenAI     Dialect = "openai"
	DialectAnthropic  Dialect = "anthropic"
	DialectGoogle     Dialect = "google"
	DialectOpenRouter Dialect = "openrouter"
)

// Descriptor is the static, read-only record for one vendor.
type Descriptor struct {
	ID      ID
	Name    string
	BaseURL string
	Dialect Dialect

	// Authentication: header name plus value prefix, or a URL query
	// parameter when AuthQueryParam is set.
	AuthHeader     string
	AuthPrefix     string
	AuthQueryParam string

	DefaultTemperature  float64
	SupportsTemperature bool
	SupportsTopP        bool
	SupportsMaxTokens   bool

	// DefaultModel is used for the minimal completion strategy of key validation.
	DefaultModel string

	// HasListEndpoint is false for vendors without a usable models endpoint.
	HasListEndpoint bool

	// AggregatorPrefix is the vendor segment an aggregator puts in front of
	// this vendor's model ids ("openai" in "openai/gpt-4o").
	AggregatorPrefix string

	// NativeSlashIDs marks vendors whose own model ids contain '/'.
	NativeSlashIDs bool

	KeyEnv []string
}

var descriptors = map[ID]Descriptor{
	OpenAI:     openAIDescriptor,
	Anthropic:  anthropicDescriptor,
	Google:     googleDescriptor,
	OpenRouter: openRouterDescriptor,
	Groq:       groqDescriptor,
	DeepSeek:   deepSeekDescriptor,
	Mistral:    mistralDescriptor,
	XAI:        xaiDescriptor,
	Together:   togetherDescriptor,
}

var staticModels = map[ID][]ModelVariant{
	OpenAI:     openAIModels,
	Anthropic:  anthropicModels,
	Google:     googleModels,
	OpenRouter: openRouterModels,
	Groq:       groqModels,
	DeepSeek:   deepSeekModels,
	Mistral:    mistralModels,
	XAI:        xaiModels,
	Together:   togetherModels,
}

// Lookup returns the descriptor for id.
func Lookup(id ID) (Descriptor, bool) {
	d, ok := descriptors[id]
	return d, ok
}

// IsKnown reports whether id is in the closed provider set.
func IsKnown(id ID) bool {
	_, ok := descriptors[id]
	return ok
}

// IDs returns every provider id, sorted.
func IDs() []ID {
	ids := make([]ID, 0, len(descriptors))
	for id := range descriptors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// StaticModels returns a copy of the compiled-in model list for id.
func StaticModels(id ID) []ModelVariant {
	return CloneVariants(staticModels[id])
}

// openAICompatible fills the fields shared by every OpenAI-dialect vendor.
func openAICompatible(id ID, name, baseURL, defaultModel, aggregatorPrefix string, env ...string) Descriptor {
	return Descriptor{
		ID:                  id,
		Name:                name,
		BaseURL:             baseURL,
		Dialect:             DialectOpenAI,
		AuthHeader:          "Authorization",
		AuthPrefix:          "Bearer ",
		DefaultTemperature:  0.7,
		SupportsTemperature: true,
		SupportsTopP:        true,
		SupportsMaxTokens:   true,
		DefaultModel:        defaultModel,
		HasListEndpoint:     true,
		AggregatorPrefix:    aggregatorPrefix,
		KeyEnv:              env,
	}
}
