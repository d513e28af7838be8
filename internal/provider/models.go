package provider

import (
	"slices"
	"time"
)

// Capability is a coarse model capability tag.
type Capability string

const (
	CapabilityVision    Capability = "vision"
	CapabilityCoding    Capability = "coding"
	CapabilityReasoning Capability = "reasoning"
)

// NewModelWindow is how recent a model's created timestamp must be for the
// model to be flagged as new.
const NewModelWindow = 90 * 24 * time.Hour

// ModelVariant describes one callable model. Field names follow the proxy
// catalog payload.
type ModelVariant struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	ContextWindow   int          `json:"contextWindow,omitempty"`
	MaxOutputTokens int          `json:"maxOutputTokens,omitempty"`
	CostPer1MInput  float64      `json:"costPer1MInput"`
	CostPer1MOutput float64      `json:"costPer1MOutput"`
	Capabilities    []Capability `json:"capabilities"`

	SupportsReasoningEffort bool `json:"supportsReasoningEffort,omitempty"`
	SupportsThinkingBudget  bool `json:"supportsThinkingBudget,omitempty"`
	SupportsThinkingLevel   bool `json:"supportsThinkingLevel,omitempty"`
	SupportsEnableThinking  bool `json:"supportsEnableThinking,omitempty"`

	Created    int64   `json:"created,omitempty"`
	IsNew      bool    `json:"isNew,omitempty"`
	Popularity float64 `json:"popularity,omitempty"`

	// ProviderMaxTokens is the upstream provider's output ceiling, reported
	// by aggregators.
	ProviderMaxTokens int `json:"providerMaxTokens,omitempty"`
}

// HasCapability reports whether the variant carries tag c.
func (m ModelVariant) HasCapability(c Capability) bool {
	return slices.Contains(m.Capabilities, c)
}

// IsReasoning reports whether the variant is a reasoning model.
func (m ModelVariant) IsReasoning() bool {
	return m.HasCapability(CapabilityReasoning)
}

// Clone returns a deep copy of the variant.
func (m ModelVariant) Clone() ModelVariant {
	m.Capabilities = slices.Clone(m.Capabilities)
	return m
}

// WithCreated overwrites the created timestamp and recomputes IsNew
// relative to now.
func (m ModelVariant) WithCreated(created int64, now time.Time) ModelVariant {
	m.Created = created
	m.IsNew = IsNewModel(created, now)
	return m
}

// IsNewModel reports whether a unix created timestamp falls within
// NewModelWindow of now.
func IsNewModel(created int64, now time.Time) bool {
	if created <= 0 {
		return false
	}
	return now.Sub(time.Unix(created, 0)) <= NewModelWindow
}

// GenericVariant builds a minimal variant from what a vendor list returned.
// Costs are zero placeholders and the capability set is empty.
func GenericVariant(raw RawModel, now time.Time) ModelVariant {
	name := raw.Name
	if name == "" {
		name = raw.ID
	}
	v := ModelVariant{
		ID:           raw.ID,
		Name:         name,
		Description:  raw.Description,
		Capabilities: []Capability{},
	}
	return v.WithCreated(raw.Created, now)
}

// FindVariant returns the variant with the exact id from models.
func FindVariant(models []ModelVariant, id string) (ModelVariant, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelVariant{}, false
}

// CloneVariants deep-copies a variant list.
func CloneVariants(models []ModelVariant) []ModelVariant {
	if models == nil {
		return nil
	}
	out := make([]ModelVariant, len(models))
	for i, m := range models {
		out[i] = m.Clone()
	}
	return out
}

func caps(c ...Capability) []Capability {
	if len(c) == 0 {
		return []Capability{}
	}
	return c
}
