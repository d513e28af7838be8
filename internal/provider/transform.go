package provider

import "strings"

// Provider-specific message and request transformations applied by the
// adapters before a request is encoded.

// effortBudgets maps a reasoning effort onto a thinking budget for vendors
// that take a token budget instead of an effort level.
var effortBudgets = map[ID]map[string]int{
	Anthropic: {"low": 5000, "medium": 10000, "high": 32000, "max": 100000},
	Google:    {"low": 1024, "medium": 8192, "high": 32768},
}

// EffortBudget returns the thinking budget that stands in for effort on
// provider p, or 0 when there is none.
func EffortBudget(p ID, effort string) int {
	return effortBudgets[p][strings.ToLower(effort)]
}

// thinkingBudget resolves the budget to send: an explicit budget wins,
// otherwise a reasoning effort is translated.
func thinkingBudget(p ID, params CallParams) int {
	if params.ThinkingBudget > 0 {
		return params.ThinkingBudget
	}
	return EffortBudget(p, params.ReasoningEffort)
}

const fillerAssistantMessage = "I understand. Please continue."

// NormalizeMessages applies provider-specific message normalization:
// system turns are dropped for vendors that take the system prompt out of
// band, empty assistant turns are removed, and Mistral gets a filler
// assistant turn between consecutive user turns.
func NormalizeMessages(messages []Message, p ID) []Message {
	if len(messages) == 0 {
		return messages
	}

	result := make([]Message, 0, len(messages))
	for _, msg := range messages {
		role := strings.ToLower(msg.Role)
		if role == "system" && (p == Anthropic || p == Google) {
			continue
		}
		if role == "assistant" && strings.TrimSpace(msg.Content) == "" {
			continue
		}
		msg.Role = role
		result = append(result, msg)
	}

	if p == Mistral {
		result = insertFillerMessages(result)
	}
	return result
}

// systemPrompt joins params.System with any system turns in the
// conversation, for vendors with a dedicated system field.
func systemPrompt(params CallParams) string {
	parts := make([]string, 0, 1)
	if params.System != "" {
		parts = append(parts, params.System)
	}
	for _, msg := range params.Messages {
		if strings.EqualFold(msg.Role, "system") && msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func insertFillerMessages(messages []Message) []Message {
	result := make([]Message, 0, len(messages))
	for i, msg := range messages {
		if i > 0 && msg.Role == "user" && messages[i-1].Role == "user" {
			result = append(result, Message{
				Role:    "assistant",
				Content: fillerAssistantMessage,
			})
		}
		result = append(result, msg)
	}
	return result
}
