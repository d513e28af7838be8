package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yourusername/byok/internal/provider"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Provider == "" {
		add("provider", "provider must be specified")
	} else if !provider.IsKnown(provider.ID(c.Provider)) {
		add("provider", "unknown provider '%s', valid: %s", c.Provider, validProviders())
	}

	for name, po := range c.Providers {
		if !provider.IsKnown(provider.ID(name)) {
			add("provider_config."+name, "unknown provider, valid: %s", validProviders())
		}
		if po.BaseURL != "" && !isHTTPURL(po.BaseURL) {
			add("provider_config."+name+".base_url", "must be an http(s) URL")
		}
	}

	if c.ProxyURL != "" && !isHTTPURL(c.ProxyURL) {
		add("proxy_url", "must be an http(s) URL")
	}
	if c.StorePath == "" {
		add("store_path", "must be set")
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		add("log_format", "must be 'console' or 'json'")
	}

	if c.Timeouts.Chat <= 0 {
		add("timeouts.chat", "must be positive")
	}
	if c.Timeouts.List <= 0 {
		add("timeouts.list", "must be positive")
	}
	if c.Timeouts.Probe <= 0 {
		add("timeouts.probe", "must be positive")
	}

	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 10 {
		add("retry.max_retries", "must be between 0 and 10")
	}
	if c.Retry.InitialDelay < 0 {
		add("retry.initial_delay", "must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port", "must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validProviders() string {
	ids := provider.IDs()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return strings.Join(names, ", ")
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CheckKeyFormat reports obvious key format mistakes. It never proves a key
// valid; only the vendor can.
func CheckKeyFormat(providerName, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key is empty")
	}

	switch provider.ID(providerName) {
	case provider.Anthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("Anthropic API key should start with 'sk-ant-'")
		}
	case provider.OpenAI:
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("OpenAI API key should start with 'sk-'")
		}
	case provider.OpenRouter:
		if !strings.HasPrefix(key, "sk-or-") {
			return fmt.Errorf("OpenRouter API key should start with 'sk-or-'")
		}
	case provider.Groq:
		if !strings.HasPrefix(key, "gsk_") {
			return fmt.Errorf("Groq API key should start with 'gsk_'")
		}
	case provider.XAI:
		if !strings.HasPrefix(key, "xai-") {
			return fmt.Errorf("xAI API key should start with 'xai-'")
		}
	}

	if len(key) < 20 {
		return fmt.Errorf("API key seems too short")
	}
	return nil
}

// GetConfigPrecedence returns a description of config source precedence
func GetConfigPrecedence() string {
	return `Configuration is loaded in the following order (later sources override earlier):

1. Built-in defaults
2. Config file (--config, $BYOK_CONFIG, or byok.yaml in ~/.config/byok, ., .byok)
3. Environment variables (BYOK_LOG_LEVEL, BYOK_PROXY_URL, BYOK_TIMEOUTS_CHAT, ...)
4. Command-line flags

API keys are resolved per provider in this order:

1. provider_config.<provider>.api_key in the config file
2. Vendor environment variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...)
3. Stored credentials (~/.config/byok/credentials.json, written by 'byok config set-key')
4. The --key flag or an interactive prompt, when a command needs a key
`
}
