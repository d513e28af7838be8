package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yourusername/byok/internal/provider"
)

const (
	// EnvConfig points at an explicit config file.
	EnvConfig = "BYOK_CONFIG"
	envPrefix = "BYOK"
	appName   = "byok"
)

// Config holds all configuration for byok.
type Config struct {
	Provider string `mapstructure:"provider" json:"provider"`
	Model    string `mapstructure:"model" json:"model,omitempty"`

	// StorePath is the sqlite file holding verification results and catalogs.
	StorePath string `mapstructure:"store_path" json:"store_path"`
	// ProxyURL is the remote catalog proxy endpoint.
	ProxyURL string `mapstructure:"proxy_url" json:"proxy_url,omitempty"`

	LogLevel  string `mapstructure:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" json:"log_format"`

	Timeouts TimeoutConfig `mapstructure:"timeouts" json:"timeouts"`
	Retry    RetryConfig   `mapstructure:"retry" json:"retry"`
	Catalog  CatalogConfig `mapstructure:"catalog" json:"catalog"`
	Server   ServerConfig  `mapstructure:"server" json:"server"`

	// Keys are vendor keys picked up from the environment.
	Keys map[string]string `mapstructure:"keys" json:"-"`

	Providers map[string]ProviderOverride `mapstructure:"provider_config" json:"provider_config,omitempty"`

	credentials *Credentials
	configFile  string
}

// TimeoutConfig bounds each kind of vendor request.
type TimeoutConfig struct {
	Chat  time.Duration `mapstructure:"chat" json:"chat"`
	List  time.Duration `mapstructure:"list" json:"list"`
	Probe time.Duration `mapstructure:"probe" json:"probe"`
}

// RetryConfig configures retries around chat calls.
type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries" json:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay" json:"initial_delay"`
}

// CatalogConfig configures catalog refreshes.
type CatalogConfig struct {
	ProxyMinInterval time.Duration `mapstructure:"proxy_min_interval" json:"proxy_min_interval"`
}

// ServerConfig defines the local HTTP API settings.
type ServerConfig struct {
	Hostname string   `mapstructure:"hostname" json:"hostname"`
	Port     int      `mapstructure:"port" json:"port"`
	CORS     []string `mapstructure:"cors" json:"cors,omitempty"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// ProviderOverride customizes one provider.
type ProviderOverride struct {
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty"`
	APIKey  string `mapstructure:"api_key" json:"-"`
}

// Load reads configuration from defaults, the config file, the environment
// and stored credentials. An explicit path wins over BYOK_CONFIG, which wins
// over the search path.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(GetConfigDir())
		v.AddConfigPath(".")
		v.AddConfigPath("." + appName)
		v.SetConfigName(appName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.configFile = v.ConfigFileUsed()
	cfg.StorePath = expandHome(cfg.StorePath)

	creds, err := LoadCredentials(CredentialsPath())
	if err != nil {
		return nil, err
	}
	cfg.credentials = creds

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(provider.OpenAI))
	v.SetDefault("model", "")
	v.SetDefault("store_path", filepath.Join(GetConfigDir(), appName+".db"))
	v.SetDefault("proxy_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("timeouts.chat", 60*time.Second)
	v.SetDefault("timeouts.list", 5*time.Second)
	v.SetDefault("timeouts.probe", 10*time.Second)
	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.initial_delay", 500*time.Millisecond)
	v.SetDefault("catalog.proxy_min_interval", time.Hour)
	v.SetDefault("server.hostname", "localhost")
	v.SetDefault("server.port", 4097)
}

// bindKeyEnv maps each vendor's key variables onto keys.<provider>.
func bindKeyEnv(v *viper.Viper) {
	for _, id := range provider.IDs() {
		desc, _ := provider.Lookup(id)
		if len(desc.KeyEnv) == 0 {
			continue
		}
		args := append([]string{"keys." + string(id)}, desc.KeyEnv...)
		_ = v.BindEnv(args...)
	}
}

// GetAPIKey returns the key for a provider: provider_config override, then
// environment, then stored credentials.
func (c *Config) GetAPIKey(providerName string) string {
	if po, ok := c.Providers[providerName]; ok && po.APIKey != "" {
		return strings.TrimSpace(po.APIKey)
	}
	if k := c.Keys[providerName]; k != "" {
		return strings.TrimSpace(k)
	}
	if c.credentials != nil {
		return strings.TrimSpace(c.credentials.Keys[providerName])
	}
	return ""
}

// BaseURLs returns the configured base URL overrides.
func (c *Config) BaseURLs() map[provider.ID]string {
	urls := make(map[provider.ID]string)
	for name, po := range c.Providers {
		if po.BaseURL != "" {
			urls[provider.ID(name)] = po.BaseURL
		}
	}
	return urls
}

// RetryPolicy converts the retry settings for provider.WithRetry.
func (c *Config) RetryPolicy() provider.RetryConfig {
	rc := provider.DefaultRetryConfig()
	rc.MaxRetries = c.Retry.MaxRetries
	if c.Retry.InitialDelay > 0 {
		rc.InitialDelay = c.Retry.InitialDelay
	}
	return rc
}

// ConfiguredProviders lists providers with a key available.
func (c *Config) ConfiguredProviders() []provider.ID {
	var ids []provider.ID
	for _, id := range provider.IDs() {
		if c.GetAPIKey(string(id)) != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ConfigFile returns the file the config was read from, if any.
func (c *Config) ConfigFile() string { return c.configFile }

// GetConfigDir returns the byok config directory.
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".config", appName)
}

// SaveConfig writes the config to a JSON file. Keys are never written.
func (c *Config) SaveConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// String renders the config as JSON with keys omitted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
