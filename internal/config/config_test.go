package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/byok/internal/provider"
)

// isolate points HOME at a temp dir and clears every vendor key variable.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvConfig, "")
	for _, id := range provider.IDs() {
		desc, _ := provider.Lookup(id)
		for _, env := range desc.KeyEnv {
			t.Setenv(env, "")
		}
	}
	t.Chdir(t.TempDir())
	return home
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, filepath.Join(home, ".config", "byok", "byok.db"), cfg.StorePath)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Chat)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.List)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Probe)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, time.Hour, cfg.Catalog.ProxyMinInterval)
	assert.Equal(t, "localhost:4097", cfg.Server.Addr())
	assert.Empty(t, cfg.ConfigFile())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, ".config", "byok", "byok.yaml"), `
provider: anthropic
model: claude-3-5-haiku-20241022
store_path: ~/data/byok.db
proxy_url: https://proxy.example.com/models
log_format: json
timeouts:
  chat: 30s
retry:
  max_retries: 1
  initial_delay: 250ms
provider_config:
  groq:
    base_url: http://localhost:9999/v1
    api_key: " gsk_from_config "
`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile())
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, filepath.Join(home, "data", "byok.db"), cfg.StorePath)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Chat)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.List, "unset keys keep defaults")
	assert.Equal(t, "gsk_from_config", cfg.GetAPIKey("groq"))
	assert.Equal(t, map[provider.ID]string{provider.Groq: "http://localhost:9999/v1"}, cfg.BaseURLs())

	rc := cfg.RetryPolicy()
	assert.Equal(t, 1, rc.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, rc.InitialDelay)
}

func TestLoadExplicitPath(t *testing.T) {
	isolate(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "custom.yaml"), "provider: mistral\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Provider)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit missing file is an error")
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("BYOK_LOG_LEVEL", "debug")
	t.Setenv("BYOK_TIMEOUTS_PROBE", "3s")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GOOGLE_API_KEY", "AIza-google")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.Probe)
	assert.Equal(t, "sk-env", cfg.GetAPIKey("openai"))
	assert.Equal(t, "AIza-google", cfg.GetAPIKey("google"))
	assert.Empty(t, cfg.GetAPIKey("anthropic"))
	assert.Equal(t, []provider.ID{provider.Google, provider.OpenAI}, cfg.ConfiguredProviders())
}

func TestGetAPIKeyPrecedence(t *testing.T) {
	home := isolate(t)
	creds := &Credentials{}
	creds.SetKey("deepseek", "sk-stored")
	creds.SetKey("openai", "sk-stored-openai")
	require.NoError(t, SaveCredentials(filepath.Join(home, ".config", "byok", "credentials.json"), creds))
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.GetAPIKey("openai"), "environment beats stored credentials")
	assert.Equal(t, "sk-stored", cfg.GetAPIKey("deepseek"))

	cfg.Providers = map[string]ProviderOverride{"openai": {APIKey: "sk-override"}}
	assert.Equal(t, "sk-override", cfg.GetAPIKey("openai"))
}

func TestValidate(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Provider = "acme"
	cfg.LogFormat = "xml"
	cfg.ProxyURL = "ftp://proxy"
	cfg.Timeouts.Probe = 0
	cfg.Retry.MaxRetries = 99
	cfg.Server.Port = 70000
	cfg.Providers = map[string]ProviderOverride{"nope": {BaseURL: "not a url"}}

	err = cfg.Validate()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)

	fields := make([]string, len(verrs))
	for i, e := range verrs {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{
		"provider", "provider_config.nope", "provider_config.nope.base_url",
		"proxy_url", "log_format", "timeouts.probe", "retry.max_retries", "server.port",
	}, fields)
	assert.True(t, strings.HasPrefix(err.Error(), "configuration validation failed"))
}

func TestCheckKeyFormat(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		wantErr  bool
	}{
		{"anthropic", "sk-ant-REDACTED", false},
		{"anthropic", "sk-abcdefghijklmnopqrstu", true},
		{"openai", "sk-proj-abcdefghijklmnopqrstu", false},
		{"openrouter", "sk-or-v1-abcdefghijklmnop", false},
		{"groq", "gsk_abcdefghijklmnopqrstu", false},
		{"xai", "abcdefghijklmnopqrstuvwx", true},
		{"google", "short", true},
		{"google", "   ", true},
		{"mistral", "abcdefghijklmnopqrstuvwx", false},
	}
	for _, tt := range tests {
		err := CheckKeyFormat(tt.provider, tt.key)
		assert.Equal(t, tt.wantErr, err != nil, "%s %q", tt.provider, tt.key)
	}
}

func TestSaveConfigOmitsKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "byok.json")
	cfg := &Config{
		Provider:  "openai",
		Keys:      map[string]string{"openai": "sk-secret"},
		Providers: map[string]ProviderOverride{"groq": {BaseURL: "http://x", APIKey: "gsk-secret"}},
	}
	require.NoError(t, cfg.SaveConfig(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, cfg.String(), "secret")

	var got Config
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "http://x", got.Providers["groq"].BaseURL)
}

func TestCredentialsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "credentials.json")

	empty, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Empty(t, empty.Keys)

	creds := &Credentials{}
	creds.SetKey("openai", "  sk-1 ")
	creds.SetKey("groq", "gsk")
	creds.SetKey("groq", "")
	require.NoError(t, SaveCredentials(path, creds))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"openai": "sk-1"}, loaded.Keys)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))
	_, err = LoadCredentials(path)
	assert.Error(t, err)
}

func TestReadLine(t *testing.T) {
	key, err := readLine(strings.NewReader("  sk-piped \nrest"))
	require.NoError(t, err)
	assert.Equal(t, "sk-piped", key)

	key, err = readLine(strings.NewReader("sk-no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "sk-no-newline", key)

	_, err = readLine(strings.NewReader("\n"))
	assert.Error(t, err)
}
