//go:build integration

package provider

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

// Integration tests require API keys to be set
// Run with: go test -tags=integration ./internal/provider/...

func integrationKey(t *testing.T, id ID) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	d, _ := Lookup(id)
	for _, env := range d.KeyEnv {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	t.Skipf("%s not set, skipping integration test", strings.Join(d.KeyEnv, "/"))
	return ""
}

// TestAdaptersIntegration validates the key, lists models and sends one
// short completion against each vendor with a configured key.
func TestAdaptersIntegration(t *testing.T) {
	registry := NewRegistry(Options{})

	for _, id := range IDs() {
		t.Run(string(id), func(t *testing.T) {
			key := integrationKey(t, id)
			adapter, err := registry.Get(id)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			ok, err := adapter.ValidateKey(ctx, key)
			if err != nil || !ok {
				t.Fatalf("ValidateKey = %v, %v", ok, err)
			}

			d, _ := Lookup(id)
			result, err := adapter.CallAPI(ctx, CallParams{
				Key:       key,
				Model:     d.DefaultModel,
				MaxTokens: 50,
				Messages:  []Message{{Role: "user", Content: "Say 'Hello, World!' and nothing else."}},
			})
			if err != nil {
				t.Fatalf("CallAPI failed: %v", err)
			}
			if !strings.Contains(strings.ToLower(result.Content), "hello") {
				t.Errorf("Expected 'hello' in response, got: %s", result.Content)
			}
			t.Logf("%s: %d input / %d output tokens", id, result.Usage.InputTokens, result.Usage.OutputTokens)
		})
	}
}

// TestProbeIntegration checks that an unknown model is classified as a
// 4xx by each vendor.
func TestProbeIntegration(t *testing.T) {
	registry := NewRegistry(Options{})

	for _, id := range []ID{OpenAI, Anthropic, Google} {
		t.Run(string(id), func(t *testing.T) {
			key := integrationKey(t, id)
			adapter, _ := registry.Get(id)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			status, err := adapter.Probe(ctx, key, "definitely-not-a-model")
			if err != nil {
				t.Fatalf("Probe failed: %v", err)
			}
			if status < 400 || status >= 500 {
				t.Errorf("expected 4xx for unknown model, got %d", status)
			}
		})
	}
}
