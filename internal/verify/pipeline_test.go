package verify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/byok/internal/provider"
	"github.com/yourusername/byok/internal/store"
)

func newPipeline(adapters Adapters, s store.Store, clock *testClock, obs Observer) *Pipeline {
	return NewPipeline(adapters, NewCache(s, clock.Now, zerolog.Nop()), Options{Observer: obs})
}

func TestVerifyModel_ListPhase(t *testing.T) {
	tests := []struct {
		name   string
		p      provider.ID
		listed []string
		model  string
		want   Result
	}{
		{"exact match", provider.OpenAI, []string{"gpt-4o-mini", "gpt-4o"}, "gpt-4o", Available},
		{"aggregator prefix stripped", provider.OpenAI, []string{"gpt-4o"}, "openai/gpt-4o", Available},
		{"google models prefix", provider.Google, []string{"models/gemini-2.5-pro"}, "gemini-2.5-pro", Available},
		{"clean miss", provider.OpenAI, []string{"gpt-4o-mini"}, "gpt-4o", Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := &fakeAdapter{id: tt.p}
			for _, id := range tt.listed {
				adapter.list = append(adapter.list, provider.RawModel{ID: id})
			}
			obs := &recordingObserver{}
			pl := newPipeline(fakeAdapters{tt.p: adapter}, store.NewMemoryStore(), newTestClock(), obs)

			assert.Equal(t, tt.want, pl.VerifyModel(context.Background(), tt.p, "sk", tt.model))
			assert.Zero(t, adapter.probeCalls, "a conclusive list skips the probe")
			assert.Equal(t, []string{string(tt.p) + "/" + string(tt.want) + "/" + SourceList}, obs.Seen())
		})
	}
}

func TestVerifyModel_InconclusiveListFallsBackToProbe(t *testing.T) {
	tests := []struct {
		name    string
		adapter *fakeAdapter
	}{
		{"list error", &fakeAdapter{listErr: errors.New("timeout")}},
		{"nil list", &fakeAdapter{}},
		{"empty list", &fakeAdapter{list: []provider.RawModel{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.adapter.id = provider.Mistral
			tt.adapter.probeStatus = http.StatusOK
			pl := newPipeline(fakeAdapters{provider.Mistral: tt.adapter}, store.NewMemoryStore(), newTestClock(), nil)

			assert.Equal(t, Available, pl.VerifyModel(context.Background(), provider.Mistral, "sk", "mistralai/mistral-large-latest"))
			assert.Equal(t, 1, tt.adapter.probeCalls)
			assert.Equal(t, []string{"mistral-large-latest"}, tt.adapter.probed, "probe receives the vendor id")
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Result
	}{
		{200, Available},
		{201, Available},
		{299, Available},
		{400, Uncertain},
		{401, Unavailable},
		{403, Unavailable},
		{404, Unavailable},
		{408, Uncertain},
		{429, Uncertain},
		{500, Uncertain},
		{503, Uncertain},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStatus(tt.status), "status %d", tt.status)
	}
}

func TestVerifyModel_ProbeOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		adapter *fakeAdapter
		want    Result
	}{
		{"not found", &fakeAdapter{probeStatus: http.StatusNotFound}, Unavailable},
		{"rate limited", &fakeAdapter{probeStatus: http.StatusTooManyRequests}, Uncertain},
		{"transport error", &fakeAdapter{probeErr: errors.New("connection reset")}, Uncertain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.adapter.id = provider.DeepSeek
			s := store.NewMemoryStore()
			clock := newTestClock()
			pl := newPipeline(fakeAdapters{provider.DeepSeek: tt.adapter}, s, clock, nil)

			assert.Equal(t, tt.want, pl.VerifyModel(context.Background(), provider.DeepSeek, "sk", "deepseek-chat"))

			got, ok := pl.StoredStatus(context.Background(), provider.DeepSeek, "sk", "deepseek-chat")
			require.True(t, ok, "every outcome is persisted")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyModel_UnknownProviderIsUncertain(t *testing.T) {
	obs := &recordingObserver{}
	s := store.NewMemoryStore()
	pl := newPipeline(fakeAdapters{}, s, newTestClock(), obs)

	assert.Equal(t, Uncertain, pl.VerifyModel(context.Background(), "acme", "sk", "model-x"))
	assert.Equal(t, []string{"acme/uncertain/" + SourceUnsupported}, obs.Seen())
	assert.Equal(t, 1, s.Len())
}

func TestVerifyModel_PanicIsUncertain(t *testing.T) {
	adapter := &fakeAdapter{id: provider.OpenAI, panicOnList: true}
	pl := newPipeline(fakeAdapters{provider.OpenAI: adapter}, store.NewMemoryStore(), newTestClock(), nil)

	var got Result
	require.NotPanics(t, func() {
		got = pl.VerifyModel(context.Background(), provider.OpenAI, "sk", "gpt-4o")
	})
	assert.Equal(t, Uncertain, got)
}

func TestVerifyModel_CachedResultSkipsNetwork(t *testing.T) {
	adapter := &fakeAdapter{id: provider.OpenAI, list: []provider.RawModel{{ID: "gpt-4o"}}}
	clock := newTestClock()
	obs := &recordingObserver{}
	pl := newPipeline(fakeAdapters{provider.OpenAI: adapter}, store.NewMemoryStore(), clock, obs)
	ctx := context.Background()

	first := pl.VerifyModel(ctx, provider.OpenAI, "sk", "gpt-4o")
	calls := adapter.networkCalls()

	clock.Advance(23 * time.Hour)
	assert.Equal(t, first, pl.VerifyModel(ctx, provider.OpenAI, "sk", "gpt-4o"))
	assert.Equal(t, calls, adapter.networkCalls())
	assert.Equal(t, []string{"openai/available/list", "openai/available/cache"}, obs.Seen())

	clock.Advance(2 * time.Hour)
	pl.VerifyModel(ctx, provider.OpenAI, "sk", "gpt-4o")
	assert.Greater(t, adapter.networkCalls(), calls, "expired entries are re-verified")
}

func TestVerifyModel_UncertainIsReusedWithinTTL(t *testing.T) {
	adapter := &fakeAdapter{id: provider.OpenAI, probeStatus: http.StatusServiceUnavailable}
	pl := newPipeline(fakeAdapters{provider.OpenAI: adapter}, store.NewMemoryStore(), newTestClock(), nil)
	ctx := context.Background()

	assert.Equal(t, Uncertain, pl.VerifyModel(ctx, provider.OpenAI, "sk", "gpt-4o"))
	calls := adapter.networkCalls()
	assert.Equal(t, Uncertain, pl.VerifyModel(ctx, provider.OpenAI, "sk", "gpt-4o"))
	assert.Equal(t, calls, adapter.networkCalls())
}

func TestVerifyModel_CancelledContextStillPersists(t *testing.T) {
	adapter := &fakeAdapter{id: provider.OpenAI, probeErr: context.Canceled}
	s := store.NewMemoryStore()
	pl := newPipeline(fakeAdapters{provider.OpenAI: adapter}, s, newTestClock(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, Uncertain, pl.VerifyModel(ctx, provider.OpenAI, "sk", "gpt-4o"))
	assert.Equal(t, 1, s.Len())
}

func TestStoredStatus(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	cache := NewCache(store.NewMemoryStore(), clock.Now, zerolog.Nop())
	pl := NewPipeline(fakeAdapters{}, cache, Options{})

	_, ok := pl.StoredStatus(ctx, provider.OpenAI, "sk", "gpt-4o")
	assert.False(t, ok)

	cache.Put(ctx, provider.OpenAI, "gpt-4o", "sk", Unavailable)
	cache.Put(ctx, provider.OpenAI, "", "sk", Available)

	got, ok := pl.StoredStatus(ctx, provider.OpenAI, "sk", "gpt-4o")
	require.True(t, ok)
	assert.Equal(t, Unavailable, got)

	got, ok = pl.StoredStatus(ctx, provider.OpenAI, "sk", "")
	require.True(t, ok)
	assert.Equal(t, Available, got)

	clock.Advance(2 * time.Hour)
	_, ok = pl.StoredStatus(ctx, provider.OpenAI, "sk", "gpt-4o")
	assert.False(t, ok)
}

func TestParseResult(t *testing.T) {
	r, err := ParseResult("available")
	require.NoError(t, err)
	assert.Equal(t, Available, r)
	assert.Equal(t, "available", r.String())

	_, err = ParseResult("maybe")
	assert.Error(t, err)
}

// roundTripFunc lets a test script vendor transport behaviour.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestVerifyModel_AnthropicListFailureProbeNotFound(t *testing.T) {
	var probedModel string
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if strings.HasSuffix(r.URL.Path, "/models") {
			return nil, errors.New("network unreachable")
		}
		body, _ := io.ReadAll(r.Body)
		probedModel = string(body)
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"type":"error","error":{"type":"not_found_error","message":"model: claude-9"}}`)),
			Request:    r,
		}, nil
	})

	registry := provider.NewRegistry(provider.Options{HTTPClient: &http.Client{Transport: transport}})
	clock := newTestClock()
	pl := newPipeline(registry, store.NewMemoryStore(), clock, nil)
	ctx := context.Background()

	assert.Equal(t, Unavailable, pl.VerifyModel(ctx, provider.Anthropic, "sk-ant", "anthropic/claude-9"))
	assert.Contains(t, probedModel, `"model":"claude-9"`)

	clock.Advance(59 * time.Minute)
	got, ok := pl.StoredStatus(ctx, provider.Anthropic, "sk-ant", "anthropic/claude-9")
	require.True(t, ok)
	assert.Equal(t, Unavailable, got)

	clock.Advance(2 * time.Minute)
	_, ok = pl.StoredStatus(ctx, provider.Anthropic, "sk-ant", "anthropic/claude-9")
	assert.False(t, ok, "unavailable entries expire after an hour")
}
