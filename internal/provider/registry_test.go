package provider

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(Options{})

	for _, id := range IDs() {
		t.Run(string(id), func(t *testing.T) {
			a, err := r.Get(id)
			require.NoError(t, err)
			assert.Equal(t, id, a.ID())

			again, err := r.Get(id)
			require.NoError(t, err)
			assert.Same(t, a, again)
		})
	}
}

func TestRegistryDialects(t *testing.T) {
	r := NewRegistry(Options{})

	a, _ := r.Get(Anthropic)
	assert.IsType(t, &AnthropicAdapter{}, a)
	g, _ := r.Get(Google)
	assert.IsType(t, &GoogleAdapter{}, g)
	o, _ := r.Get(OpenRouter)
	assert.IsType(t, &OpenRouterAdapter{}, o)
	d, _ := r.Get(DeepSeek)
	assert.IsType(t, &OpenAICompatibleAdapter{}, d)
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry(Options{})
	_, err := r.Get("acme")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestRegistryConcurrentGet(t *testing.T) {
	r := NewRegistry(Options{})
	results := make([]Adapter, 16)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Get(OpenAI)
		}(i)
	}
	wg.Wait()

	for _, a := range results {
		assert.Same(t, results[0], a)
	}
}

func TestDescriptors(t *testing.T) {
	for _, id := range IDs() {
		d, ok := Lookup(id)
		require.True(t, ok)
		assert.Equal(t, id, d.ID)
		assert.NotEmpty(t, d.BaseURL)
		assert.NotEmpty(t, d.DefaultModel)
		assert.NotEmpty(t, d.KeyEnv)
		assert.NotEmpty(t, StaticModels(id), "static models for %s", id)
	}

	models := StaticModels(OpenAI)
	models[0].Name = "mutated"
	assert.NotEqual(t, "mutated", StaticModels(OpenAI)[0].Name)
}
