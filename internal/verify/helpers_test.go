package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/byok/internal/provider"
)

// fakeAdapter is a scripted provider.Adapter that counts calls.
type fakeAdapter struct {
	id provider.ID

	mu          sync.Mutex
	list        []provider.RawModel
	listErr     error
	fetch       []provider.ModelVariant
	probeStatus int
	probeErr    error
	panicOnList bool

	listCalls  int
	fetchCalls int
	probeCalls int
	probed     []string
	keys       []string
}

func (f *fakeAdapter) ID() provider.ID { return f.id }

func (f *fakeAdapter) ValidateKey(ctx context.Context, key string) (bool, error) {
	models, err := f.ListModels(ctx, key)
	return len(models) > 0, err
}

func (f *fakeAdapter) ListModels(_ context.Context, key string) ([]provider.RawModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.keys = append(f.keys, key)
	if f.panicOnList {
		panic("vendor exploded")
	}
	return f.list, f.listErr
}

func (f *fakeAdapter) FetchModels(_ context.Context, key string) []provider.ModelVariant {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	f.keys = append(f.keys, key)
	return f.fetch
}

func (f *fakeAdapter) CallAPI(context.Context, provider.CallParams) (*provider.CallResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) Probe(_ context.Context, key, model string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	f.keys = append(f.keys, key)
	f.probed = append(f.probed, model)
	return f.probeStatus, f.probeErr
}

func (f *fakeAdapter) sentKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *fakeAdapter) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls + f.fetchCalls + f.probeCalls
}

// fakeAdapters resolves ids from a fixed map.
type fakeAdapters map[provider.ID]provider.Adapter

func (f fakeAdapters) Get(id provider.ID) (provider.Adapter, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q", provider.ErrUnsupportedProvider, id)
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingObserver captures verification observations.
type recordingObserver struct {
	mu   sync.Mutex
	seen []string
}

func (r *recordingObserver) ObserveVerification(p provider.ID, result, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, fmt.Sprintf("%s/%s/%s", p, result, source))
}

func (r *recordingObserver) Seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

// failingStore fails every operation.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) ([]byte, error)            { return nil, errStoreDown }
func (failingStore) Set(context.Context, string, []byte) error              { return errStoreDown }
func (failingStore) Delete(context.Context, string) error                   { return errStoreDown }
func (failingStore) List(context.Context, string) (map[string][]byte, error) { return nil, errStoreDown }
func (failingStore) Close() error                                           { return nil }
