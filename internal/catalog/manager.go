package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/byok/internal/provider"
	"github.com/yourusername/byok/internal/store"
	"github.com/yourusername/byok/internal/verify"
)

// Store row names.
const (
	dynamicPrefix         = "dynamic_models_"
	proxyPrefix           = "proxy_models_"
	LastRefreshKey        = "last_refresh_timestamp"
	ProxyTimestampKey     = "proxy_timestamp"
	defaultRefreshTimeout = 15 * time.Second
)

// Catalog sources, in read precedence order.
const (
	SourceDynamic = "dynamic"
	SourceProxy   = "proxy"
	SourceStatic  = "static"
)

// DynamicKey is the store row holding a provider's per-user model list.
func DynamicKey(p provider.ID) string { return dynamicPrefix + string(p) }

// ProxyKey is the store row holding a provider's proxy snapshot.
func ProxyKey(p provider.ID) string { return proxyPrefix + string(p) }

// Options configure a Manager.
type Options struct {
	Logger zerolog.Logger
	Now    func() time.Time
	// RefreshTimeout bounds one vendor listing.
	RefreshTimeout time.Duration
	// ProxyMinInterval skips non-forced proxy refreshes while the stored
	// snapshot is younger than this. Zero always refetches.
	ProxyMinInterval time.Duration
}

// Manager merges vendor listings with stored and static metadata.
type Manager struct {
	adapters verify.Adapters
	store    store.Store
	proxy    *ProxyClient
	logger   zerolog.Logger
	now      func() time.Time
	timeout  time.Duration
	minProxy time.Duration
	flights  singleflight.Group
}

// NewManager creates a Manager. proxy may be nil.
func NewManager(adapters verify.Adapters, s store.Store, proxy *ProxyClient, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}
	return &Manager{
		adapters: adapters,
		store:    s,
		proxy:    proxy,
		logger:   opts.Logger,
		now:      opts.Now,
		timeout:  opts.RefreshTimeout,
		minProxy: opts.ProxyMinInterval,
	}
}

// RefreshUserModels lists p's models with key and merges them with existing
// metadata. The merged list replaces p's dynamic row. A vendor without a
// list endpoint, or an empty listing, returns nil and leaves the stored
// catalog untouched.
func (m *Manager) RefreshUserModels(ctx context.Context, p provider.ID, key string) ([]provider.ModelVariant, error) {
	adapter, err := m.adapters.Get(p)
	if err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("API key is required to refresh models")
	}

	// The shared flight outlives any single caller; each caller stops
	// waiting when its own context ends. refresh bounds the vendor call.
	flight := string(p) + ":" + verify.HashKey(key)
	ch := m.flights.DoChan(flight, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx), adapter, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			m.logger.Debug().Str("provider", string(p)).Msg("joined in-flight model refresh")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		models, _ := res.Val.([]provider.ModelVariant)
		return provider.CloneVariants(models), nil
	}
}

func (m *Manager) refresh(ctx context.Context, adapter provider.Adapter, key string) ([]provider.ModelVariant, error) {
	p := adapter.ID()
	log := m.logger.With().Str("provider", string(p)).Logger()

	listCtx, cancel := context.WithTimeout(ctx, m.timeout)
	raw, err := adapter.ListModels(listCtx, key)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list %s models: %w", p, err)
	}
	if len(raw) == 0 {
		log.Debug().Msg("vendor listing empty, keeping stored catalog")
		return nil, nil
	}

	merged := Merge(raw,
		m.loadRow(ctx, DynamicKey(p)),
		m.loadRow(ctx, ProxyKey(p)),
		provider.StaticModels(p),
		m.now(),
	)

	if err := store.SetJSON(ctx, m.store, DynamicKey(p), merged); err != nil {
		return nil, fmt.Errorf("store %s models: %w", p, err)
	}
	if err := m.setTimestamp(ctx, LastRefreshKey, m.now()); err != nil {
		log.Warn().Err(err).Msg("failed to record refresh timestamp")
	}

	log.Info().Int("models", len(merged)).Msg("model catalog refreshed")
	return merged, nil
}

// Merge builds a catalog from a vendor listing. Each listed id is looked up
// by exact id in dynamic, then proxy, then static. A hit keeps its metadata
// with the vendor's created timestamp applied; a miss becomes a generic
// zero-cost variant with no capabilities.
func Merge(raw []provider.RawModel, dynamic, proxy, static []provider.ModelVariant, now time.Time) []provider.ModelVariant {
	out := make([]provider.ModelVariant, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		existing, ok := provider.FindVariant(dynamic, r.ID)
		if !ok {
			existing, ok = provider.FindVariant(proxy, r.ID)
		}
		if !ok {
			existing, ok = provider.FindVariant(static, r.ID)
		}
		if !ok {
			out = append(out, provider.GenericVariant(r, now))
			continue
		}

		created := existing.Created
		if r.Created > 0 {
			created = r.Created
		}
		out = append(out, existing.Clone().WithCreated(created, now))
	}
	return out
}

// FetchAvailableModels returns p's catalog. With a key a fresh refresh is
// tried first; otherwise, or when it fails, the stored catalog is used.
func (m *Manager) FetchAvailableModels(ctx context.Context, p provider.ID, key string) ([]provider.ModelVariant, error) {
	if !provider.IsKnown(p) {
		return nil, fmt.Errorf("%w: %q", provider.ErrUnsupportedProvider, p)
	}
	if strings.TrimSpace(key) != "" {
		models, err := m.RefreshUserModels(ctx, p, key)
		switch {
		case err != nil:
			m.logger.Debug().Err(err).Str("provider", string(p)).Msg("refresh failed, using stored catalog")
		case len(models) > 0:
			return models, nil
		}
	}
	models, _ := m.Models(ctx, p)
	return models, nil
}

// Models returns p's stored catalog and the source it came from:
// dynamic, then proxy, then static.
func (m *Manager) Models(ctx context.Context, p provider.ID) ([]provider.ModelVariant, string) {
	if models := m.loadRow(ctx, DynamicKey(p)); len(models) > 0 {
		return models, SourceDynamic
	}
	if models := m.loadRow(ctx, ProxyKey(p)); len(models) > 0 {
		return models, SourceProxy
	}
	return provider.StaticModels(p), SourceStatic
}

// ResolveVariant finds metadata for modelID in p's catalog. Ids match
// exactly first, then with aggregator decoration removed.
func (m *Manager) ResolveVariant(ctx context.Context, p provider.ID, modelID string) (provider.ModelVariant, bool) {
	models, _ := m.Models(ctx, p)
	if v, ok := provider.FindVariant(models, modelID); ok {
		return v, true
	}
	if v, ok := provider.FindVariant(provider.StaticModels(p), modelID); ok {
		return v, true
	}
	for _, v := range models {
		if provider.MatchesListedID(p, v.ID, modelID) {
			return v, true
		}
	}
	return provider.ModelVariant{}, false
}

// RefreshAllFromProxy stores the proxy catalog, one row per known provider,
// and returns the model count per provider. Unless forced, a snapshot
// younger than the minimum interval is reused. On failure the previous
// snapshot stays in place.
func (m *Manager) RefreshAllFromProxy(ctx context.Context, force bool) (map[provider.ID]int, error) {
	if !force && m.minProxy > 0 {
		if ts, ok := m.timestamp(ctx, ProxyTimestampKey); ok && m.now().Sub(ts) < m.minProxy {
			m.logger.Debug().Time("fetched_at", ts).Msg("proxy snapshot fresh, skipping fetch")
			return m.proxyCounts(ctx)
		}
	}

	cat, err := m.proxy.Fetch(ctx, force)
	if err != nil {
		return nil, err
	}

	persistCtx := context.WithoutCancel(ctx)
	counts := make(map[provider.ID]int, len(cat.Models))
	for name, models := range cat.Models {
		p := provider.ID(name)
		if !provider.IsKnown(p) {
			m.logger.Debug().Str("provider", name).Msg("ignoring unknown provider in proxy catalog")
			continue
		}
		if err := store.SetJSON(persistCtx, m.store, ProxyKey(p), models); err != nil {
			return counts, fmt.Errorf("store %s proxy models: %w", p, err)
		}
		counts[p] = len(models)
	}

	fetchedAt := m.now()
	if cat.Timestamp > 0 {
		fetchedAt = time.UnixMilli(cat.Timestamp)
	}
	if err := m.setTimestamp(persistCtx, ProxyTimestampKey, fetchedAt); err != nil {
		m.logger.Warn().Err(err).Msg("failed to record proxy timestamp")
	}

	m.logger.Info().Int("providers", len(counts)).Bool("forced", force).Msg("proxy catalog refreshed")
	return counts, nil
}

// LastRefresh returns when a dynamic list was last stored.
func (m *Manager) LastRefresh(ctx context.Context) (time.Time, bool) {
	return m.timestamp(ctx, LastRefreshKey)
}

func (m *Manager) proxyCounts(ctx context.Context) (map[provider.ID]int, error) {
	rows, err := m.store.List(ctx, proxyPrefix)
	if err != nil {
		return nil, err
	}
	counts := make(map[provider.ID]int, len(rows))
	for key := range rows {
		p := provider.ID(strings.TrimPrefix(key, proxyPrefix))
		counts[p] = len(m.loadRow(ctx, key))
	}
	return counts, nil
}

// loadRow reads a stored model list. Missing or unreadable rows are empty.
func (m *Manager) loadRow(ctx context.Context, key string) []provider.ModelVariant {
	models, err := store.GetJSON[[]provider.ModelVariant](ctx, m.store, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Debug().Err(err).Str("row", key).Msg("ignoring unreadable catalog row")
		}
		return nil
	}
	return models
}

func (m *Manager) timestamp(ctx context.Context, key string) (time.Time, bool) {
	data, err := m.store.Get(ctx, key)
	if err != nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (m *Manager) setTimestamp(ctx context.Context, key string, t time.Time) error {
	return m.store.Set(ctx, key, []byte(strconv.FormatInt(t.UnixMilli(), 10)))
}
