package verify

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/byok/internal/provider"
)

// Verification sources reported to the Observer.
const (
	SourceCache       = "cache"
	SourceList        = "list"
	SourceFetch       = "fetch"
	SourceProbe       = "probe"
	SourceUnsupported = "unsupported"
)

// Default per-phase deadlines.
const (
	DefaultListTimeout  = 5 * time.Second
	DefaultProbeTimeout = 10 * time.Second
)

// Adapters resolves a provider id to its adapter. *provider.Registry
// satisfies it.
type Adapters interface {
	Get(id provider.ID) (provider.Adapter, error)
}

// Observer records verification outcomes.
type Observer interface {
	ObserveVerification(p provider.ID, result, source string)
}

type nopObserver struct{}

func (nopObserver) ObserveVerification(provider.ID, string, string) {}

// Options configure the Validator and Pipeline.
type Options struct {
	ListTimeout  time.Duration
	ProbeTimeout time.Duration
	Logger       zerolog.Logger
	Observer     Observer
}

func (o Options) withDefaults() Options {
	if o.ListTimeout <= 0 {
		o.ListTimeout = DefaultListTimeout
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

// Validator checks whether a credential is accepted by a vendor.
type Validator struct {
	adapters Adapters
	cache    *Cache
	opts     Options
}

// NewValidator creates a Validator.
func NewValidator(adapters Adapters, cache *Cache, opts Options) *Validator {
	return &Validator{adapters: adapters, cache: cache, opts: opts.withDefaults()}
}

// ValidateKey reports whether key is valid for p. A cached available or
// unavailable result is returned without network access; otherwise the
// list, fetch and one-token probe strategies are tried in order and the
// outcome is cached.
func (v *Validator) ValidateKey(ctx context.Context, p provider.ID, key string) bool {
	key = strings.TrimSpace(key)
	log := v.opts.Logger.With().Str("provider", string(p)).Str("key_hash", HashKey(key)[:12]).Logger()

	if key == "" {
		return false
	}
	adapter, err := v.adapters.Get(p)
	if err != nil {
		log.Debug().Err(err).Msg("key validation skipped")
		v.opts.Observer.ObserveVerification(p, string(Unavailable), SourceUnsupported)
		return false
	}

	switch cached, ok := v.cache.Get(ctx, p, "", key); {
	case ok && cached == Available:
		v.opts.Observer.ObserveVerification(p, string(cached), SourceCache)
		return true
	case ok && cached == Unavailable:
		v.opts.Observer.ObserveVerification(p, string(cached), SourceCache)
		return false
	}

	source, valid := v.runStrategies(ctx, adapter, key, log)
	result := Unavailable
	if valid {
		result = Available
	}
	v.cache.Put(context.WithoutCancel(ctx), p, "", key, result)
	v.opts.Observer.ObserveVerification(p, string(result), source)
	log.Debug().Str("result", string(result)).Str("source", source).Msg("key validated")
	return valid
}

// runStrategies returns the strategy that proved the key, or the last one
// tried when none did. A successful but empty list does not prove the key.
func (v *Validator) runStrategies(ctx context.Context, adapter provider.Adapter, key string, log zerolog.Logger) (string, bool) {
	listCtx, cancel := context.WithTimeout(ctx, v.opts.ListTimeout)
	listed, err := adapter.ValidateKey(listCtx, key)
	cancel()
	if listed {
		return SourceList, true
	}
	if err != nil {
		log.Debug().Err(err).Msg("list strategy failed")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, v.opts.ListTimeout)
	variants := adapter.FetchModels(fetchCtx, key)
	cancel()
	if len(variants) > 0 {
		return SourceFetch, true
	}

	desc, _ := provider.Lookup(adapter.ID())
	probeCtx, cancel := context.WithTimeout(ctx, v.opts.ProbeTimeout)
	status, err := adapter.Probe(probeCtx, key, desc.DefaultModel)
	cancel()
	if err != nil {
		log.Debug().Err(err).Msg("probe strategy failed")
	}
	return SourceProbe, err == nil && status >= 200 && status < 300
}
