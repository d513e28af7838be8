package verify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yourusername/byok/internal/provider"
)

// Pipeline verifies that a specific model is callable with a key.
type Pipeline struct {
	adapters Adapters
	cache    *Cache
	opts     Options
}

// NewPipeline creates a Pipeline.
func NewPipeline(adapters Adapters, cache *Cache, opts Options) *Pipeline {
	return &Pipeline{adapters: adapters, cache: cache, opts: opts.withDefaults()}
}

// VerifyModel returns the availability of model for key on p. It always
// returns one of the three results: cached results within their TTL are
// reused, then the vendor list is consulted, then a one-token probe. The
// outcome is cached before returning.
func (pl *Pipeline) VerifyModel(ctx context.Context, p provider.ID, key, model string) (result Result) {
	key = strings.TrimSpace(key)
	log := pl.opts.Logger.With().
		Str("provider", string(p)).
		Str("model", model).
		Str("key_hash", HashKey(key)[:12]).
		Logger()

	if cached, ok := pl.cache.Get(ctx, p, model, key); ok {
		pl.opts.Observer.ObserveVerification(p, string(cached), SourceCache)
		return cached
	}

	source := SourceProbe
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("model verification panicked")
			result = Uncertain
		}
		if !result.Valid() {
			result = Uncertain
		}
		pl.cache.Put(context.WithoutCancel(ctx), p, model, key, result)
		pl.opts.Observer.ObserveVerification(p, string(result), source)
		log.Debug().Str("result", string(result)).Str("source", source).Msg("model verified")
	}()

	adapter, err := pl.adapters.Get(p)
	if err != nil {
		log.Debug().Err(err).Msg("model verification skipped")
		source = SourceUnsupported
		return Uncertain
	}

	vendorModel := provider.ToVendorID(p, model)

	if r, ok := pl.listPhase(ctx, adapter, key, vendorModel, log); ok {
		source = SourceList
		return r
	}
	return pl.probePhase(ctx, adapter, key, vendorModel, log)
}

// listPhase reports a conclusive result from the vendor list. A failed list
// call, a missing list endpoint or an empty list is inconclusive.
func (pl *Pipeline) listPhase(ctx context.Context, adapter provider.Adapter, key, model string, log zerolog.Logger) (Result, bool) {
	listCtx, cancel := context.WithTimeout(ctx, pl.opts.ListTimeout)
	defer cancel()

	models, err := adapter.ListModels(listCtx, key)
	if err != nil {
		log.Debug().Err(err).Msg("list phase inconclusive")
		return "", false
	}
	if len(models) == 0 {
		return "", false
	}
	for _, m := range models {
		if provider.MatchesListedID(adapter.ID(), m.ID, model) {
			return Available, true
		}
	}
	return Unavailable, true
}

func (pl *Pipeline) probePhase(ctx context.Context, adapter provider.Adapter, key, model string, log zerolog.Logger) Result {
	probeCtx, cancel := context.WithTimeout(ctx, pl.opts.ProbeTimeout)
	defer cancel()

	status, err := adapter.Probe(probeCtx, key, model)
	if err != nil {
		log.Debug().Err(err).Msg("probe failed")
		return Uncertain
	}
	return ClassifyStatus(status)
}

// ClassifyStatus maps a probe HTTP status onto a result.
func ClassifyStatus(status int) Result {
	switch {
	case status >= 200 && status < 300:
		return Available
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		return Unavailable
	default:
		return Uncertain
	}
}

// StoredStatus reads the cached result without network access. An empty
// model reads the key-validation entry.
func (pl *Pipeline) StoredStatus(ctx context.Context, p provider.ID, key, model string) (Result, bool) {
	return pl.cache.Get(ctx, p, model, key)
}

func (r Result) String() string { return string(r) }

// ParseResult parses a result name.
func ParseResult(s string) (Result, error) {
	r := Result(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown verification result %q", s)
	}
	return r, nil
}
