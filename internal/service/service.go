// Package service is the facade the UI layer calls: key validation, model
// verification, chat calls and catalog maintenance over one shared store.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/byok/internal/catalog"
	"github.com/yourusername/byok/internal/provider"
	"github.com/yourusername/byok/internal/store"
	"github.com/yourusername/byok/internal/verify"
)

// DefaultChatTimeout bounds one CallAPI including retries.
const DefaultChatTimeout = 60 * time.Second

// maxConcurrentValidations limits ValidateAPIKeys fan-out.
const maxConcurrentValidations = 4

var (
	// ErrMissingKey is returned when a call needs a key and none was given.
	ErrMissingKey = errors.New("API key is required")
	// ErrNoMessages is returned for a chat call without messages.
	ErrNoMessages = errors.New("at least one message is required")
)

// Observer receives vendor request and verification telemetry.
type Observer interface {
	provider.Observer
	verify.Observer
}

// Options configure a Service.
type Options struct {
	Store      store.Store
	HTTPClient *http.Client
	BaseURLs   map[provider.ID]string
	Logger     zerolog.Logger
	Observer   Observer
	Now        func() time.Time

	ProxyURL         string
	ProxyMinInterval time.Duration

	ChatTimeout  time.Duration
	ListTimeout  time.Duration
	ProbeTimeout time.Duration
	Retry        *provider.RetryConfig
}

// ProviderInfo describes a supported provider.
type ProviderInfo struct {
	ID              provider.ID `json:"id"`
	Name            string      `json:"name"`
	DefaultModel    string      `json:"defaultModel"`
	HasListEndpoint bool        `json:"hasListEndpoint"`
	// AggregatorModel is DefaultModel as aggregators such as OpenRouter
	// list it.
	AggregatorModel string      `json:"aggregatorModel"`
}

// Service composes the registry, verification cache, validator, pipeline
// and catalog manager.
type Service struct {
	registry  *provider.Registry
	store     store.Store
	validator *verify.Validator
	pipeline  *verify.Pipeline
	catalog   *catalog.Manager
	logger    zerolog.Logger

	chatTimeout time.Duration
	retry       provider.RetryConfig
}

// New wires a Service. Options.Store is required.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("service: store is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ChatTimeout <= 0 {
		opts.ChatTimeout = DefaultChatTimeout
	}
	retry := provider.DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	retry.Logger = opts.Logger.With().Str("component", "retry").Logger()

	var provObs provider.Observer
	var verifyObs verify.Observer
	if opts.Observer != nil {
		provObs, verifyObs = opts.Observer, opts.Observer
	}

	registry := provider.NewRegistry(provider.Options{
		HTTPClient: opts.HTTPClient,
		BaseURLs:   opts.BaseURLs,
		Logger:     opts.Logger,
		Observer:   provObs,
		Now:        opts.Now,
	})
	cache := verify.NewCache(opts.Store, opts.Now, opts.Logger)
	vopts := verify.Options{
		ListTimeout:  opts.ListTimeout,
		ProbeTimeout: opts.ProbeTimeout,
		Logger:       opts.Logger,
		Observer:     verifyObs,
	}

	var proxy *catalog.ProxyClient
	if opts.ProxyURL != "" {
		proxy = catalog.NewProxyClient(opts.ProxyURL, opts.HTTPClient, opts.Logger)
	}

	return &Service{
		registry:  registry,
		store:     opts.Store,
		validator: verify.NewValidator(registry, cache, vopts),
		pipeline:  verify.NewPipeline(registry, cache, vopts),
		catalog: catalog.NewManager(registry, opts.Store, proxy, catalog.Options{
			Logger:           opts.Logger,
			Now:              opts.Now,
			ProxyMinInterval: opts.ProxyMinInterval,
		}),
		logger:      opts.Logger,
		chatTimeout: opts.ChatTimeout,
		retry:       retry,
	}, nil
}

// Providers lists the supported providers.
func (s *Service) Providers() []ProviderInfo {
	ids := provider.IDs()
	out := make([]ProviderInfo, 0, len(ids))
	for _, id := range ids {
		d, _ := provider.Lookup(id)
		out = append(out, ProviderInfo{
			ID:              id,
			Name:            d.Name,
			DefaultModel:    d.DefaultModel,
			HasListEndpoint: d.HasListEndpoint,
			AggregatorModel: provider.ToAggregatorID(id, d.DefaultModel),
		})
	}
	return out
}

// ValidateAPIKey reports whether key is accepted by p.
func (s *Service) ValidateAPIKey(ctx context.Context, p provider.ID, key string) bool {
	return s.validator.ValidateKey(ctx, p, key)
}

// ValidateAPIKeys validates several provider keys concurrently.
func (s *Service) ValidateAPIKeys(ctx context.Context, keys map[provider.ID]string) map[provider.ID]bool {
	var (
		mu      sync.Mutex
		results = make(map[provider.ID]bool, len(keys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentValidations)
	for p, key := range keys {
		g.Go(func() error {
			ok := s.validator.ValidateKey(gctx, p, key)
			mu.Lock()
			results[p] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// VerifyModelAvailability reports whether model is callable with key on p.
func (s *Service) VerifyModelAvailability(ctx context.Context, p provider.ID, key, model string) verify.Result {
	return s.pipeline.VerifyModel(ctx, p, key, model)
}

// GetStoredVerificationStatus returns the cached result without network
// access. An empty model reads the key validation result.
func (s *Service) GetStoredVerificationStatus(ctx context.Context, p provider.ID, key, model string) (verify.Result, bool) {
	return s.pipeline.StoredStatus(ctx, p, key, model)
}

// CallAPI runs one chat completion. The model's catalog metadata is attached
// when known, the id is normalized for the vendor and transient failures are
// retried within the chat deadline.
func (s *Service) CallAPI(ctx context.Context, p provider.ID, params provider.CallParams) (*provider.CallResult, error) {
	adapter, err := s.registry.Get(p)
	if err != nil {
		return nil, err
	}
	params.Key = strings.TrimSpace(params.Key)
	if params.Key == "" {
		return nil, ErrMissingKey
	}
	if len(params.Messages) == 0 {
		return nil, ErrNoMessages
	}
	if params.Model == "" {
		d, _ := provider.Lookup(p)
		params.Model = d.DefaultModel
	}

	if params.Variant == nil {
		if v, ok := s.catalog.ResolveVariant(ctx, p, params.Model); ok {
			params.Variant = &v
		}
	}
	params.Model = provider.ToVendorID(p, params.Model)

	ctx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()

	start := time.Now()
	result, err := provider.WithRetry(ctx, s.retry, func(ctx context.Context) (*provider.CallResult, error) {
		return adapter.CallAPI(ctx, params)
	})
	log := s.logger.With().
		Str("provider", string(p)).
		Str("model", params.Model).
		Dur("elapsed", time.Since(start)).
		Logger()
	if err != nil {
		log.Warn().Err(err).Int("status", provider.StatusCode(err)).Msg("chat call failed")
		return nil, err
	}
	log.Debug().
		Int("input_tokens", result.Usage.InputTokens).
		Int("output_tokens", result.Usage.OutputTokens).
		Msg("chat call completed")
	return result, nil
}

// RefreshUserModels rebuilds p's catalog from the vendor listing for key.
func (s *Service) RefreshUserModels(ctx context.Context, p provider.ID, key string) ([]provider.ModelVariant, error) {
	return s.catalog.RefreshUserModels(ctx, p, key)
}

// FetchAvailableModels returns p's models, refreshed with key when given.
func (s *Service) FetchAvailableModels(ctx context.Context, p provider.ID, key string) ([]provider.ModelVariant, error) {
	return s.catalog.FetchAvailableModels(ctx, p, key)
}

// StoredModels returns p's stored catalog and its source without network
// access.
func (s *Service) StoredModels(ctx context.Context, p provider.ID) ([]provider.ModelVariant, string, error) {
	if !provider.IsKnown(p) {
		return nil, "", fmt.Errorf("%w: %q", provider.ErrUnsupportedProvider, p)
	}
	models, source := s.catalog.Models(ctx, p)
	return models, source, nil
}

// RefreshAllModelsFromProxy stores the remote proxy catalog.
func (s *Service) RefreshAllModelsFromProxy(ctx context.Context, force bool) (map[provider.ID]int, error) {
	return s.catalog.RefreshAllFromProxy(ctx, force)
}

// LastRefresh returns when a per-user catalog was last stored.
func (s *Service) LastRefresh(ctx context.Context) (time.Time, bool) {
	return s.catalog.LastRefresh(ctx)
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}
