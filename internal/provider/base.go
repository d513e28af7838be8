package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Operation names reported to the Observer.
const (
	OpList  = "list"
	OpChat  = "chat"
	OpProbe = "probe"
)

// Observer records the outcome of every vendor HTTP call.
type Observer interface {
	ObserveRequest(p ID, operation, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(ID, string, string, time.Duration) {}

// Options configure adapter construction.
type Options struct {
	HTTPClient *http.Client
	// BaseURLs overrides descriptor base URLs per provider.
	BaseURLs   map[ID]string
	Logger     zerolog.Logger
	Observer   Observer
	Inferencer Inferencer
	// Now is the clock used for freshness metadata.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		// Per-call deadlines come from the context.
		o.HTTPClient = &http.Client{}
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Inferencer == nil {
		o.Inferencer = HeuristicInferencer{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// baseHTTP provides the HTTP plumbing shared by adapters.
type baseHTTP struct {
	id       ID
	client   *http.Client
	baseURL  string
	logger   zerolog.Logger
	observer Observer
}

func newBaseHTTP(desc Descriptor, opts Options) baseHTTP {
	baseURL := desc.BaseURL
	if u, ok := opts.BaseURLs[desc.ID]; ok && u != "" {
		baseURL = u
	}
	return baseHTTP{
		id:       desc.ID,
		client:   opts.HTTPClient,
		baseURL:  baseURL,
		logger:   opts.Logger.With().Str("provider", string(desc.ID)).Logger(),
		observer: opts.Observer,
	}
}

// do performs an HTTP request. Any status >= 400 is returned as *APIError
// together with the status code; transport failures return status 0.
func (b *baseHTTP) do(ctx context.Context, op, method, url string, headers map[string]string, body any) ([]byte, int, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create HTTP request: %w", redactURL(err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	callID := uuid.NewString()
	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		err = redactURL(err)
		b.finish(op, callID, start, 0, err)
		return nil, 0, fmt.Errorf("%s request failed: %w", b.id, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		b.finish(op, callID, start, resp.StatusCode, err)
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := newAPIError(b.id, resp.StatusCode, respBody)
		b.finish(op, callID, start, resp.StatusCode, apiErr)
		return respBody, resp.StatusCode, apiErr
	}

	b.finish(op, callID, start, resp.StatusCode, nil)
	return respBody, resp.StatusCode, nil
}

// observe records a call made outside do, such as through the go-openai client.
func (b *baseHTTP) observe(op string, start time.Time, err error) {
	b.finish(op, uuid.NewString(), start, StatusCode(err), err)
}

func (b *baseHTTP) finish(op, callID string, start time.Time, status int, err error) {
	elapsed := time.Since(start)
	b.observer.ObserveRequest(b.id, op, outcomeOf(status, err), elapsed)

	ev := b.logger.Debug()
	if err != nil {
		ev = b.logger.Debug().Err(err)
	}
	ev.Str("call_id", callID).
		Str("operation", op).
		Int("status", status).
		Dur("elapsed", elapsed).
		Msg("vendor call")
}

// redactURL strips the query string from transport errors; some vendors
// carry the key there.
func redactURL(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		urlErr.URL = u.String()
	}
	return err
}

func outcomeOf(status int, err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsTimeout(err):
		return "timeout"
	case status == 0:
		return "network"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "server_error"
	default:
		return fmt.Sprintf("http_%d", status)
	}
}

// mergeListed resolves listed models against the static table: a static
// entry keeps its metadata, anything else is enriched by inference.
func mergeListed(p ID, listed []ModelVariant, inf Inferencer, now time.Time) []ModelVariant {
	static := StaticModels(p)
	out := make([]ModelVariant, 0, len(listed))
	for _, m := range listed {
		if s, ok := FindVariant(static, m.ID); ok {
			if s.ContextWindow == 0 {
				s.ContextWindow = m.ContextWindow
			}
			if s.MaxOutputTokens == 0 {
				s.MaxOutputTokens = m.MaxOutputTokens
			}
			if m.Created > 0 {
				s = s.WithCreated(m.Created, now)
			}
			out = append(out, s)
			continue
		}
		m.IsNew = IsNewModel(m.Created, now)
		out = append(out, Enrich(m, inf))
	}
	return out
}
