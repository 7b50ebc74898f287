package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"indexflow/config"
	"indexflow/internal/model"
	"indexflow/logger"
)

// Fetcher performs the single outbound request of a run. It presents a
// browser identity through the User-Agent transport and applies the
// configured rate limit before each request so externally overlapping
// schedules cannot hammer the provider.
type Fetcher struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// New creates a Fetcher from the source configuration.
func New(cfg *config.Config) *Fetcher {
	client := &http.Client{
		Transport: userAgentTransport{agent: cfg.Source.UserAgent, base: http.DefaultTransport},
		Timeout:   cfg.Source.Timeout,
	}

	var limiter *rate.Limiter
	if rl := cfg.Source.RateLimit; rl.RequestsPerSecond > 0 {
		burst := rl.BurstSize
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
	}

	return &Fetcher{
		url:     cfg.Source.URL,
		client:  client,
		limiter: limiter,
		log:     logger.GetLogger(),
	}
}

// Fetch issues one GET against the configured endpoint and returns the
// response body. Network-level failures are wrapped in model.ErrTransport;
// the body is returned regardless of HTTP status so the validator can
// inspect denial responses.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	log := f.log.WithComponent("fetcher")

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", model.ErrTransport, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", model.ErrTransport, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request failed: %v", model.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", model.ErrTransport, err)
	}

	log.WithFields(logger.Fields{
		"status":     resp.StatusCode,
		"body_bytes": len(body),
	}).Info("provider response received")

	return body, nil
}
