package surface

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/resilience"
)

// ClientConfig tunes the HTTP surface client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	RPS     float64
}

// DefaultClientConfig returns settings suited to a co-located renderer.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Retries: 2,
		RPS:     50,
	}
}

// Client talks to the renderer over HTTP with rate limiting, retries,
// and circuit breaker protection.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	mu      sync.RWMutex
}

// NewClient creates a surface client for the renderer at cfg.BaseURL.
func NewClient(cfg ClientConfig) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil // Disable logging

	restyClient := resty.New()
	restyClient.
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "TabEngine-Surface/1.0")

	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), int(cfg.RPS))
	}

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: resilience.New("surface", resilience.SurfaceDefaults()),
	}
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// request prepares a rate-limited request, refusing when the breaker is
// open.
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	if c.breaker.State() == resilience.StateOpen {
		return nil, ErrUnavailable
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resty.R().SetContext(ctx), nil
}

// execute runs fn under the breaker and maps failures to surface errors.
func (c *Client) execute(fn func() (*resty.Response, error)) (*resty.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("renderer error: %s", resp.Status())
		}
		return resp, nil
	})
	if err == resilience.ErrCircuitOpen || err == resilience.ErrTooManyRequests {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, err
	}
	return result.(*resty.Response), nil
}

// Probe implements Surface.
func (c *Client) Probe(ctx context.Context, tabID string) (Capability, error) {
	req, err := c.request(ctx)
	if err != nil {
		return CapabilityUnknown, err
	}

	var body struct {
		ScrollRestore bool `json:"scroll_restore"`
	}
	resp, err := c.execute(func() (*resty.Response, error) {
		return req.SetResult(&body).Get(fmt.Sprintf("/tabs/%s/capabilities", tabID))
	})
	if err != nil {
		return CapabilityUnknown, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return CapabilityUnknown, ErrNoSurface
	}
	if body.ScrollRestore {
		return CapabilityPresent, nil
	}
	return CapabilityAbsent, nil
}

// Describe implements Surface.
func (c *Client) Describe(ctx context.Context, tabID string) (*PageState, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var state PageState
	resp, err := c.execute(func() (*resty.Response, error) {
		return req.SetResult(&state).Get(fmt.Sprintf("/tabs/%s/state", tabID))
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNoSurface
	}
	if resp.IsError() {
		return nil, fmt.Errorf("describe tab %s: %s", tabID, resp.Status())
	}
	return &state, nil
}

// Suspend implements Surface.
func (c *Client) Suspend(ctx context.Context, tabID string) error {
	return c.post(ctx, fmt.Sprintf("/tabs/%s/suspend", tabID), nil)
}

// Discard implements Surface.
func (c *Client) Discard(ctx context.Context, tabID string) error {
	return c.post(ctx, fmt.Sprintf("/tabs/%s/discard", tabID), nil)
}

// Resume implements Surface.
func (c *Client) Resume(ctx context.Context, tabID, url string) error {
	return c.post(ctx, fmt.Sprintf("/tabs/%s/resume", tabID), map[string]string{"url": url})
}

// RestoreScroll implements Surface.
func (c *Client) RestoreScroll(ctx context.Context, tabID string, x, y float64) (float64, float64, error) {
	req, err := c.request(ctx)
	if err != nil {
		return 0, 0, err
	}

	var body struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	resp, err := c.execute(func() (*resty.Response, error) {
		return req.
			SetBody(map[string]float64{"x": x, "y": y}).
			SetResult(&body).
			Post(fmt.Sprintf("/tabs/%s/scroll", tabID))
	})
	if err != nil {
		return 0, 0, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return 0, 0, ErrNoSurface
	}
	if resp.IsError() {
		return 0, 0, fmt.Errorf("restore scroll for tab %s: %s", tabID, resp.Status())
	}
	return body.X, body.Y, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := c.execute(func() (*resty.Response, error) {
		return req.Post(path)
	})
	if err != nil {
		return err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNoSurface
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %s", path, resp.Status())
	}
	return nil
}
