// Package algolia adapts the Algolia search SDK to the calls the reconciler
// needs: settings, query and batch. Around the SDK client it adds request
// pacing and classification of service errors.
package algolia

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/call"
	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	"github.com/algolia/algoliasearch-client-go/v4/algolia/transport"
	"golang.org/x/time/rate"

	"github.com/starford/indexsync/internal/models"
)

const defaultTimeout = 30 * time.Second

// Client talks to one Algolia application.
type Client struct {
	api     *search.APIClient
	limiter *rate.Limiter
}

type options struct {
	baseURL string
	timeout time.Duration
	rps     float64
	burst   int
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL sends both read and write traffic to one host instead of the
// application's default hosts.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithTimeout sets the read and write timeout of each request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRateLimit paces requests to rps with the given burst. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// NewClient returns a client for the application in creds.
func NewClient(creds models.Credentials, opts ...Option) (*Client, error) {
	if !creds.Complete() {
		return nil, errors.New("algolia: app id and api key are required")
	}
	o := options{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := search.SearchConfiguration{
		Configuration: transport.Configuration{
			AppID:        creds.AppID,
			ApiKey:       creds.APIKey,
			ReadTimeout:  o.timeout,
			WriteTimeout: o.timeout,
		},
	}
	if o.baseURL != "" {
		host, err := statefulHost(o.baseURL)
		if err != nil {
			return nil, err
		}
		cfg.Hosts = []transport.StatefulHost{host}
	}

	api, err := search.NewClientWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("algolia: new client: %w", err)
	}
	c := &Client{api: api}
	if o.rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(o.rps), max(o.burst, 1))
	}
	return c, nil
}

func statefulHost(raw string) (transport.StatefulHost, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return transport.StatefulHost{}, fmt.Errorf("algolia: base url %q must be absolute", raw)
	}
	return transport.NewStatefulHost(u.Scheme, u.Host, call.IsReadWrite), nil
}

// InitIndex returns a handle on the named index. No request is made.
func (c *Client) InitIndex(name string) *Index {
	return &Index{client: c, name: name}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
