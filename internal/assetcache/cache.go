// Package assetcache is an offline-first HTTP interceptor. Static assets are
// served from a versioned store, live API hosts always go to the network,
// and activation drops every generation except the current one.
package assetcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/unklstewy/loc-v2/internal/metrics"
)

// Request outcomes recorded in metrics and the X-Cache header.
const (
	ResultPassthrough  = "passthrough"
	ResultNetwork      = "network"
	ResultNetworkError = "network_error"
	ResultHit          = "hit"
	ResultMiss         = "miss"
	ResultMissError    = "miss_error"
)

// maxAssetBytes bounds a single cached body.
const maxAssetBytes = 32 << 20

// installConcurrency bounds parallel precache fetches.
const installConcurrency = 4

// Options configure a Cache.
type Options struct {
	Version string
	Policy  Policy

	// Origin resolves relative URLs passed to Install
	Origin string

	// StoreOnMiss keeps assets fetched after a miss
	StoreOnMiss bool

	// Next performs network requests; http.DefaultTransport when nil
	Next http.RoundTripper

	Logger *zap.SugaredLogger
	Now    func() time.Time
}

// Cache is an http.RoundTripper backed by a Store.
type Cache struct {
	store Store
	opts  Options
	next  http.RoundTripper
	log   *zap.SugaredLogger
	group singleflight.Group
}

var _ http.RoundTripper = (*Cache)(nil)

// New creates a cache over store.
func New(store Store, opts Options) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("asset cache requires a store")
	}
	if opts.Version == "" {
		return nil, fmt.Errorf("asset cache requires a version")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	next := opts.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return &Cache{
		store: store,
		opts:  opts,
		next:  next,
		log:   opts.Logger.With("cache_version", opts.Version),
	}, nil
}

// Version returns the current generation name.
func (c *Cache) Version() string {
	return c.opts.Version
}

// RoundTrip serves req according to the policy.
func (c *Cache) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		metrics.AssetRequests.WithLabelValues(ResultPassthrough).Inc()
		return c.next.RoundTrip(req)
	}

	if c.opts.Policy.IsDynamic(req.URL) {
		resp, err := c.next.RoundTrip(req)
		if err != nil {
			metrics.AssetRequests.WithLabelValues(ResultNetworkError).Inc()
			c.log.Warnw("live API request failed", "url", req.URL.String(), "error", err)
			return nil, err
		}
		metrics.AssetRequests.WithLabelValues(ResultNetwork).Inc()
		return resp, nil
	}

	key := req.URL.String()
	entry, err := c.store.Get(req.Context(), c.opts.Version, key)
	if err != nil {
		c.log.Warnw("cache lookup failed", "url", key, "error", err)
	}
	if entry != nil {
		metrics.AssetRequests.WithLabelValues(ResultHit).Inc()
		return entryResponse(req, entry, ResultHit), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.fetch(req)
	})
	if err != nil {
		metrics.AssetRequests.WithLabelValues(ResultMissError).Inc()
		return nil, err
	}
	fetched := v.(*Entry)
	metrics.AssetRequests.WithLabelValues(ResultMiss).Inc()

	if c.opts.StoreOnMiss && cacheable(fetched.StatusCode) {
		if err := c.store.Put(req.Context(), c.opts.Version, *fetched); err != nil {
			c.log.Warnw("failed to store fetched asset", "url", key, "error", err)
		}
	}
	return entryResponse(req, fetched, ResultMiss), nil
}

// fetch performs a network GET and buffers the response.
func (c *Cache) fetch(req *http.Request) (*Entry, error) {
	resp, err := c.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", req.URL, err)
	}
	return &Entry{
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   c.opts.Now(),
	}, nil
}

func cacheable(status int) bool {
	return status >= 200 && status < 300
}

func entryResponse(req *http.Request, e *Entry, result string) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("X-Cache", strings.ToUpper(result))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// InstallReport summarizes a precache run.
type InstallReport struct {
	Version string   `json:"version"`
	Stored  []string `json:"stored"`
	Failed  []string `json:"failed"`
}

// Install fetches urls into the current generation. Individual failures are
// logged and reported; they do not fail the install.
func (c *Cache) Install(ctx context.Context, urls []string) InstallReport {
	report := InstallReport{Version: c.opts.Version}
	results := make([]error, len(urls))
	resolved := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(installConcurrency)
	for i, raw := range urls {
		g.Go(func() error {
			u, err := c.resolve(raw)
			if err != nil {
				results[i] = err
				resolved[i] = raw
				return nil
			}
			resolved[i] = u
			results[i] = c.installOne(gctx, u)
			return nil
		})
	}
	g.Wait()

	for i, err := range results {
		if err != nil {
			c.log.Warnw("precache failed", "url", resolved[i], "error", err)
			report.Failed = append(report.Failed, resolved[i])
			continue
		}
		report.Stored = append(report.Stored, resolved[i])
	}
	c.log.Infow("install complete", "stored", len(report.Stored), "failed", len(report.Failed))
	return report
}

func (c *Cache) resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid asset url %q: %w", raw, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if c.opts.Origin == "" {
		return "", fmt.Errorf("relative asset url %q needs an origin", raw)
	}
	base, err := url.Parse(c.opts.Origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", c.opts.Origin, err)
	}
	return base.ResolveReference(u).String(), nil
}

func (c *Cache) installOne(ctx context.Context, u string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	e, err := c.fetch(req)
	if err != nil {
		return err
	}
	if !cacheable(e.StatusCode) {
		return fmt.Errorf("unexpected status %d", e.StatusCode)
	}
	if err := c.store.Put(ctx, c.opts.Version, *e); err != nil {
		return err
	}
	metrics.AssetsPrecached.Inc()
	return nil
}

// Activate deletes every generation other than the current one and returns
// the names it removed.
func (c *Cache) Activate(ctx context.Context) ([]string, error) {
	gens, err := c.store.Generations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}

	var removed []string
	for _, g := range gens {
		if g == c.opts.Version {
			continue
		}
		if err := c.store.DeleteGeneration(ctx, g); err != nil {
			return removed, fmt.Errorf("failed to delete generation %s: %w", g, err)
		}
		c.log.Infow("removed old cache generation", "generation", g)
		removed = append(removed, g)
	}
	return removed, nil
}

// Status describes the store contents.
type Status struct {
	Version     string                 `json:"version"`
	Entries     int                    `json:"entries"`
	Generations []string               `json:"generations"`
	Backend     map[string]interface{} `json:"backend,omitempty"`
}

// Status reports the current generation size and every stored generation.
func (c *Cache) Status(ctx context.Context) (Status, error) {
	n, err := c.store.Count(ctx, c.opts.Version)
	if err != nil {
		return Status{}, err
	}
	gens, err := c.store.Generations(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Version: c.opts.Version, Entries: n, Generations: gens}
	if r, ok := c.store.(StatsReporter); ok {
		if st.Backend, err = r.Stats(ctx); err != nil {
			c.log.Warnw("failed to read store stats", "error", err)
		}
	}
	return st, nil
}

// Ping checks the store backend. Stores without a server always succeed.
func (c *Cache) Ping(ctx context.Context) error {
	if p, ok := c.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
