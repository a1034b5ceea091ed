// Package collyfetcher implements the safety-gated fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Config is the safety policy applied to every fetch.
type Config struct {
	UserAgent      string
	ForbiddenTypes []string
	BlockedHosts   []string
	Timeout        time.Duration
}

// HostBudget admits or denies a request against the per-host rate budget.
type HostBudget interface {
	Allow(rawURL string) bool
}

// RobotsChecker answers whether the policy's user agent may fetch a URL.
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) (bool, error)
}

// Gateway fetches pages through the safety policy: host blocklist, per-host
// budget, and robots checks happen before the network call, and forbidden
// content types abort the response once headers arrive, before the body is
// buffered.
type Gateway struct {
	cfg           Config
	blockedHosts  map[string]struct{}
	budget        HostBudget
	robots        RobotsChecker
	baseCollector *colly.Collector
}

// New builds a Gateway. budget and robots may be nil to disable those checks.
func New(cfg Config, budget HostBudget, robots RobotsChecker) *Gateway {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true // robots compliance lives in the gateway itself
	c.WithTransport(newHTTPTransport())

	blocked := make(map[string]struct{}, len(cfg.BlockedHosts))
	for _, host := range cfg.BlockedHosts {
		if host != "" {
			blocked[strings.ToLower(host)] = struct{}{}
		}
	}

	return &Gateway{
		cfg:           cfg,
		blockedHosts:  blocked,
		budget:        budget,
		robots:        robots,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET after the policy checks pass.
func (g *Gateway) Fetch(ctx context.Context, url string) (sentry.FetchResult, error) {
	if host, blocked := g.isBlockedHost(url); blocked {
		return sentry.FetchResult{}, &sentry.PolicyViolation{
			URL:    url,
			Reason: sentry.PolicyBlockedHost,
			Detail: host,
		}
	}
	if g.budget != nil && !g.budget.Allow(url) {
		return sentry.FetchResult{}, &sentry.PolicyViolation{URL: url, Reason: sentry.PolicyRateLimited}
	}
	if g.robots != nil {
		allowed, err := g.robots.Allowed(ctx, url)
		if err != nil {
			return sentry.FetchResult{}, &sentry.FetchError{URL: url, Err: err}
		}
		if !allowed {
			return sentry.FetchResult{}, &sentry.PolicyViolation{URL: url, Reason: sentry.PolicyRobotsDisallowed}
		}
	}

	var (
		result   sentry.FetchResult
		fetchErr error
	)
	start := time.Now()
	collector := g.buildCollector(url, start, &result, &fetchErr)

	if err := g.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return sentry.FetchResult{}, err
	}
	return result, nil
}

func (g *Gateway) buildCollector(
	url string,
	start time.Time,
	result *sentry.FetchResult,
	fetchErr *error,
) *colly.Collector {
	collector := g.baseCollector.Clone()
	if g.cfg.UserAgent != "" {
		collector.UserAgent = g.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	timeout := g.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnResponseHeaders(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if g.isForbiddenType(contentType) {
			*fetchErr = &sentry.PolicyViolation{
				URL:    url,
				Reason: sentry.PolicyForbiddenContentType,
				Detail: contentType,
			}
			r.Request.Abort()
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		*result = sentry.FetchResult{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        append([]byte(nil), r.Body...),
			Duration:    time.Since(start),
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if *fetchErr != nil {
			return
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		*fetchErr = &sentry.FetchError{URL: url, StatusCode: status, Err: err}
	})

	return collector
}

func (g *Gateway) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		// The Visit goroutine keeps running until SetRequestTimeout fires.
		// It still writes through result/fetchErr, but the caller abandoned
		// both and only sees the error returned here.
		return &sentry.FetchError{URL: url, Err: fmt.Errorf("fetch canceled: %w", ctx.Err())}
	case err := <-done:
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return &sentry.FetchError{URL: url, Err: err}
		}
		return nil
	}
}

func (g *Gateway) isBlockedHost(rawURL string) (string, bool) {
	if len(g.blockedHosts) == 0 {
		return "", false
	}
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	_, blocked := g.blockedHosts[host]
	return host, blocked
}

func (g *Gateway) isForbiddenType(contentType string) bool {
	if contentType == "" {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	for _, forbidden := range g.cfg.ForbiddenTypes {
		if forbidden == "" {
			continue
		}
		if strings.HasPrefix(normalized, strings.ToLower(forbidden)) {
			return true
		}
	}
	return false
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
