// Package robots provides a cached robots.txt checker for the safety gateway.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const defaultCacheTTL = 30 * time.Minute

// maxRobotsBody bounds how much of a robots.txt response is read.
const maxRobotsBody = 512 * 1024

// Checker fetches and caches robots.txt per host and answers allow queries for
// the configured user agent.
type Checker struct {
	userAgent string
	client    *http.Client
	ttl       time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	data    *robotstxt.RobotsData
	fetched time.Time
}

// Config controls the checker.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

// New creates a Checker.
func New(cfg Config) *Checker {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		ttl:       ttl,
		cache:     make(map[string]cacheEntry),
	}
}

// Allowed reports whether the configured user agent may fetch rawURL. Hosts
// whose robots.txt cannot be retrieved are treated as allowing everything.
func (c *Checker) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return false, fmt.Errorf("url %q has no scheme or host", rawURL)
	}

	data, err := c.robotsFor(ctx, u)
	if err != nil {
		return true, nil
	}
	if data == nil {
		return true, nil
	}
	return data.TestAgent(u.Path, c.userAgent), nil
}

func (c *Checker) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	key := strings.ToLower(u.Scheme + "://" + u.Host)

	c.mu.Lock()
	entry, ok := c.cache[key]
	c.mu.Unlock()
	if ok && time.Since(entry.fetched) < c.ttl {
		return entry.data, nil
	}

	data, err := c.fetch(ctx, key+"/robots.txt")
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{data: data, fetched: time.Now()}
	c.mu.Unlock()
	return data, nil
}

func (c *Checker) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}
