// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pushshift searches a Pushshift-compatible archive API for
// comments and submissions. Results are fetched lazily, one page at a time,
// as the returned stream is consumed.
package pushshift

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/psaw/internal/fields"
	"github.com/pdiddy/psaw/internal/httputil"
	"github.com/pdiddy/psaw/internal/stream"
	"github.com/pdiddy/psaw/pkg/types"
)

const (
	DefaultBaseURL   = "https://api.pushshift.io"
	DefaultUserAgent = "psaw/0.1"
	DefaultTimeout   = 60 * time.Second
	DefaultPageSize  = 100
	DefaultPerMinute = 60

	// pageField orders results and drives paging via the before parameter.
	pageField = "created_utc"
)

// Client queries the archive search endpoints.
type Client struct {
	http    *http.Client
	cfg     types.APIConfig
	limiter *rate.Limiter
}

// New returns a client for cfg, filling defaults for unset values. A
// malformed proxy address is an error.
func New(cfg types.APIConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize <= 0 || cfg.PageSize > DefaultPageSize {
		cfg.PageSize = DefaultPageSize
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxy, err := ParseProxy(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	c := &Client{
		http: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cfg:  cfg,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c, nil
}

// ParseProxy accepts "host:port" or a full URL with an http, https, or
// socks5 scheme.
func ParseProxy(s string) (*url.URL, error) {
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy %q: %w", s, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q has no host", s)
	}
	return u, nil
}

// Search returns a stream of at most args.Limit records of kind matching
// args. No request is made until the stream is read.
func (c *Client) Search(ctx context.Context, kind types.Kind, args types.SearchArgs) (stream.Stream, error) {
	if args.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", args.Limit)
	}
	p := &pager{
		client:    c,
		endpoint:  fmt.Sprintf("%s/reddit/search/%s/", c.cfg.BaseURL, kind.Endpoint()),
		params:    Params(args),
		remaining: args.Limit,
		project:   args.Filter,
	}
	// Paging needs created_utc on every record even when the caller
	// filtered it out; it is stripped again before records are returned.
	if args.Filter != nil && !contains(args.Filter, pageField) {
		p.params.Set("filter", strings.Join(append(append([]string(nil), args.Filter...), pageField), ","))
	} else {
		p.project = nil
	}
	return p, nil
}

// Params converts args to query parameters. Unset options are omitted;
// list options are comma-joined.
func Params(args types.SearchArgs) url.Values {
	base := url.Values{
		"sort":      {"desc"},
		"sort_type": {pageField},
	}
	return fields.OmitUnset(base, map[string][]string{
		"q":         joined(args.Query),
		"subreddit": joined(args.Subreddit),
		"author":    joined(args.Author),
		"filter":    joined(args.Filter),
	})
}

func joined(v []string) []string {
	if v == nil {
		return nil
	}
	return []string{strings.Join(v, ",")}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type searchResponse struct {
	Data []types.Record `json:"data"`
}

// fetch requests one page.
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]types.Record, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqURL := endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("archive API request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("archive API: %w", err)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing archive API response: %w", err)
	}
	slog.Debug("fetched page", "url", reqURL, "records", len(sr.Data), "elapsed", time.Since(start))
	return sr.Data, nil
}

// pager is the lazy stream over successive result pages.
type pager struct {
	client    *Client
	endpoint  string
	params    url.Values
	remaining int
	project   []string

	page []types.Record
	last bool
	err  error
}

func (p *pager) Next(ctx context.Context) (types.Record, error) {
	if p.err != nil {
		return types.Record{}, p.err
	}
	for len(p.page) == 0 {
		if p.last || p.remaining <= 0 {
			return types.Record{}, stream.Done
		}
		if err := p.load(ctx); err != nil {
			p.err = err
			return types.Record{}, err
		}
	}
	rec := p.page[0]
	p.page = p.page[1:]
	p.remaining--
	if p.project != nil {
		rec = rec.Project(p.project)
	}
	return rec, nil
}

// load fetches the next page and decides whether another may follow.
func (p *pager) load(ctx context.Context) error {
	size := p.client.cfg.PageSize
	if p.remaining < size {
		size = p.remaining
	}
	p.params.Set("size", fmt.Sprintf("%d", size))

	page, err := p.client.fetch(ctx, p.endpoint, p.params)
	if err != nil {
		return err
	}
	if len(page) > p.remaining {
		page = page[:p.remaining]
	}
	p.page = page

	if len(page) < size {
		p.last = true
		return nil
	}
	before, ok := page[len(page)-1].Get(pageField)
	if !ok || before.String() == "" {
		p.last = true
		return nil
	}
	p.params.Set("before", before.String())
	return nil
}
