package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/morikuni/failure/v2"

	"aistack/internal/errcode"
	"aistack/internal/logging"
)

const (
	DefaultBaseURL  = "https://registry.modelcontextprotocol.io/v0"
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 24 * time.Hour
	DefaultLimit    = 100
)

// Options configures a Client. Zero values select the defaults above; an
// empty CacheDir keeps the cache in memory only.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	CacheDir   string
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *logging.AppLogger
	Now        func() time.Time
}

// Client talks to the registry API and caches its answers on disk.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cache   *diskCache
	logger  *logging.AppLogger
}

// NewClient validates opts and returns a ready client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, failure.New(errcode.InvalidFormat,
			failure.Message(fmt.Sprintf("invalid registry URL %q", opts.BaseURL)))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetDefault()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Logger.HTTPTransport(nil),
		}
	}

	return &Client{
		baseURL: base,
		http:    opts.HTTPClient,
		cache:   newDiskCache(opts.CacheDir, opts.CacheTTL, opts.Now, opts.Logger),
		logger:  opts.Logger,
	}, nil
}

// ListServers returns up to q.Limit servers matching q.Search, following the
// registry's pagination cursor. When the registry is unreachable a cached
// answer is returned as a degraded result; with no cache the error has the
// Unavailable code.
func (c *Client) ListServers(ctx context.Context, q Query) (Result[[]Server], error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	key := fmt.Sprintf("list_%s_%d", q.Search, q.Limit)

	var cached []Server
	found, fresh := c.cache.get(key, &cached)
	if fresh {
		c.logger.Debug("Using cached registry listing", "key", key)
		return Ok(cached), nil
	}

	servers, err := c.fetchAll(ctx, q)
	if err != nil {
		if found {
			c.logger.Warn("Registry unreachable, using expired cache", "error", err)
			return Degraded(cached, err), nil
		}
		return Result[[]Server]{}, err
	}

	c.cache.put(key, servers)
	return Ok(servers), nil
}

func (c *Client) fetchAll(ctx context.Context, q Query) ([]Server, error) {
	servers := []Server{}
	cursor := ""
	for len(servers) < q.Limit {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(q.Limit-len(servers)))
		if q.Search != "" {
			params.Set("search", q.Search)
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page listResponse
		if err := c.getJSON(ctx, "/servers", params, &page); err != nil {
			return nil, err
		}
		servers = append(servers, page.Servers...)

		if page.Metadata.NextCursor == "" || page.Metadata.NextCursor == cursor || len(page.Servers) == 0 {
			break
		}
		cursor = page.Metadata.NextCursor
	}
	if len(servers) > q.Limit {
		servers = servers[:q.Limit]
	}
	return servers, nil
}

// GetServer returns the metadata for id. An unknown id is a NotFound error
// and is never answered from the cache.
func (c *Client) GetServer(ctx context.Context, id string) (Result[*Server], error) {
	key := "server_" + id

	var cached Server
	found, fresh := c.cache.get(key, &cached)
	if fresh {
		return Ok(&cached), nil
	}

	var server Server
	err := c.getJSON(ctx, "/servers/"+url.PathEscape(id), nil, &server)
	switch {
	case err == nil:
		c.cache.put(key, server)
		return Ok(&server), nil
	case failure.Is(err, errcode.NotFound):
		return Result[*Server]{}, err
	case found:
		c.logger.Warn("Registry unreachable, using expired cache", "server", id, "error", err)
		return Degraded(&cached, err), nil
	default:
		return Result[*Server]{}, err
	}
}

// ClearCache drops every cached response, on disk and in memory.
func (c *Client) ClearCache() error {
	if err := c.cache.clear(); err != nil {
		return failure.Wrap(err, failure.Message("failed to clear registry cache"))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := c.baseURL.String() + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return failure.Wrap(err, failure.Context{"url": u})
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return failure.New(errcode.Unavailable,
			failure.Message("registry unreachable: "+err.Error()),
			failure.Context{"url": u})
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return failure.New(errcode.NotFound,
			failure.Message("server not found in registry"),
			failure.Context{"url": u})
	case resp.StatusCode != http.StatusOK:
		return failure.New(errcode.Unavailable,
			failure.Message(fmt.Sprintf("registry returned HTTP %d", resp.StatusCode)),
			failure.Context{"url": u})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return failure.New(errcode.Unavailable,
			failure.Message("registry returned an invalid response: "+err.Error()),
			failure.Context{"url": u})
	}
	return nil
}
