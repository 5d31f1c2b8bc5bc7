// Package api is a client for the zone scanner's HTTP API.
//
// The scanner serves JSON envelopes of the form
//
//	{"success": true, "zones": [...]}
//	{"success": false, "error": "..."}
//
// from these endpoints:
//
//	GET  /api/active-zones
//	GET  /api/completed-zones?days=N
//	GET  /api/zone/{id}
//	POST /api/zone/{id}/flag
//	GET  /api/keepalive
//
// Transient failures (network errors, 5xx, 429) are retried with
// exponential backoff. When a stash is configured, every successful zone
// list is kept on disk and served, with a warning, if the API cannot be
// reached later.
package api

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/matzehuels/zonemap/pkg/buildinfo"
	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/httputil"
	"github.com/matzehuels/zonemap/pkg/observability"
	"github.com/matzehuels/zonemap/pkg/zone"
)

const (
	httpTimeout     = 10 * time.Second
	defaultAttempts = 3
	defaultDelay    = time.Second
	maxBody         = 32 << 20
)

// Options configures a [Client].
type Options struct {
	// BaseURL is the scanner root, e.g. "https://scanner.example.com".
	BaseURL string

	// Token is sent as a bearer token; Cookie is sent verbatim as the
	// Cookie header (the scanner's session login).
	Token  string
	Cookie string

	HTTPClient *http.Client

	// Stash holds the last good zone lists. Nil disables the fallback.
	Stash *httputil.Cache

	Logger *log.Logger

	// Attempts and Delay tune the retry loop. Zero means 3 attempts
	// starting at one second.
	Attempts int
	Delay    time.Duration
}

// Client talks to one scanner. It is safe for concurrent use.
type Client struct {
	base     *url.URL
	http     *http.Client
	headers  map[string]string
	stash    *httputil.Cache
	logger   *log.Logger
	attempts int
	delay    time.Duration
}

// New validates opts and returns a client.
func New(opts Options) (*Client, error) {
	if err := errors.ValidateURL(opts.BaseURL); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse base URL")
	}

	c := &Client{
		base:     base,
		http:     opts.HTTPClient,
		stash:    opts.Stash,
		logger:   opts.Logger,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": buildinfo.UserAgent(),
		},
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: httpTimeout}
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.attempts <= 0 {
		c.attempts = defaultAttempts
	}
	if c.delay <= 0 {
		c.delay = defaultDelay
	}
	if opts.Token != "" {
		c.headers["Authorization"] = "Bearer " + opts.Token
	}
	if opts.Cookie != "" {
		c.headers["Cookie"] = opts.Cookie
	}
	if c.stash != nil {
		c.stash = c.stash.Namespace(base.Host + ":")
	}
	return c, nil
}

// Name implements source.Source.
func (c *Client) Name() string { return "api:" + c.base.Host }

// Zones returns the active zones, highest score first.
func (c *Client) Zones(ctx context.Context) ([]zone.Zone, error) {
	return c.list(ctx, "/api/active-zones", nil)
}

// CompletedZones returns zones completed or broken within the last days
// days.
func (c *Client) CompletedZones(ctx context.Context, days int) ([]zone.Zone, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	return c.list(ctx, "/api/completed-zones", q)
}

func (c *Client) list(ctx context.Context, path string, q url.Values) ([]zone.Zone, error) {
	key := path + "?" + q.Encode()

	var data []byte
	err := c.retry(ctx, func() error {
		var err error
		data, err = c.do(ctx, http.MethodGet, path, q)
		return err
	})
	if err != nil {
		return c.fallback(key, err)
	}

	zones, rep, err := zone.Decode(data)
	if err != nil {
		return nil, err
	}
	rep.Log(c.logger, c.Name())
	if c.stash != nil {
		if serr := c.stash.Set(key, zones); serr != nil {
			c.logger.Debug("stash write failed", "path", path, "err", serr)
		}
	}
	return zones, nil
}

// fallback serves the stashed zone list for key when the API failed with a
// network-level error.
func (c *Client) fallback(key string, cause error) ([]zone.Zone, error) {
	if c.stash == nil || !(errors.Is(cause, errors.ErrCodeNetwork) || errors.Is(cause, errors.ErrCodeTimeout)) {
		return nil, cause
	}
	var zones []zone.Zone
	ok, age, err := c.stash.GetStale(key, &zones)
	if err != nil || !ok {
		return nil, cause
	}
	c.logger.Warn("zone API unreachable, serving stashed zones", "source", c.Name(), "age", age.Round(time.Second), "err", cause)
	return zones, nil
}

// Detail returns a zone with its score history.
func (c *Client) Detail(ctx context.Context, id int64) (zone.Detail, error) {
	path := fmt.Sprintf("/api/zone/%d", id)
	var data []byte
	err := c.retry(ctx, func() error {
		var err error
		data, err = c.do(ctx, http.MethodGet, path, nil)
		return err
	})
	if err != nil {
		return zone.Detail{}, err
	}
	d, rep, err := zone.DecodeDetail(data)
	if err != nil {
		return zone.Detail{}, err
	}
	rep.Log(c.logger, c.Name())
	return d, nil
}

type flagResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	IsFlagged bool   `json:"is_flagged"`
}

// ToggleFlag flips the flag of a zone and returns the new state. The
// request is not retried: a toggle that reached the server but lost its
// response would otherwise be applied twice.
func (c *Client) ToggleFlag(ctx context.Context, id int64) (bool, error) {
	data, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/zone/%d/flag", id), nil)
	if err != nil {
		return false, err
	}
	var resp flagResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode flag response")
	}
	if !resp.Success {
		return false, errors.New(errors.ErrCodeInvalidInput, "toggle flag on zone %d: %s", id, resp.Error)
	}
	return resp.IsFlagged, nil
}

// Keepalive pings the scanner so a sleeping host wakes up.
func (c *Client) Keepalive(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/keepalive", nil)
	return err
}

func (c *Client) retry(ctx context.Context, fn func() error) error {
	return httputil.Retry(ctx, c.attempts, c.delay, fn)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values) ([]byte, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewReader([]byte("{}"))
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, u.Host, u.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(errors.Wrap(transportCode(err), err, "%s %s", method, u.Path))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", u.Path))
	}
	if err := checkStatus(resp.StatusCode, u.Path, data); err != nil {
		return nil, err
	}
	return data, nil
}

func transportCode(err error) errors.Code {
	var te interface{ Timeout() bool }
	if stderrors.As(err, &te) && te.Timeout() {
		return errors.ErrCodeTimeout
	}
	return errors.ErrCodeNetwork
}

func checkStatus(code int, path string, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s: %s", path, serverMessage(body, "not found"))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.New(errors.ErrCodeUnauthorized, "%s: status %d", path, code)
	case httputil.RetryableStatus(code):
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "%s: status %d: %s", path, code, serverMessage(body, http.StatusText(code))))
	default:
		return errors.New(errors.ErrCodeInvalidInput, "%s: status %d: %s", path, code, serverMessage(body, http.StatusText(code)))
	}
}

// serverMessage extracts the "error" field of a failure envelope.
func serverMessage(body []byte, fallback string) string {
	var env struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		return env.Error
	}
	return fallback
}
