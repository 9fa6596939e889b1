// Package transport fetches catalog URLs either directly or through a list
// of CORS relays tried in priority order, finishing with one direct attempt.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookshelf/src/internal/httpx"
	"bookshelf/src/internal/ratelimit"
)

const (
	// DefaultRelayTimeout bounds a single relay attempt.
	DefaultRelayTimeout = 8 * time.Second
	// DefaultDirectTimeout bounds the direct attempt.
	DefaultDirectTimeout = 10 * time.Second
	// DefaultMaxBody caps how much of a response body is read.
	DefaultMaxBody = 8 << 20

	defaultRPS   = 2.0
	defaultBurst = 4

	// RouteDirect names the unproxied attempt in traces.
	RouteDirect = "direct"
	// RouteProxy names the controlled reverse proxy in traces.
	RouteProxy = "proxy"
)

// Relay is a CORS relay. Template may contain {url} (raw target) or
// {encoded} (query-escaped target); without a placeholder the target is
// appended.
type Relay struct {
	Name     string        `yaml:"name" json:"name"`
	Template string        `yaml:"url" json:"url" validate:"required"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// Expand builds the relay URL for target.
func (r Relay) Expand(target string) string {
	return expand(r.Template, target)
}

func expand(tmpl, target string) string {
	switch {
	case strings.Contains(tmpl, "{url}"):
		return strings.ReplaceAll(tmpl, "{url}", target)
	case strings.Contains(tmpl, "{encoded}"):
		return strings.ReplaceAll(tmpl, "{encoded}", url.QueryEscape(target))
	default:
		return tmpl + target
	}
}

// DefaultRelays is the public relay list in priority order.
func DefaultRelays() []Relay {
	return []Relay{
		{Name: "cors-anywhere", Template: "https://cors-anywhere.herokuapp.com/{url}", Timeout: DefaultRelayTimeout},
		{Name: "thingproxy", Template: "https://thingproxy.freeboard.io/fetch/{url}", Timeout: DefaultRelayTimeout},
		{Name: "corsproxy", Template: "https://corsproxy.io/?{encoded}", Timeout: DefaultRelayTimeout},
		{Name: "allorigins", Template: "https://api.allorigins.win/raw?url={encoded}", Timeout: DefaultRelayTimeout},
		{Name: "bridged", Template: "https://cors.bridged.cc/?{encoded}", Timeout: DefaultRelayTimeout},
	}
}

// Options configures a Router.
type Options struct {
	Relays         []Relay
	UseDirectProxy bool
	ProxyBase      string
	DirectTimeout  time.Duration
	RatePerSecond  float64
	Burst          int
	MaxBody        int64
}

// Response is a successful fetch.
type Response struct {
	Body        []byte
	ContentType string
	Route       string
	URL         string
}

// CheckFunc validates a body; a non-nil error fails the attempt and moves
// on to the next route.
type CheckFunc func(body []byte) error

// Router executes GETs against catalog endpoints.
type Router struct {
	client        httpx.Doer
	relays        []Relay
	direct        bool
	proxyBase     string
	directTimeout time.Duration
	maxBody       int64
	limiter       *ratelimit.KeyedLimiter
	logger        *slog.Logger
}

// New creates a Router. A nil client uses an http.Client without a global
// timeout since every attempt carries its own deadline; a nil logger
// discards.
func New(opts Options, client httpx.Doer, logger *slog.Logger) *Router {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rps, burst := opts.RatePerSecond, opts.Burst
	if rps == 0 && burst == 0 {
		rps, burst = defaultRPS, defaultBurst
	}
	directTimeout := opts.DirectTimeout
	if directTimeout <= 0 {
		directTimeout = DefaultDirectTimeout
	}
	maxBody := opts.MaxBody
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	relays := make([]Relay, 0, len(opts.Relays))
	for i, r := range opts.Relays {
		if strings.TrimSpace(r.Template) == "" {
			continue
		}
		if r.Timeout <= 0 {
			r.Timeout = DefaultRelayTimeout
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("relay-%d", i+1)
		}
		relays = append(relays, r)
	}
	return &Router{
		client:        client,
		relays:        relays,
		direct:        opts.UseDirectProxy,
		proxyBase:     strings.TrimSpace(opts.ProxyBase),
		directTimeout: directTimeout,
		maxBody:       maxBody,
		limiter:       ratelimit.New(rps, burst),
		logger:        logger,
	}
}

// Routes lists route names in the order Get tries them.
func (r *Router) Routes() []string {
	var out []string
	for _, rt := range r.plan("") {
		out = append(out, rt.name)
	}
	return out
}

// Get fetches target through the configured routes.
func (r *Router) Get(ctx context.Context, target string) (*Response, error) {
	return r.GetChecked(ctx, target, nil)
}

// GetChecked is Get with a body check; a body rejected by check counts as a
// failed attempt.
func (r *Router) GetChecked(ctx context.Context, target string, check CheckFunc) (*Response, error) {
	routes := r.plan(target)
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	te := &Error{Target: target}
	for _, rt := range routes {
		if err := ctx.Err(); err != nil {
			te.Attempts = append(te.Attempts, Attempt{Route: rt.name, URL: rt.url, Err: err})
			break
		}
		start := time.Now()
		resp, err := r.attempt(ctx, rt, check)
		r.logger.Debug("transport attempt",
			"route", rt.name,
			"url", rt.url,
			"duration", time.Since(start),
			"error", err,
		)
		if err == nil {
			return resp, nil
		}
		te.Attempts = append(te.Attempts, Attempt{Route: rt.name, URL: rt.url, Err: err})
	}
	r.logger.Warn("all transport routes failed",
		"target", target,
		"attempts", len(te.Attempts),
	)
	return nil, te
}

type route struct {
	name    string
	url     string
	timeout time.Duration
}

func (r *Router) plan(target string) []route {
	if r.direct {
		if r.proxyBase != "" {
			return []route{{name: RouteProxy, url: expand(r.proxyBase, target), timeout: r.directTimeout}}
		}
		return []route{{name: RouteDirect, url: target, timeout: r.directTimeout}}
	}
	routes := make([]route, 0, len(r.relays)+1)
	for _, rl := range r.relays {
		routes = append(routes, route{name: rl.Name, url: rl.Expand(target), timeout: rl.Timeout})
	}
	return append(routes, route{name: RouteDirect, url: target, timeout: r.directTimeout})
}

func (r *Router) attempt(ctx context.Context, rt route, check CheckFunc) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rt.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// The per-host wait is not charged to the attempt timeout.
	if err := r.limiter.Wait(ctx, req.URL.Host); err != nil {
		if ctx.Err() == nil {
			// Wait refuses up front when the caller's deadline is too close.
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rt.timeout)
	defer cancel()
	req = req.WithContext(ctx)
	httpx.PrepareXML(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(snippet)}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrEmptyBody
	}
	if check != nil {
		if err := check(body); err != nil {
			return nil, fmt.Errorf("check response: %w", err)
		}
	}
	return &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Route:       rt.name,
		URL:         rt.url,
	}, nil
}
