// Package connectors queries public, legally licensed data sources.
//
// A Source knows how to talk to one API and turn its payload into Items.
// A Connector wraps a Source with everything the correlation pipeline relies
// on: demo mode, caching, outbound rate limiting, a per-call timeout and,
// above all, error isolation. Connector.Query never returns an error and
// never panics; a failed source yields a zero-confidence, empty Result.
package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/rishabhrocktheparty-ai/Blackgpt/cache"
	"github.com/rishabhrocktheparty-ai/Blackgpt/metrics"
)

const defaultTimeout = 10 * time.Second

// ErrNoKeywords is recorded when there is nothing to search for.
var ErrNoKeywords = errors.New("no keywords to search")

// Item is the normalized shape of one search hit.
type Item struct {
	Title       string            `json:"title"`
	Content     string            `json:"content,omitempty"`
	URL         string            `json:"url,omitempty"`
	PublishedAt time.Time         `json:"publishedAt,omitempty"`
	Relevance   float64           `json:"relevance"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Mode says how a Result was produced.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeDemo   Mode = "demo"
	ModeCached Mode = "cached"
)

// Result is what one connector contributes to a correlation run.
type Result struct {
	Source     string  `json:"source"`
	Items      []Item  `json:"results"`
	Confidence float64 `json:"confidence"`
	Mode       Mode    `json:"mode"`
	Error      string  `json:"error,omitempty"`
	DurationMs int64   `json:"durationMs"`
}

// Source is one public API.
type Source interface {
	Name() string
	// Configured reports whether credentials for live queries are present.
	Configured() bool
	Search(ctx context.Context, keywords []string) ([]Item, float64, error)
	// Demo returns deterministic mock data for keywords without any I/O.
	Demo(keywords []string) ([]Item, float64)
}

type Options struct {
	DemoMode bool
	Timeout  time.Duration
	Limiter  *rate.Limiter
	Cache    cache.Store
	CacheTTL time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type Connector struct {
	source Source
	opts   Options
}

func New(source Source, opts Options) *Connector {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Connector{source: source, opts: opts}
}

func (c *Connector) Name() string { return c.source.Name() }

// Query searches the source for keywords. It always returns a Result.
func (c *Connector) Query(ctx context.Context, keywords []string) (res Result) {
	name := c.source.Name()
	start := time.Now()
	res = Result{Source: name, Items: []Item{}, Mode: ModeLive}

	ctx, span := otel.Tracer("blackgpt/connectors").Start(ctx, "connector.query")
	span.SetAttributes(attribute.String("connector.source", name), attribute.StringSlice("connector.keywords", keywords))

	defer func() {
		if r := recover(); r != nil {
			c.opts.Logger.Error("Connector panicked", "source", name, "panic", r)
			res = Result{Source: name, Items: []Item{}, Mode: ModeLive, Error: fmt.Sprintf("panic: %v", r)}
		}
		res.DurationMs = time.Since(start).Milliseconds()
		outcome := string(res.Mode)
		if res.Error != "" {
			outcome = "error"
			span.SetStatus(codes.Error, res.Error)
		}
		span.SetAttributes(attribute.Int("connector.results", len(res.Items)), attribute.Float64("connector.confidence", res.Confidence))
		span.End()
		c.opts.Metrics.ConnectorQueried(name, outcome, time.Since(start))
	}()

	if c.opts.DemoMode || !c.source.Configured() {
		items, conf := c.source.Demo(keywords)
		res.Items, res.Confidence, res.Mode = nonNil(items), clamp(conf), ModeDemo
		c.opts.Logger.Debug("Connector in demo mode", "source", name)
		return res
	}

	if len(keywords) == 0 {
		return c.failed(res, ErrNoKeywords)
	}

	key := cacheKey(name, keywords)
	if cached, ok := c.lookup(ctx, key); ok {
		cached.Mode = ModeCached
		return cached
	}

	qctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(qctx); err != nil {
			return c.failed(res, fmt.Errorf("rate limiter: %w", err))
		}
	}

	items, conf, err := c.source.Search(qctx, keywords)
	if err != nil {
		return c.failed(res, err)
	}
	res.Items, res.Confidence = nonNil(items), clamp(conf)
	c.store(ctx, key, res)
	return res
}

func (c *Connector) failed(res Result, err error) Result {
	c.opts.Logger.Warn("Connector query failed", "source", res.Source, "error", err)
	res.Items = []Item{}
	res.Confidence = 0
	res.Error = err.Error()
	return res
}

func (c *Connector) lookup(ctx context.Context, key string) (Result, bool) {
	if c.opts.Cache == nil {
		return Result{}, false
	}
	raw, ok, err := c.opts.Cache.Get(ctx, key)
	if err != nil {
		c.opts.Logger.Warn("Connector cache read failed", "source", c.source.Name(), "error", err)
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, false
	}
	return res, true
}

func (c *Connector) store(ctx context.Context, key string, res Result) {
	if c.opts.Cache == nil || c.opts.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.opts.Cache.Set(ctx, key, raw, c.opts.CacheTTL); err != nil {
		c.opts.Logger.Warn("Connector cache write failed", "source", c.source.Name(), "error", err)
	}
}

func cacheKey(source string, keywords []string) string {
	return strings.ToLower(source) + ":" + strings.Join(keywords, ",")
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func nonNil(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}
