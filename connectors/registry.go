package connectors

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/rishabhrocktheparty-ai/Blackgpt/cache"
	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
	"github.com/rishabhrocktheparty-ai/Blackgpt/metrics"
)

// FromConfig builds the news, social and market-data connectors. Each gets
// its own limiter so one busy API does not throttle the others.
func FromConfig(cfg config.ConnectorsConfig, store cache.Store, log *slog.Logger, m *metrics.Metrics) []*Connector {
	sources := []Source{
		NewNewsAPI(cfg.NewsAPI),
		NewReddit(cfg.Reddit),
		NewCoinGecko(cfg.CoinGecko),
	}

	out := make([]*Connector, 0, len(sources))
	for _, src := range sources {
		var limiter *rate.Limiter
		if cfg.RatePerSecond > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
		}
		out = append(out, New(src, Options{
			DemoMode: cfg.DemoMode,
			Timeout:  cfg.Timeout,
			Limiter:  limiter,
			Cache:    store,
			CacheTTL: cfg.CacheTTL,
			Logger:   log.With("component", "connector", "source", src.Name()),
			Metrics:  m,
		}))
	}
	return out
}
