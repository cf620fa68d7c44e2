package connectors

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

// maxCoinGeckoLookups bounds how many keywords are tried; the search
// endpoint matches single tokens, not phrases.
const maxCoinGeckoLookups = 3

// CoinGecko looks up coins on the free public API. No key is needed.
type CoinGecko struct {
	client *resty.Client
}

func NewCoinGecko(cfg config.CoinGecko) *CoinGecko {
	return &CoinGecko{
		client: resty.New().SetBaseURL(cfg.BaseURL).SetHeader("Accept", "application/json"),
	}
}

type coinGeckoSearch struct {
	Coins []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Symbol        string `json:"symbol"`
		MarketCapRank *int   `json:"market_cap_rank"`
	} `json:"coins"`
}

func (g *CoinGecko) Name() string { return "CoinGecko" }

func (g *CoinGecko) Configured() bool { return true }

func (g *CoinGecko) Search(ctx context.Context, keywords []string) ([]Item, float64, error) {
	for i, kw := range keywords {
		if i == maxCoinGeckoLookups {
			break
		}
		var out coinGeckoSearch
		resp, err := g.client.R().
			SetContext(ctx).
			SetQueryParam("query", kw).
			SetResult(&out).
			Get("/search")
		if err != nil {
			return nil, 0, fmt.Errorf("coingecko request: %w", err)
		}
		if resp.IsError() {
			return nil, 0, fmt.Errorf("coingecko: %s", resp.Status())
		}
		if len(out.Coins) == 0 {
			continue
		}

		coins := out.Coins
		if len(coins) > 5 {
			coins = coins[:5]
		}
		items := make([]Item, 0, len(coins))
		for _, c := range coins {
			rank := "N/A"
			if c.MarketCapRank != nil {
				rank = fmt.Sprint(*c.MarketCapRank)
			}
			items = append(items, Item{
				Title:     fmt.Sprintf("%s (%s)", c.Name, c.Symbol),
				Content:   fmt.Sprintf("%s (%s) - Market Cap Rank: %s", c.Name, c.Symbol, rank),
				URL:       "https://www.coingecko.com/en/coins/" + c.ID,
				Relevance: 0.7,
				Extra:     map[string]string{"keyword": kw, "rank": rank},
			})
		}
		return items, 0.7, nil
	}
	return []Item{}, 0.2, nil
}

func (g *CoinGecko) Demo(keywords []string) ([]Item, float64) {
	return []Item{{
		Title:     "Bitcoin (BTC)",
		Content:   fmt.Sprintf("Market data for %s: price 45000 USD, 24h change 2.5%%, volume 28000000000", demoTopic(keywords)),
		URL:       "https://www.coingecko.com/en/coins/bitcoin",
		Relevance: 0.7,
		Extra:     map[string]string{"rank": "1"},
	}}, 0.8
}
