package connectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

// Reddit searches public discussions through reddit's JSON search endpoint.
// Live queries are only attempted when a client id is configured.
type Reddit struct {
	client   *resty.Client
	clientID string
	limit    int
}

func NewReddit(cfg config.RedditConfig) *Reddit {
	ua := cfg.UserAgent
	if ua == "" {
		ua = "BlackGPT:v1.0.0"
	}
	return &Reddit{
		client:   resty.New().SetBaseURL(cfg.BaseURL).SetHeader("User-Agent", ua),
		clientID: cfg.ClientID,
		limit:    10,
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				Permalink  string  `json:"permalink"`
				Subreddit  string  `json:"subreddit"`
				Score      int     `json:"score"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *Reddit) Name() string { return "Reddit" }

func (r *Reddit) Configured() bool { return r.clientID != "" }

func (r *Reddit) Search(ctx context.Context, keywords []string) ([]Item, float64, error) {
	var out redditListing
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     strings.Join(keywords, " "),
			"limit": fmt.Sprint(r.limit),
			"sort":  "relevance",
		}).
		SetResult(&out).
		Get("/search.json")
	if err != nil {
		return nil, 0, fmt.Errorf("reddit request: %w", err)
	}
	if resp.IsError() {
		return nil, 0, fmt.Errorf("reddit: %s", resp.Status())
	}

	items := make([]Item, 0, len(out.Data.Children))
	for _, c := range out.Data.Children {
		p := c.Data
		items = append(items, Item{
			Title:       p.Title,
			Content:     p.Selftext,
			URL:         "https://reddit.com" + p.Permalink,
			PublishedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
			Relevance:   clamp(float64(p.Score) / 1000),
			Extra:       map[string]string{"subreddit": p.Subreddit},
		})
	}
	if len(items) > 0 {
		return items, 0.6, nil
	}
	return items, 0.2, nil
}

func (r *Reddit) Demo(keywords []string) ([]Item, float64) {
	return []Item{{
		Title:     "Demo: Discussion about market trends",
		Content:   fmt.Sprintf("Discussion about %s on r/CryptoCurrency", demoTopic(keywords)),
		URL:       "https://reddit.com/r/CryptoCurrency/demo",
		Relevance: 0.5,
		Extra:     map[string]string{"subreddit": "cryptocurrency"},
	}}, 0.6
}
