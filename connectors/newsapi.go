package connectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

// NewsAPI searches licensed news coverage via newsapi.org.
type NewsAPI struct {
	client   *resty.Client
	apiKey   string
	pageSize int
}

func NewNewsAPI(cfg config.NewsAPIConfig) *NewsAPI {
	return &NewsAPI{
		client:   resty.New().SetBaseURL(cfg.BaseURL).SetHeader("Accept", "application/json"),
		apiKey:   cfg.APIKey,
		pageSize: 10,
	}
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (n *NewsAPI) Name() string { return "NewsAPI" }

func (n *NewsAPI) Configured() bool { return n.apiKey != "" }

func (n *NewsAPI) Search(ctx context.Context, keywords []string) ([]Item, float64, error) {
	var out newsAPIResponse
	var apiErr newsAPIError
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", n.apiKey).
		SetQueryParams(map[string]string{
			"q":        strings.Join(keywords, " OR "),
			"language": "en",
			"sortBy":   "relevancy",
			"pageSize": fmt.Sprint(n.pageSize),
		}).
		SetResult(&out).
		SetError(&apiErr).
		Get("/everything")
	if err != nil {
		return nil, 0, fmt.Errorf("newsapi request: %w", err)
	}
	if resp.IsError() {
		return nil, 0, fmt.Errorf("newsapi: %s: %s", resp.Status(), apiErr.Message)
	}

	items := make([]Item, 0, len(out.Articles))
	for _, a := range out.Articles {
		items = append(items, Item{
			Title:       a.Title,
			Content:     a.Description,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Relevance:   0.8,
			Extra:       map[string]string{"outlet": a.Source.Name},
		})
	}
	if out.TotalResults > 0 {
		return items, 0.8, nil
	}
	return items, 0.2, nil
}

func (n *NewsAPI) Demo(keywords []string) ([]Item, float64) {
	return []Item{{
		Title:     "Demo: Market volatility continues",
		Content:   fmt.Sprintf("Coverage mentioning %s shows significant market movement", demoTopic(keywords)),
		URL:       "https://example.com/news/demo",
		Relevance: 0.8,
		Extra:     map[string]string{"outlet": "Demo News"},
	}}, 0.7
}

func demoTopic(keywords []string) string {
	if len(keywords) == 0 {
		return "the market"
	}
	return strings.Join(keywords, ", ")
}
