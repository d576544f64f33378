package massiveapi

import "context"

// NewsInsight is a single ticker's sentiment call within a news article.
type NewsInsight struct {
	Ticker             string `json:"ticker"`
	Sentiment          string `json:"sentiment"`
	SentimentReasoning string `json:"sentiment_reasoning"`
}

// NewsPublisher identifies the source of a news article.
type NewsPublisher struct {
	Name        string `json:"name"`
	HomepageURL string `json:"homepage_url"`
	LogoURL     string `json:"logo_url"`
	FaviconURL  string `json:"favicon_url"`
}

// NewsArticle is a single news article's reference metadata.
type NewsArticle struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ArticleURL   string        `json:"article_url"`
	AmpURL       string        `json:"amp_url"`
	Author       string        `json:"author"`
	PublishedUTC string        `json:"published_utc"`
	ImageURL     string        `json:"image_url"`
	Keywords     []string      `json:"keywords"`
	Tickers      []string      `json:"tickers"`
	Insights     []NewsInsight `json:"insights"`
	Publisher    NewsPublisher `json:"publisher"`
}

// NewsResponse is the response envelope for the reference-news endpoint.
type NewsResponse struct {
	Status    string        `json:"status"`
	Count     int           `json:"count"`
	RequestID string        `json:"request_id"`
	NextURL   string        `json:"next_url"`
	Results   []NewsArticle `json:"results"`
}

// NewsParams holds the query parameters for the reference-news endpoint.
type NewsParams struct {
	Ticker string
	Limit  string
	Sort   string // "published_utc"
	Order  string
}

// GetNews lists recent news for a ticker (spec §6: GET
// /v2/reference/news?ticker&limit&sort=published_utc).
func (c *Client) GetNews(ctx context.Context, p NewsParams) (*NewsResponse, error) {
	params := map[string]string{
		"ticker": p.Ticker,
		"limit":  p.Limit,
		"sort":   p.Sort,
		"order":  p.Order,
	}

	var result NewsResponse
	if err := c.get(ctx, "/v2/reference/news", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
