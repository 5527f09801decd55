package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client fetches market news from a Finnhub-compatible API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a news API client.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		log: log.With().Str("client", "news").Logger(),
	}
}

// FetchNews returns recent articles. With symbols it fetches
// company news per symbol and interleaves the results round-robin so
// no single symbol dominates; without symbols it fetches general
// market news. Truncation to the per-user article cap is the
// caller's concern.
func (c *Client) FetchNews(ctx context.Context, symbols []string) ([]Article, error) {
	if len(symbols) == 0 {
		return c.fetchGeneral(ctx)
	}

	perSymbol := make([][]Article, 0, len(symbols))
	for _, symbol := range symbols {
		articles, err := c.fetchCompany(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}
		perSymbol = append(perSymbol, articles)
	}

	return interleave(perSymbol), nil
}

func (c *Client) fetchGeneral(ctx context.Context) ([]Article, error) {
	params := url.Values{}
	params.Set("category", "general")

	return c.get(ctx, "/news", params, "")
}

func (c *Client) fetchCompany(ctx context.Context, symbol string) ([]Article, error) {
	now := time.Now().UTC()
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", now.AddDate(0, 0, -5).Format("2006-01-02"))
	params.Set("to", now.Format("2006-01-02"))

	return c.get(ctx, "/company-news", params, symbol)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, symbol string) ([]Article, error) {
	if c.apiKey != "" {
		params.Set("token", c.apiKey)
	}

	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("news API returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var articles []Article
	if err := json.NewDecoder(resp.Body).Decode(&articles); err != nil {
		return nil, fmt.Errorf("failed to decode news response: %w", err)
	}

	// Tag company news with the symbol it was fetched for
	if symbol != "" {
		for i := range articles {
			if articles[i].Related == "" {
				articles[i].Related = symbol
			}
		}
	}

	return articles, nil
}

// interleave merges per-symbol article lists round-robin.
func interleave(lists [][]Article) []Article {
	var out []Article
	for i := 0; ; i++ {
		took := false
		for _, list := range lists {
			if i < len(list) {
				out = append(out, list[i])
				took = true
			}
		}
		if !took {
			return out
		}
	}
}
