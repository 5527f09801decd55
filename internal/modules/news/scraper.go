package news

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// Scraper extracts general market headlines from an HTML news page.
// It serves as the news source when no API key is configured; symbol
// filters are ignored since scraped pages are not symbol-addressable.
type Scraper struct {
	pageURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewScraper creates a headline scraper for the given page.
func NewScraper(pageURL string, log zerolog.Logger) *Scraper {
	return &Scraper{
		pageURL: pageURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		log: log.With().Str("client", "news_scraper").Logger(),
	}
}

// FetchNews scrapes headlines from the configured page. The symbols
// argument is accepted for interface compatibility and ignored.
func (s *Scraper) FetchNews(ctx context.Context, symbols []string) ([]Article, error) {
	if s.pageURL == "" {
		return nil, fmt.Errorf("no scrape URL configured")
	}

	doc, err := s.fetchDocument(ctx)
	if err != nil {
		return nil, err
	}

	var articles []Article
	seen := map[string]struct{}{}

	doc.Find("article, .news-item, li.story").Each(func(i int, sel *goquery.Selection) {
		link := sel.Find("a").First()
		headline := strings.TrimSpace(link.Text())
		if headline == "" {
			headline = strings.TrimSpace(sel.Find("h2, h3").First().Text())
		}
		if headline == "" {
			return
		}

		href, _ := link.Attr("href")
		if !strings.HasPrefix(href, "http") && href != "" {
			href = strings.TrimSuffix(s.pageURL, "/") + "/" + strings.TrimPrefix(href, "/")
		}

		if _, ok := seen[headline]; ok {
			return
		}
		seen[headline] = struct{}{}

		source := strings.TrimSpace(sel.Find(".source, .byline").First().Text())
		summary := strings.TrimSpace(sel.Find("p").First().Text())

		articles = append(articles, Article{
			ID:       int64(len(articles) + 1),
			Headline: headline,
			Summary:  summary,
			Source:   source,
			URL:      href,
			Datetime: time.Now().Unix(),
		})
	})

	return articles, nil
}

func (s *Scraper) fetchDocument(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Signalist/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	return doc, nil
}
