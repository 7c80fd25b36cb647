// Package blobstore reads article bodies from a content-addressed blob
// store through its HTTP read gateway.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/verinews/relayer/internal/cache"
	"github.com/verinews/relayer/internal/model"
)

// Fetcher retrieves article text by content URI. Fetched bodies are cached
// by URI for the configured TTL; the store is content-addressed, so a URI
// never resolves to different bytes.
type Fetcher struct {
	gatewayURL string
	httpClient *http.Client
	maxBytes   int64
	articles   cache.Cache
	cacheTTL   time.Duration
}

// NewFetcher creates a new Fetcher against the given read gateway
func NewFetcher(gatewayURL string, timeout time.Duration, maxBytes int64, articles cache.Cache, cacheTTL time.Duration) *Fetcher {
	return &Fetcher{
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		articles: articles,
		cacheTTL: cacheTTL,
	}
}

// Fetch retrieves the article body for a content URI. The body is treated
// as plain text regardless of declared content type; markup is reduced to
// visible text before it reaches any prompt.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (string, error) {
	key := cache.ArticleKey(uri)
	if f.articles != nil {
		if cached, found := f.articles.Get(key); found {
			return string(cached), nil
		}
	}

	url := f.gatewayURL + "/" + strings.TrimPrefix(uri, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &model.FetchError{URI: uri, Err: err}
	}
	req.Header.Set("Accept", "text/plain,text/html;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &model.FetchError{URI: uri, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &model.FetchError{URI: uri, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", &model.FetchError{URI: uri, Err: fmt.Errorf("read body: %w", err)}
	}

	text := string(body)
	if looksLikeHTML(text) {
		text = stripHTML(text)
	}

	if f.articles != nil {
		_ = f.articles.Set(key, []byte(text), f.cacheTTL)
	}

	return text, nil
}

func looksLikeHTML(body string) bool {
	head := strings.ToLower(strings.TrimSpace(body))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// stripHTML extracts visible text nodes, skipping scripts and styles
func stripHTML(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String())
}
