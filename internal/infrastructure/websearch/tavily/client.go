package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://api.tavily.com"

// Client calls the Tavily REST search API. Calls are paced with a shared
// limiter because the free tier throttles aggressively.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithExecutor routes search calls through the shared retry/breaker executor.
func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		maxResults: 2,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.Passage, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "tavily search", fmt.Errorf("api key is not set"))
	}

	var passages []domain.Passage
	err := c.executeSearch(ctx, func(callCtx context.Context) error {
		results, searchErr := c.searchOnce(callCtx, query)
		if searchErr != nil {
			return searchErr
		}
		passages = results
		return nil
	})
	if err != nil {
		return nil, err
	}
	return passages, nil
}

func (c *Client) executeSearch(ctx context.Context, call func(context.Context) error) error {
	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, "tavily.search", call, classifyTavilyError)
}

func (c *Client) searchOnce(ctx context.Context, query string) ([]domain.Passage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tavily rate wait: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"api_key":     c.apiKey,
		"query":       query,
		"max_results": c.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnavailable, "tavily search", err)
	}
	defer resp.Body.Close()

	// Any HTTP failure, rejected credentials included, degrades to
	// unavailable. Only a key that was never set is a configuration error;
	// that is caught before the request goes out.
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, domain.WrapError(domain.ErrUnavailable, "tavily search", &httpStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		})
	}

	var searchResp struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	passages := make([]domain.Passage, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		content := stripHTML(r.Content)
		if content == "" {
			continue
		}
		passages = append(passages, domain.Passage{
			Title:   strings.TrimSpace(r.Title),
			URL:     r.URL,
			Content: content,
			Score:   r.Score,
		})
	}
	return passages, nil
}

// stripHTML flattens any markup Tavily leaves in result snippets into plain
// text so it does not leak into generation prompts.
func stripHTML(input string) string {
	if !strings.ContainsAny(input, "<>") {
		return strings.TrimSpace(input)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var builder strings.Builder
	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}
		if tokenType == html.TextToken {
			builder.WriteString(tokenizer.Token().Data)
			builder.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}
