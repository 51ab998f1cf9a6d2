package news

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/k3a/html2text"
	"github.com/patrickmn/go-cache"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"vidlore/internal/logging"
	"vidlore/internal/ranking"
	"vidlore/internal/services"
)

const (
	defaultResults     = 5
	defaultEndpoint    = "https://html.duckduckgo.com/html/"
	defaultQuerySuffix = "news"
	defaultTimeout     = 15 * time.Second
	maxBodyBytes       = 2 << 20
)

// Config describes the news search endpoint.
type Config struct {
	Results           int
	Endpoint          string
	QuerySuffix       string
	UserAgent         string
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// Provider implements ranking.Provider over DuckDuckGo's HTML results page.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	logger     *slog.Logger
}

// Option customizes the provider.
type Option func(*Provider)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New constructs a provider.
func New(cfg Config, opts ...Option) *Provider {
	if cfg.Results <= 0 {
		cfg.Results = defaultResults
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if strings.TrimSpace(cfg.QuerySuffix) == "" {
		cfg.QuerySuffix = defaultQuerySuffix
	}
	p := &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.NewNop(),
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.CacheTTL > 0 {
		p.cache = cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "news")
	return p
}

// Name implements ranking.Provider.
func (p *Provider) Name() string {
	return ranking.SourceNews
}

// Search returns up to Results news hits for query. News is not partitioned
// by language, so language is ignored.
func (p *Provider) Search(ctx context.Context, query, _ string) ([]ranking.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	full := query + " " + strings.TrimSpace(p.cfg.QuerySuffix)
	if p.cache != nil {
		if cached, ok := p.cache.Get(full); ok {
			p.logger.Debug("news cache hit", logging.String("query", full))
			return slices.Clone(cached.([]ranking.Hit)), nil
		}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, services.Wrap(services.ErrProvider, "news", "rate limit", "", err)
		}
	}

	body, err := p.fetch(ctx, full)
	if err != nil {
		return nil, err
	}
	hits, err := ParseResults(body, p.cfg.Results)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "news", "parse results", "", err)
	}
	if p.cache != nil {
		p.cache.Set(full, slices.Clone(hits), cache.DefaultExpiration)
	}
	p.logger.Debug("news search complete",
		logging.String("query", full),
		logging.Int("candidate_count", len(hits)),
	)
	return hits, nil
}

func (p *Provider) fetch(ctx context.Context, query string) ([]byte, error) {
	endpoint, err := url.Parse(p.cfg.Endpoint)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "news", "parse endpoint", "", err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "news", "new request", "", err)
	}
	if ua := strings.TrimSpace(p.cfg.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "news", "request", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrProvider, "news", "request",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "news", "read body", "", err)
	}
	return body, nil
}

// ParseResults extracts up to limit hits from a DuckDuckGo HTML results page.
// Result links are "a.result__a" anchors; the following "result__snippet"
// element supplies the snippet. Redirect links are unwrapped and ad links
// pointing back at the search engine are dropped.
func ParseResults(page []byte, limit int) ([]ranking.Hit, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	var hits []ranking.Hit
	seen := map[string]struct{}{}
	var current *ranking.Hit

	var traverse func(*html.Node) bool
	traverse = func(node *html.Node) bool {
		if node.Type == html.ElementNode {
			switch {
			case node.Data == "a" && hasClass(node, "result__a"):
				if current != nil {
					hits = append(hits, *current)
					current = nil
					if limit > 0 && len(hits) >= limit {
						return false
					}
				}
				target := resolveLink(attr(node, "href"))
				title := nodeText(node)
				if target == "" || title == "" {
					return true
				}
				if _, dup := seen[target]; dup {
					return true
				}
				seen[target] = struct{}{}
				current = &ranking.Hit{
					Title:      title,
					URL:        target,
					Provenance: ranking.Provenance{Source: ranking.SourceNews},
				}
				return true
			case hasClass(node, "result__snippet"):
				if current != nil && current.Snippet == "" {
					current.Snippet = nodeText(node)
				}
				return true
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if !traverse(child) {
				return false
			}
		}
		return true
	}
	traverse(doc)
	if current != nil && (limit <= 0 || len(hits) < limit) {
		hits = append(hits, *current)
	}
	return hits, nil
}

// resolveLink unwraps "//duckduckgo.com/l/?uddg=<target>" redirect links and
// drops anything that is not an absolute http(s) URL off the search engine.
func resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if isSearchHost(parsed.Host) {
		target := parsed.Query().Get("uddg")
		if target == "" {
			return ""
		}
		parsed, err = url.Parse(target)
		if err != nil {
			return ""
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Host == "" || isSearchHost(parsed.Host) {
		return ""
	}
	return parsed.String()
}

func isSearchHost(host string) bool {
	host = strings.ToLower(host)
	return host == "duckduckgo.com" || strings.HasSuffix(host, ".duckduckgo.com")
}

func hasClass(node *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(node, "class")), class)
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(node *html.Node) string {
	var b bytes.Buffer
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&b, child); err != nil {
			return ""
		}
	}
	return strings.Join(strings.Fields(html2text.HTML2Text(b.String())), " ")
}
