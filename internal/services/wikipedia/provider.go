package wikipedia

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/k3a/html2text"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	langpkg "vidlore/internal/language"
	"vidlore/internal/logging"
	"vidlore/internal/ranking"
	"vidlore/internal/services"
)

const (
	defaultResults  = 3
	defaultBaseURL  = "https://%s.wikipedia.org"
	defaultLanguage = "en"
	defaultTimeout  = 15 * time.Second
)

// Config describes how the provider reaches the encyclopedia.
type Config struct {
	Results int
	// BaseURL is the site root. A "%s" verb is replaced with the language code.
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// Provider implements ranking.Provider over the MediaWiki search API.
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
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	p := &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.NewNop(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.CacheTTL > 0 {
		p.cache = cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "wikipedia")
	return p
}

// Name implements ranking.Provider.
func (p *Provider) Name() string {
	return ranking.SourceWikipedia
}

// Search returns up to Results article hits for query in the language edition
// named by language. An empty or unrecognized language searches English.
func (p *Provider) Search(ctx context.Context, query, language string) ([]ranking.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	lang := langpkg.ToISO2(language)
	if lang == "" || len(lang) > 3 {
		lang = defaultLanguage
	}
	key := lang + "|" + query
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			p.logger.Debug("wikipedia cache hit", logging.String("query", query), logging.String("language", lang))
			return cloneHits(cached.([]ranking.Hit)), nil
		}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, services.Wrap(services.ErrProvider, "wikipedia", "rate limit", "", err)
		}
	}

	site := p.siteURL(lang)
	obj, err := p.query(ctx, site, query)
	if err != nil {
		return nil, err
	}
	hits, err := parseSearch(obj, site, lang)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "wikipedia", "parse response", "", err)
	}
	if len(hits) > p.cfg.Results {
		hits = hits[:p.cfg.Results]
	}
	if p.cache != nil {
		p.cache.Set(key, cloneHits(hits), cache.DefaultExpiration)
	}
	p.logger.Debug("wikipedia search complete",
		logging.String("query", query),
		logging.String("language", lang),
		logging.Int("candidate_count", len(hits)),
	)
	return hits, nil
}

func (p *Provider) siteURL(lang string) string {
	if strings.Contains(p.cfg.BaseURL, "%s") {
		return fmt.Sprintf(p.cfg.BaseURL, lang)
	}
	return p.cfg.BaseURL
}

func (p *Provider) query(ctx context.Context, site, query string) (*jason.Object, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(p.cfg.Results))
	params.Set("format", "json")
	params.Set("utf8", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "wikipedia", "new request", "", err)
	}
	if ua := strings.TrimSpace(p.cfg.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "wikipedia", "request", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrProvider, "wikipedia", "request",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "wikipedia", "decode response", "", err)
	}
	if apiErr, errCheck := obj.GetObject("error"); errCheck == nil {
		code, _ := apiErr.GetString("code")
		info, _ := apiErr.GetString("info")
		return nil, services.Wrap(services.ErrProvider, "wikipedia", "api error", code+": "+info, nil)
	}
	return obj, nil
}

func parseSearch(obj *jason.Object, site, lang string) ([]ranking.Hit, error) {
	results, err := obj.GetObjectArray("query", "search")
	if err != nil {
		return nil, fmt.Errorf("missing query.search: %w", err)
	}
	hits := make([]ranking.Hit, 0, len(results))
	for _, result := range results {
		title, err := result.GetString("title")
		if err != nil || strings.TrimSpace(title) == "" {
			continue
		}
		snippet, _ := result.GetString("snippet")
		hits = append(hits, ranking.Hit{
			Title:      title,
			URL:        ArticleURL(site, title),
			Snippet:    strings.TrimSpace(html2text.HTML2Text(snippet)),
			Provenance: ranking.Provenance{Source: ranking.SourceWikipedia, Language: lang},
		})
	}
	return hits, nil
}

// ArticleURL builds the canonical article URL, e.g.
// https://en.wikipedia.org/wiki/Demographics_of_India.
func ArticleURL(site, title string) string {
	slug := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	return strings.TrimRight(site, "/") + "/wiki/" + url.PathEscape(slug)
}

func cloneHits(hits []ranking.Hit) []ranking.Hit {
	out := make([]ranking.Hit, len(hits))
	copy(out, hits)
	return out
}
