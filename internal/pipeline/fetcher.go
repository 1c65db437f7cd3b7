package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/ppiankov/ticketscan/internal/cache"
	"github.com/ppiankov/ticketscan/internal/logging"
	"github.com/ppiankov/ticketscan/internal/util"
	"github.com/ppiankov/ticketscan/internal/worker"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const fetchMaxRetries = 3

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// ErrRobotsDisallowed is returned when robots.txt forbids fetching an input
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// StatusError is a non-2xx response to an input download
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("unexpected status: %s", e.Status)
	if e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnauthorized {
		msg += " (personal inputs need a session cookie, see --session)"
	}
	return msg
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// FetcherOptions configures a Fetcher
type FetcherOptions struct {
	Timeout       time.Duration
	UserAgent     string
	MaxBytes      int64
	Session       string
	RespectRobots bool
	HTTPProxy     string
	HTTPSProxy    string
	NoProxy       string
	CacheTTL      time.Duration

	Limiter *worker.Limiter // nil disables rate limiting
	Cache   cache.Cache     // nil disables caching
	Logger  *zap.Logger
}

// Fetcher downloads remote puzzle inputs
type Fetcher struct {
	httpClient *http.Client
	jar        http.CookieJar
	userAgent  string
	maxBytes   int64
	session    string
	cacheTTL   time.Duration
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cache      cache.Cache
	logger     *zap.Logger
}

// FetchResult contains a downloaded input
type FetchResult struct {
	Body        []byte
	ContentType string // empty for cache hits
	FinalURL    string
	StatusCode  int
	FromCache   bool
}

// NewFetcher creates a new Fetcher with the given options
func NewFetcher(opts FetcherOptions) (*Fetcher, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 2_000_000
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	opts.Logger = logging.OrNop(opts.Logger)

	client := &http.Client{
		Timeout: opts.Timeout,
		Jar:     jar,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		jar:        jar,
		userAgent:  opts.UserAgent,
		maxBytes:   opts.MaxBytes,
		session:    opts.Session,
		cacheTTL:   opts.CacheTTL,
		limiter:    opts.Limiter,
		cache:      opts.Cache,
		logger:     opts.Logger,
	}
	if opts.RespectRobots {
		f.robots = util.NewRobotsChecker(client, opts.UserAgent)
	}
	return f, nil
}

// Fetch downloads rawURL once, consulting the cache, robots.txt and the
// per-host limiter first
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.InputKey(rawURL, f.session)
	if body, ok := f.cache.Get(key); ok {
		f.logger.Debug("input cache hit", zap.String("url", rawURL))
		return &FetchResult{Body: body, FinalURL: rawURL, StatusCode: http.StatusOK, FromCache: true}, nil
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %v", rawURL, err)
	}

	if f.robots != nil {
		decision, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrRobotsDisallowed)
		}
		if f.limiter != nil {
			f.limiter.SlowHost(target.Host, decision.CrawlDelay)
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	if f.session != "" {
		f.jar.SetCookies(target, []*http.Cookie{{Name: "session", Value: f.session}})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain,text/html;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if err := f.cache.Set(key, body, f.cacheTTL); err != nil {
		f.logger.Warn("input cache write failed", zap.String("url", rawURL), zap.Error(err))
	}

	f.logger.Debug("input fetched", zap.String("url", rawURL), zap.Int("bytes", len(body)))

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
	}, nil
}

// FetchWithRetry retries transient failures (429, 5xx, network errors) with
// exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < fetchMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			f.logger.Debug("retrying input fetch", zap.String("url", rawURL), zap.Duration("backoff", backoff), zap.Error(err))
			fetchSleepFunc(backoff)
		}
	}
	return nil, lastErr
}

func isRetryableFetchError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.retryable()
	}
	if errors.Is(err, ErrRobotsDisallowed) {
		return false
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
