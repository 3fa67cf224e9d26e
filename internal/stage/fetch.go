package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

const (
	defaultUserAgent    = "knowledge-importer/1.0"
	defaultMaxBodyBytes = 8 << 20
)

type FetcherConfig struct {
	// RequestsPerHost throttles fetches per remote host; 0 disables the
	// politeness limiter.
	RequestsPerHost float64
	Burst           int
	MaxBodyBytes    int64
	UserAgent       string
	Client          *http.Client
}

// Fetcher downloads source documents over HTTP. It classifies transport and
// status failures so the retry executor can tell transient problems from
// permanent ones, and keeps a per-host rate limiter so batch imports do not
// hammer a single origin.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	perHost      rate.Limit
	burst        int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Fetcher{
		client:       client,
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
		perHost:      rate.Limit(cfg.RequestsPerHost),
		burst:        burst,
		limiters:     make(map[string]*rate.Limiter),
	}
}

func (f *Fetcher) Run(ctx context.Context, sc *domain.StageContext) error {
	parsed, err := url.Parse(sc.SourceURL)
	if err != nil {
		return domain.ValidationError(fmt.Errorf("invalid source url %q: %w", sc.SourceURL, err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return domain.ValidationError(fmt.Errorf("unsupported source url %q", sc.SourceURL))
	}

	if limiter := f.limiter(parsed.Host); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.SourceURL, nil)
	if err != nil {
		return domain.ValidationError(err)
	}
	request.Header.Set("User-Agent", f.userAgent)
	request.Header.Set("Accept", "text/html, application/xhtml+xml, application/xml, application/json, text/plain, */*")

	response, err := f.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.TimeoutError(err)
		}
		return domain.NetworkError(err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusTooManyRequests:
		return domain.RateLimitedError(fmt.Errorf("fetch %s: status %d", sc.SourceURL, response.StatusCode))
	case response.StatusCode >= 500:
		return domain.ServerError(fmt.Errorf("fetch %s: status %d", sc.SourceURL, response.StatusCode))
	case response.StatusCode >= 400:
		return domain.ValidationError(fmt.Errorf("fetch %s: status %d", sc.SourceURL, response.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, f.maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.NetworkError(fmt.Errorf("read body %s: %w", sc.SourceURL, err))
	}

	sc.Set(KeyBody, string(body))
	sc.Set(KeyContentType, response.Header.Get("Content-Type"))
	sc.Set(KeyStatusCode, response.StatusCode)
	return nil
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	if f.perHost <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(f.perHost, f.burst)
		f.limiters[host] = limiter
	}
	return limiter
}
