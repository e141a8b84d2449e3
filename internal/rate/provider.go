// Package rate resolves the interest rate applied at loan approval time.
// The rate comes from an external provider and is treated as a pluggable
// collaborator; when the provider is unreachable the configured default
// applies so approvals never block on it.
package rate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const cacheKey = "interest_rate:current"

// Provider returns the current interest rate as a non-negative fraction.
type Provider interface {
	CurrentRate(ctx context.Context) decimal.Decimal
}

// HTTPProvider fetches the rate from an HTTP endpoint returning
// {"rate": "0.15"}, caches it in redis, and falls back to a fixed default.
type HTTPProvider struct {
	url         string
	client      *http.Client
	redis       *redis.Client
	cacheTTL    time.Duration
	defaultRate decimal.Decimal
}

func NewHTTPProvider(url string, redisClient *redis.Client, cacheTTL time.Duration, defaultRate decimal.Decimal) *HTTPProvider {
	return &HTTPProvider{
		url:         url,
		client:      &http.Client{Timeout: 5 * time.Second},
		redis:       redisClient,
		cacheTTL:    cacheTTL,
		defaultRate: defaultRate,
	}
}

func (p *HTTPProvider) CurrentRate(ctx context.Context) decimal.Decimal {
	if p.redis != nil {
		if cached, err := p.redis.Get(ctx, cacheKey).Result(); err == nil {
			if rate, err := decimal.NewFromString(cached); err == nil {
				return rate
			}
		}
	}

	rate, err := p.fetch(ctx)
	if err != nil {
		slog.Warn("rate provider unavailable, using default", "error", err, "default", p.defaultRate)
		return p.defaultRate
	}

	if p.redis != nil {
		if err := p.redis.Set(ctx, cacheKey, rate.String(), p.cacheTTL).Err(); err != nil {
			slog.Warn("caching interest rate failed", "error", err)
		}
	}
	return rate
}

func (p *HTTPProvider) fetch(ctx context.Context) (decimal.Decimal, error) {
	if p.url == "" {
		return decimal.Zero, fmt.Errorf("no rate provider configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate provider returned %d", resp.StatusCode)
	}

	var body struct {
		Rate decimal.Decimal `json:"rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, err
	}

	if body.Rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("rate provider returned negative rate %s", body.Rate)
	}
	return body.Rate, nil
}

// Static always returns a fixed rate. Used in tests and as a provider when
// no external endpoint exists.
type Static struct {
	Rate decimal.Decimal
}

func (s Static) CurrentRate(context.Context) decimal.Decimal {
	return s.Rate
}
