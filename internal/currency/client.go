// Package currency talks to the exchange-rate API and owns the
// process-wide default currency setting.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	DefaultCode    = "BGN"
	DefaultTimeout = 10 * time.Second
	DefaultTTL     = 10 * time.Minute

	apiHost = "https://v6.exchangerate-api.com/v6/"
)

// FallbackCodes is served when the code list cannot be fetched.
var FallbackCodes = []string{"USD", "EUR", "BGN"}

// BaseURLForKey returns the API base for an exchangerate-api key.
func BaseURLForKey(apiKey string) string {
	if strings.TrimSpace(apiKey) == "" {
		return ""
	}
	return apiHost + url.PathEscape(strings.TrimSpace(apiKey))
}

// ExternalServiceError reports an unreachable or failing rate API.
type ExternalServiceError struct {
	Endpoint string
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("currency service %s: %v", e.Endpoint, e.Err)
}

func (e *ExternalServiceError) Unwrap() []error {
	return []error{core.ErrExternalService, e.Err}
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger

	codes *cache.LRUCache[[]string]
	rates *cache.LRUCache[decimal.Decimal]
	group singleflight.Group
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultTTL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		logger:  logger.WithComponent(log.ComponentCurrency),
		codes:   cache.NewLRUCache[[]string](1, opts.CacheTTL),
		rates:   cache.NewLRUCache[decimal.Decimal](256, opts.CacheTTL),
	}
}

// Caches exposes the client's caches so a cache.Manager can evict them.
func (c *Client) Caches() map[string]cache.Cleaner {
	return map[string]cache.Cleaner{"currency_codes": c.codes, "currency_rates": c.rates}
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

type codesResponse struct {
	Result         string     `json:"result"`
	ErrorType      string     `json:"error-type"`
	SupportedCodes [][]string `json:"supported_codes"`
}

type pairResponse struct {
	Result         string          `json:"result"`
	ErrorType      string          `json:"error-type"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
}

// FetchCodes returns the supported currency codes or an
// ExternalServiceError. Concurrent callers share one request.
func (c *Client) FetchCodes(ctx context.Context) ([]string, error) {
	if codes, ok := c.codes.Get("codes"); ok {
		return codes, nil
	}
	v, err, _ := c.group.Do("codes", func() (interface{}, error) {
		var body codesResponse
		if err := c.getJSON(ctx, "/codes", &body); err != nil {
			return nil, err
		}
		if body.Result == "error" {
			return nil, &ExternalServiceError{Endpoint: "/codes", Err: errors.New(body.ErrorType)}
		}
		codes := make([]string, 0, len(body.SupportedCodes))
		for _, pair := range body.SupportedCodes {
			if len(pair) > 0 && pair[0] != "" {
				codes = append(codes, strings.ToUpper(pair[0]))
			}
		}
		if len(codes) == 0 {
			return nil, &ExternalServiceError{Endpoint: "/codes", Err: errors.New("empty code list")}
		}
		sort.Strings(codes)
		c.codes.Set("codes", codes)
		return codes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Codes is FetchCodes with the fixed fallback list on failure.
func (c *Client) Codes(ctx context.Context) []string {
	codes, err := c.FetchCodes(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Using fallback currency codes", log.FieldError, err, "fallback", FallbackCodes)
		return append([]string(nil), FallbackCodes...)
	}
	return codes
}

// IsKnown reports whether code is among the available codes.
func (c *Client) IsKnown(ctx context.Context, code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, k := range c.Codes(ctx) {
		if k == code {
			return true
		}
	}
	return false
}

// Rate fetches the live from→to exchange rate. Same-code pairs are 1
// without a request.
func (c *Client) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	endpoint := "/pair/" + url.PathEscape(from) + "/" + url.PathEscape(to)

	var body pairResponse
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return decimal.Zero, err
	}
	if body.Result == "error" {
		return decimal.Zero, &ExternalServiceError{Endpoint: endpoint, Err: errors.New(body.ErrorType)}
	}
	if !body.ConversionRate.IsPositive() {
		return decimal.Zero, &ExternalServiceError{Endpoint: endpoint, Err: fmt.Errorf("invalid conversion rate %s", body.ConversionRate)}
	}
	c.rates.Set(from+"/"+to, body.ConversionRate)
	return body.ConversionRate, nil
}

// RateOrFallback serves a cached or live rate and falls back to 1 when
// the API cannot answer.
func (c *Client) RateOrFallback(ctx context.Context, from, to string) decimal.Decimal {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if r, ok := c.rates.Get(from + "/" + to); ok {
		return r
	}
	r, err := c.Rate(ctx, from, to)
	if err != nil {
		c.logger.WarnContext(ctx, "Using fallback exchange rate",
			log.FieldError, err, log.FieldFromCurrency, from, log.FieldToCurrency, to, log.FieldRate, "1")
		return decimal.NewFromInt(1)
	}
	return r
}

// Convert expresses amount, given in from, in the to currency. An
// unrecognised from code is treated as DefaultCode.
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal {
	from = NormalizeCode(from)
	if from == "" || !c.IsKnown(ctx, from) {
		from = DefaultCode
	}
	to = NormalizeCode(to)
	if from == to {
		return amount
	}
	return core.Rescale(amount, c.RateOrFallback(ctx, from, to))
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	if c.baseURL == "" {
		return &ExternalServiceError{Endpoint: endpoint, Err: errors.New("no API base URL configured")}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return &ExternalServiceError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &ExternalServiceError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &ExternalServiceError{Endpoint: endpoint, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dst); err != nil {
		return &ExternalServiceError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
