package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/mmynk/tripledger/internal/ledger"
)

// RateSource quotes how many units of to one unit of from buys.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// HTTPRates reads exchange rates from a JSON HTTP endpoint. The URL template
// has {base} replaced by the source currency and the JSONPath template has
// {quote} replaced by the target, so most public rate APIs fit:
//
//	https://open.er-api.com/v6/latest/{base}   $.rates.{quote}
type HTTPRates struct {
	client  *http.Client
	url     string
	path    string
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// BreakerSettings controls when HTTPRates stops calling a failing endpoint.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

var DefaultBreakerSettings = BreakerSettings{ConsecutiveFailures: 3, Timeout: 30 * time.Second}

func NewHTTPRates(client *http.Client, urlTemplate, pathTemplate string, bs BreakerSettings, logger *slog.Logger) *HTTPRates {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &HTTPRates{client: client, url: urlTemplate, path: pathTemplate, logger: logger}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "exchange-rates",
		MaxRequests: 1,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return r
}

// Rate returns the exchange rate from -> to. The same currency is always 1.
func (r *HTTPRates) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	const op = "fetch exchange rate"
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetch(ctx, from, to)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.logger.Warn("Exchange rate request rejected by circuit breaker", "from", from, "to", to)
		}
		return decimal.Decimal{}, ledger.Upstream(op, err)
	}
	return result.(decimal.Decimal), nil
}

func (r *HTTPRates) fetch(ctx context.Context, from, to string) (decimal.Decimal, error) {
	url := strings.ReplaceAll(r.url, "{base}", from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("rates endpoint returned %s", resp.Status)
	}

	// UseNumber keeps the quoted rate exact instead of round-tripping a float.
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return decimal.Decimal{}, fmt.Errorf("rates endpoint returned malformed JSON: %w", err)
	}

	expr := strings.ReplaceAll(r.path, "{quote}", to)
	val, err := jsonpath.Get(expr, doc)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("rate %s->%s (%s): %w", from, to, expr, err)
	}

	rate, err := toDecimal(val)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("rate %s->%s: %w", from, to, err)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("rate %s->%s must be positive, got %s", from, to, rate)
	}
	return rate, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unexpected rate value %T", v)
}
