package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry.
// All methods are safe on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec

	expensesCreated        prometheus.Counter
	expenseRejections      *prometheus.CounterVec
	settlementTransactions prometheus.Histogram
}

// NewMetrics registers the RPC and ledger collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripledger_rpc_requests_total",
			Help: "RPCs handled, by procedure and Connect code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripledger_rpc_duration_seconds",
			Help:    "RPC latency by procedure.",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure"}),
		expensesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripledger_expenses_created_total",
			Help: "Expenses committed to the ledger.",
		}),
		expenseRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripledger_expense_rejections_total",
			Help: "Expense submissions rejected, by reason.",
		}, []string{"reason"}),
		settlementTransactions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripledger_settlement_transactions",
			Help:    "Transfers per computed settlement plan.",
			Buckets: prometheus.LinearBuckets(0, 2, 10),
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcRequests,
		m.rpcDuration,
		m.expensesCreated,
		m.expenseRejections,
		m.settlementTransactions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Interceptor counts and times every unary RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if m == nil {
				return next(ctx, req)
			}
			start := time.Now()
			resp, err := next(ctx, req)

			procedure := req.Spec().Procedure
			m.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			m.rpcRequests.WithLabelValues(procedure, codeOf(err)).Inc()
			return resp, err
		}
	}
}

func (m *Metrics) ExpenseCreated() {
	if m != nil {
		m.expensesCreated.Inc()
	}
}

func (m *Metrics) ExpenseRejected(reason string) {
	if m != nil {
		m.expenseRejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SettlementPlanned(transfers int) {
	if m != nil {
		m.settlementTransactions.Observe(float64(transfers))
	}
}

func codeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return connect.CodeUnknown.String()
}
