package engine

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/memelang/internal/ir"
)

// Metrics holds the Prometheus metrics for an engine.
type Metrics struct {
	Compiles *prometheus.CounterVec
	Lookups  *prometheus.CounterVec
	Rows     prometheus.Counter
	Puts     prometheus.Counter
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	compiles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memelang_compiles_total",
		Help: "Total queries compiled, by outcome",
	}, []string{"outcome"})

	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memelang_resolver_lookups_total",
		Help: "Total symbol and id lookups, by cache result",
	}, []string{"result"})

	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memelang_query_rows_total",
		Help: "Total statements returned by queries",
	})

	puts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memelang_puts_total",
		Help: "Total statements written by put",
	})

	reg.MustRegister(compiles, lookups, rows, puts)

	return &Metrics{
		Compiles: compiles,
		Lookups:  lookups,
		Rows:     rows,
		Puts:     puts,
	}
}

// ObserveLookup counts cache hits and misses.
//
// Implements resolve.Observer.
func (m *Metrics) ObserveLookup(hits, misses int) {
	m.Lookups.WithLabelValues("hit").Add(float64(hits))
	m.Lookups.WithLabelValues("miss").Add(float64(misses))
}

func (m *Metrics) compiled(err error) {
	if m == nil {
		return
	}
	m.Compiles.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) returned(n int) {
	if m == nil {
		return
	}
	m.Rows.Add(float64(n))
}

func (m *Metrics) put(n int) {
	if m == nil {
		return
	}
	m.Puts.Add(float64(n))
}

// outcome is "ok", the lower-cased error code, or "error".
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := ir.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}
