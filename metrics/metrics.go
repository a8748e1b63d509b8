// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Logins        *prometheus.CounterVec // role, result
	FetchFailures *prometheus.CounterVec // kind
	MalformedRows *prometheus.CounterVec // schema
	GPSFixes      *prometheus.CounterVec // result
	TollCharged   prometheus.Counter
	TollAmount    prometheus.Counter
}

// New registers all collectors on a private registry so that tests can
// create as many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toll_logins_total",
			Help: "Login attempts by role and result.",
		}, []string{"role", "result"}),
		FetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toll_table_fetch_failures_total",
			Help: "Failed fetches of delimited table resources.",
		}, []string{"kind"}),
		MalformedRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toll_malformed_rows_total",
			Help: "Rows skipped because they did not match their schema.",
		}, []string{"schema"}),
		GPSFixes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toll_gps_fixes_total",
			Help: "GPS fixes processed by outcome.",
		}, []string{"result"}),
		TollCharged: f.NewCounter(prometheus.CounterOpts{
			Name: "toll_charges_total",
			Help: "Tolls successfully charged.",
		}),
		TollAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "toll_charged_amount_total",
			Help: "Sum of all charged toll amounts.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
