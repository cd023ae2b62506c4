package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// RulesParsed counts parse attempts by outcome ("ok" or "error").
	RulesParsed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rules_parsed_total",
		Help: "Rule texts parsed, by outcome",
	}, []string{"outcome"})

	// RuleEvaluations counts evaluations by result ("true", "false" or "error").
	RuleEvaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rule_evaluations_total",
		Help: "Rule evaluations, by result",
	}, []string{"result"})

	RulesCombined = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rules_combined_total",
		Help: "Combined rules created",
	})

	RuleCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rule_cache_entries",
		Help: "Number of decoded rule trees currently cached",
	})

	// WebhookDeliveries counts webhook deliveries by outcome ("ok", "failed"
	// or "dropped").
	WebhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Rule change notifications, by outcome",
	}, []string{"outcome"})
)

// Registry holds every collector this package defines. It is separate from
// the global default registry so tests can build servers repeatedly.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(httpReqs, httpDur, RulesParsed, RuleEvaluations, RulesCombined, RuleCacheEntries, WebhookDeliveries)
}

// Handler serves the metrics in Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// ObserveParse records the outcome of parsing a rule text.
func ObserveParse(err error) {
	if err != nil {
		RulesParsed.WithLabelValues("error").Inc()
		return
	}
	RulesParsed.WithLabelValues("ok").Inc()
}

// ObserveEvaluation records the outcome of one rule evaluation.
func ObserveEvaluation(result bool, err error) {
	if err != nil {
		RuleEvaluations.WithLabelValues("error").Inc()
		return
	}
	RuleEvaluations.WithLabelValues(strconv.FormatBool(result)).Inc()
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// the route pattern is only complete once routing has finished
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
