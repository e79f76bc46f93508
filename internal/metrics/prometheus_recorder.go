package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitehead"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	pageDuration  prom.Histogram
	pageResults   *prom.CounterVec
	runDuration   prom.Histogram
	runOutcomes   *prom.CounterVec
	servedPages   *prom.CounterVec
	notifications *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them with reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pageDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time spent injecting a single page",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		pageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_results_total",
			Help:      "Processed pages by result",
		}, []string{"result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full site run",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Site runs by final outcome",
		}, []string{"outcome"}),
		servedPages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "served_pages_total",
			Help:      "HTML pages served, by whether injection changed them",
		}, []string{"injected"}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Run notifications by delivery result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.pageDuration, pr.pageResults, pr.runDuration, pr.runOutcomes, pr.servedPages, pr.notifications)
	return pr
}

func (p *PrometheusRecorder) ObservePageDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.pageDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.pageResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.runOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncServedPage(injected bool) {
	if p == nil {
		return
	}
	p.servedPages.WithLabelValues(boolLabel(injected, "true", "false")).Inc()
}

func (p *PrometheusRecorder) IncNotification(success bool) {
	if p == nil {
		return
	}
	p.notifications.WithLabelValues(boolLabel(success, "success", "failed")).Inc()
}

func boolLabel(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
