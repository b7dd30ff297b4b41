// Package metrics exposes tracker activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the tracker, the persistence writer and the API report to.
type Recorder interface {
	RecordSample(outcome string)
	RecordNextDelay(zone string, delay time.Duration)
	RecordDistance(meters float64)
	RecordTransition(direction, trigger string)
	RecordPersistFailure(key string)
	RecordInsight(outcome string)
}

type Collector struct {
	samples         *prometheus.CounterVec
	nextDelay       prometheus.Gauge
	zone            *prometheus.GaugeVec
	distance        prometheus.Gauge
	transitions     *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	insights        *prometheus.CounterVec
}

var zones = []string{"unknown", "critical", "approaching", "far"}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worklog_location_samples_total",
			Help: "Completed location samples by outcome.",
		}, []string{"outcome"}),
		nextDelay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worklog_next_sample_delay_seconds",
			Help: "Delay armed for the next location sample.",
		}),
		zone: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worklog_distance_zone",
			Help: "1 for the zone the last sample fell into, 0 otherwise.",
		}, []string{"zone"}),
		distance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worklog_distance_to_work_meters",
			Help: "Distance between the last fix and the work location.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worklog_session_transitions_total",
			Help: "Work session transitions by direction and trigger.",
		}, []string{"direction", "trigger"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worklog_persist_failures_total",
			Help: "Failed write-behind persistence operations by key.",
		}, []string{"key"}),
		insights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worklog_insight_requests_total",
			Help: "AI insight requests by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.samples,
		c.nextDelay,
		c.zone,
		c.distance,
		c.transitions,
		c.persistFailures,
		c.insights,
	)

	return c
}

func (c *Collector) RecordSample(outcome string) {
	c.samples.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordNextDelay(zone string, delay time.Duration) {
	c.nextDelay.Set(delay.Seconds())
	for _, z := range zones {
		if z == zone {
			c.zone.WithLabelValues(z).Set(1)
		} else {
			c.zone.WithLabelValues(z).Set(0)
		}
	}
}

func (c *Collector) RecordDistance(meters float64) {
	c.distance.Set(meters)
}

func (c *Collector) RecordTransition(direction, trigger string) {
	c.transitions.WithLabelValues(direction, trigger).Inc()
}

func (c *Collector) RecordPersistFailure(key string) {
	c.persistFailures.WithLabelValues(key).Inc()
}

func (c *Collector) RecordInsight(outcome string) {
	c.insights.WithLabelValues(outcome).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSample(string)                   {}
func (Nop) RecordNextDelay(string, time.Duration) {}
func (Nop) RecordDistance(float64)                {}
func (Nop) RecordTransition(string, string)       {}
func (Nop) RecordPersistFailure(string)           {}
func (Nop) RecordInsight(string)                  {}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
