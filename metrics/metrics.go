// Package metrics exposes run counters for the analyzer on a private
// Prometheus registry. A nil *Manager is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "swebench_analyzer"

type Manager struct {
	registry *prometheus.Registry

	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheWrites    prometheus.Counter
	remoteRequests *prometheus.CounterVec
	fetchRetries   prometheus.Counter
	fetchFailures  *prometheus.CounterVec
	quotaWaits     prometheus.Counter
	quotaWaitSecs  prometheus.Counter
	quotaRemaining prometheus.Gauge
	records        *prometheus.CounterVec
	instances      *prometheus.CounterVec
	runDuration    prometheus.Gauge
}

func New() *Manager {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)
	return &Manager{
		registry: reg,
		cacheHits: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Cache lookups served from a valid entry.",
		}),
		cacheMisses: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Cache lookups that found no valid entry.",
		}),
		cacheWrites: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "writes_total",
			Help: "Entries written to the response cache.",
		}),
		remoteRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "github", Name: "requests_total",
			Help: "Remote GitHub API requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		fetchRetries: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "github", Name: "retries_total",
			Help: "Retries issued after transient failures.",
		}),
		fetchFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "github", Name: "failures_total",
			Help: "Requests that failed after all attempts, by kind.",
		}, []string{"kind"}),
		quotaWaits: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "quota", Name: "waits_total",
			Help: "Times the fetcher blocked on an exhausted quota.",
		}),
		quotaWaitSecs: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "quota", Name: "wait_seconds_total",
			Help: "Total seconds spent waiting for quota reset.",
		}),
		quotaRemaining: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "quota", Name: "remaining",
			Help: "Remaining API quota reported by the last response.",
		}),
		records: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "run", Name: "records_total",
			Help: "Contribution records emitted, by dataset.",
		}, []string{"dataset"}),
		instances: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "run", Name: "instances_total",
			Help: "Dataset instances classified, by dataset.",
		}, []string{"dataset"}),
		runDuration: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "run", Name: "duration_seconds",
			Help: "Wall time of the last analysis run.",
		}),
	}
}

func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Manager) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Manager) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Manager) CacheWrite() {
	if m != nil {
		m.cacheWrites.Inc()
	}
}

func (m *Manager) RemoteRequest(kind, outcome string) {
	if m != nil {
		m.remoteRequests.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Manager) Retry() {
	if m != nil {
		m.fetchRetries.Inc()
	}
}

func (m *Manager) FetchFailed(kind string) {
	if m != nil {
		m.fetchFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Manager) QuotaWait(d time.Duration) {
	if m != nil {
		m.quotaWaits.Inc()
		m.quotaWaitSecs.Add(d.Seconds())
	}
}

func (m *Manager) QuotaRemaining(n int) {
	if m != nil {
		m.quotaRemaining.Set(float64(n))
	}
}

func (m *Manager) InstanceClassified(dataset string, matched bool) {
	if m == nil {
		return
	}
	m.instances.WithLabelValues(dataset).Inc()
	if matched {
		m.records.WithLabelValues(dataset).Inc()
	}
}

func (m *Manager) RunFinished(d time.Duration) {
	if m != nil {
		m.runDuration.Set(d.Seconds())
	}
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Manager) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
