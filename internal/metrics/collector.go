// Package metrics provides a lightweight metrics collector that renders
// Prometheus text exposition format without pulling in the full
// prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the global metrics collector.
var Collector = NewCollector()

// MetricsCollector aggregates counters, gauges, and histograms.
type MetricsCollector struct {
	counters   sync.Map // key -> *Counter
	gauges     sync.Map // key -> *Gauge
	histograms sync.Map // key -> *Histogram
	startTime  time.Time
}

// NewCollector creates a new collector.
func NewCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of values.
type Histogram struct {
	name    string
	help    string
	labels  string
	mu      sync.Mutex
	count   int64
	sum     float64
	buckets []histBucket
}

type histBucket struct {
	le    float64
	count int64
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := range h.buckets {
		if v <= h.buckets[i].le {
			h.buckets[i].count++
		}
	}
}

// --- Registration helpers ---

// Counter returns or creates a counter with the given name.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"
	if v, ok := c.counters.Load(key); ok {
		return v.(*Counter)
	}
	ctr := &Counter{name: name, help: help, labels: labels}
	actual, _ := c.counters.LoadOrStore(key, ctr)
	return actual.(*Counter)
}

// Gauge returns or creates a gauge with the given name.
func (c *MetricsCollector) Gauge(name, help, labels string) *Gauge {
	key := name + "{" + labels + "}"
	if v, ok := c.gauges.Load(key); ok {
		return v.(*Gauge)
	}
	g := &Gauge{name: name, help: help, labels: labels}
	actual, _ := c.gauges.LoadOrStore(key, g)
	return actual.(*Gauge)
}

// Histogram returns or creates a histogram with the given name.
func (c *MetricsCollector) Histogram(name, help, labels string, buckets []float64) *Histogram {
	key := name + "{" + labels + "}"
	if v, ok := c.histograms.Load(key); ok {
		return v.(*Histogram)
	}
	sort.Float64s(buckets)
	hb := make([]histBucket, len(buckets), len(buckets)+1)
	for i, b := range buckets {
		hb[i] = histBucket{le: b}
	}
	hb = append(hb, histBucket{le: math.Inf(1)})
	h := &Histogram{name: name, help: help, labels: labels, buckets: hb}
	actual, _ := c.histograms.LoadOrStore(key, h)
	return actual.(*Histogram)
}

// --- Prometheus text rendering ---

// Handler returns an http.HandlerFunc that renders metrics in Prometheus
// text format.
func (c *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder

		fmt.Fprintf(&sb, "# HELP kakeibot_uptime_seconds Time since start in seconds\n")
		fmt.Fprintf(&sb, "# TYPE kakeibot_uptime_seconds gauge\n")
		fmt.Fprintf(&sb, "kakeibot_uptime_seconds %d\n\n", int64(c.Uptime().Seconds()))

		helpWritten := make(map[string]bool)
		c.counters.Range(func(key, value any) bool {
			ctr := value.(*Counter)
			writeHeader(&sb, helpWritten, ctr.name, ctr.help, "counter")
			writeSample(&sb, ctr.name, ctr.labels, fmt.Sprintf("%d", ctr.Value()))
			return true
		})

		helpWritten = make(map[string]bool)
		c.gauges.Range(func(key, value any) bool {
			g := value.(*Gauge)
			writeHeader(&sb, helpWritten, g.name, g.help, "gauge")
			writeSample(&sb, g.name, g.labels, fmt.Sprintf("%d", g.Value()))
			return true
		})

		c.histograms.Range(func(key, value any) bool {
			h := value.(*Histogram)
			h.mu.Lock()
			defer h.mu.Unlock()

			fmt.Fprintf(&sb, "# HELP %s %s\n", h.name, h.help)
			fmt.Fprintf(&sb, "# TYPE %s histogram\n", h.name)
			prefix := h.name + "_bucket{"
			if h.labels != "" {
				prefix = h.name + "_bucket{" + h.labels + ","
			}
			for _, b := range h.buckets {
				le := fmt.Sprintf("%g", b.le)
				if math.IsInf(b.le, 1) {
					le = "+Inf"
				}
				fmt.Fprintf(&sb, "%sle=%q} %d\n", prefix, le, b.count)
			}
			writeSample(&sb, h.name+"_count", h.labels, fmt.Sprintf("%d", h.count))
			writeSample(&sb, h.name+"_sum", h.labels, fmt.Sprintf("%f", h.sum))
			return true
		})

		fmt.Fprint(w, sb.String())
	}
}

func writeHeader(sb *strings.Builder, written map[string]bool, name, help, kind string) {
	if written[name] {
		return
	}
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, kind)
	written[name] = true
}

func writeSample(sb *strings.Builder, name, labels, value string) {
	if labels != "" {
		fmt.Fprintf(sb, "%s{%s} %s\n", name, labels, value)
	} else {
		fmt.Fprintf(sb, "%s %s\n", name, value)
	}
}

// --- Pre-defined metrics used across the application ---

var (
	EventsTotal       = Collector.Counter("kakeibot_events_total", "Total text events processed", "")
	EventsSkipped     = Collector.Counter("kakeibot_events_skipped_total", "Total non-text events skipped", "")
	RecordsStored     = Collector.Counter("kakeibot_records_total", "Record commands by sink outcome", `outcome="stored"`)
	RecordsSkipped    = Collector.Counter("kakeibot_records_total", "Record commands by sink outcome", `outcome="skipped"`)
	RecordsFailed     = Collector.Counter("kakeibot_records_total", "Record commands by sink outcome", `outcome="failed"`)
	GenerationsTotal  = Collector.Counter("kakeibot_generations_total", "Total generation requests", "")
	GenerationErrors  = Collector.Counter("kakeibot_generation_errors_total", "Generation requests that fell back to the persona fallback", "")
	RepliesTotal      = Collector.Counter("kakeibot_replies_total", "Total replies sent", "")
	ReplyErrors       = Collector.Counter("kakeibot_reply_errors_total", "Reply sends that failed", "")
	InflightBatches   = Collector.Gauge("kakeibot_inflight_batches", "Webhook batches currently being processed", "")
	GenerationLatency = Collector.Histogram("kakeibot_generation_seconds", "Generation request latency in seconds", "",
		[]float64{0.5, 1, 2, 5, 10, 30})
)
