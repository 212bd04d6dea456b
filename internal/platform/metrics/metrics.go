// Package metrics provides observability for the garden server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and ecosystem metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickSkips      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// Ecosystem metrics
	Births         int64
	Deaths         int64
	LivingEntities int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a completed tick cycle.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordTickSkip records a tick that did not execute (lock held or
// already processed).
func (c *Collector) RecordTickSkip() {
	atomic.AddInt64(&c.TickSkips, 1)
}

// RecordEventWrite records an event batch write to the database.
func (c *Collector) RecordEventWrite(count int, latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, int64(count))
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordPopulation records the ecosystem deltas of one tick.
func (c *Collector) RecordPopulation(births, deaths int, living int) {
	atomic.AddInt64(&c.Births, int64(births))
	atomic.AddInt64(&c.Deaths, int64(deaths))
	atomic.StoreInt64(&c.LivingEntities, int64(living))
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"skips":          atomic.LoadInt64(&c.TickSkips),
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"ecosystem": map[string]interface{}{
			"births_total": atomic.LoadInt64(&c.Births),
			"deaths_total": atomic.LoadInt64(&c.Deaths),
			"living":       atomic.LoadInt64(&c.LivingEntities),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		// Tick metrics
		fmt.Fprintf(w, "# HELP garden_tick_count Total completed tick cycles\n")
		fmt.Fprintf(w, "# TYPE garden_tick_count counter\n")
		fmt.Fprintf(w, "garden_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP garden_tick_skips Total skipped tick attempts\n")
		fmt.Fprintf(w, "# TYPE garden_tick_skips counter\n")
		fmt.Fprintf(w, "garden_tick_skips %d\n\n", atomic.LoadInt64(&c.TickSkips))

		fmt.Fprintf(w, "# HELP garden_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE garden_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "garden_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Event metrics
		fmt.Fprintf(w, "# HELP garden_events_written Total narrative events written\n")
		fmt.Fprintf(w, "# TYPE garden_events_written counter\n")
		fmt.Fprintf(w, "garden_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP garden_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE garden_event_write_errors counter\n")
		fmt.Fprintf(w, "garden_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		// Ecosystem metrics
		fmt.Fprintf(w, "# HELP garden_births_total Total births\n")
		fmt.Fprintf(w, "# TYPE garden_births_total counter\n")
		fmt.Fprintf(w, "garden_births_total %d\n\n", atomic.LoadInt64(&c.Births))

		fmt.Fprintf(w, "# HELP garden_deaths_total Total deaths\n")
		fmt.Fprintf(w, "# TYPE garden_deaths_total counter\n")
		fmt.Fprintf(w, "garden_deaths_total %d\n\n", atomic.LoadInt64(&c.Deaths))

		fmt.Fprintf(w, "# HELP garden_living_entities Living entities after the last tick\n")
		fmt.Fprintf(w, "# TYPE garden_living_entities gauge\n")
		fmt.Fprintf(w, "garden_living_entities %d\n\n", atomic.LoadInt64(&c.LivingEntities))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP garden_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE garden_ws_connections gauge\n")
		fmt.Fprintf(w, "garden_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP garden_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE garden_ws_messages_total counter\n")
		fmt.Fprintf(w, "garden_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "garden_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
