// Package metrics collects runtime counters for the agent loop.
package metrics

import (
	"sync"
	"time"
)

// Collector accumulates API, scan and execution counters in memory. The
// agent snapshots the per-cycle counters into the store at the end of each
// cycle.
type Collector struct {
	mu        sync.Mutex
	startTime time.Time

	apiCalls        int
	apiErrors       int
	apiLatencyTotal time.Duration

	marketsScanned   int
	opportunities    int
	executionsOK     int
	executionsFailed int

	// Per-cycle counters, reset by EndCycle.
	cycleAPICalls  int
	cycleAPIErrors int
}

// NewCollector creates a collector; uptime counts from now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// RecordAPICall records one market-data API call.
func (c *Collector) RecordAPICall(latency time.Duration, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiCalls++
	c.cycleAPICalls++
	c.apiLatencyTotal += latency
	if failed {
		c.apiErrors++
		c.cycleAPIErrors++
	}
}

// RecordScan records one market scan.
func (c *Collector) RecordScan(markets, opportunities int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.marketsScanned += markets
	c.opportunities += opportunities
}

// RecordExecution records a trade execution attempt.
func (c *Collector) RecordExecution(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if success {
		c.executionsOK++
	} else {
		c.executionsFailed++
	}
}

// EndCycle returns the per-cycle API counters and resets them.
func (c *Collector) EndCycle() (apiCalls, apiErrors int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	apiCalls, apiErrors = c.cycleAPICalls, c.cycleAPIErrors
	c.cycleAPICalls, c.cycleAPIErrors = 0, 0
	return apiCalls, apiErrors
}

// Summary is a read-only snapshot of accumulated counters.
type Summary struct {
	Uptime           time.Duration
	APICalls         int
	APIErrors        int
	AvgAPILatency    time.Duration
	MarketsScanned   int
	Opportunities    int
	ExecutionsOK     int
	ExecutionsFailed int
}

// Snapshot returns the current counters.
func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	var avg time.Duration
	if c.apiCalls > 0 {
		avg = c.apiLatencyTotal / time.Duration(c.apiCalls)
	}

	return Summary{
		Uptime:           time.Since(c.startTime),
		APICalls:         c.apiCalls,
		APIErrors:        c.apiErrors,
		AvgAPILatency:    avg,
		MarketsScanned:   c.marketsScanned,
		Opportunities:    c.opportunities,
		ExecutionsOK:     c.executionsOK,
		ExecutionsFailed: c.executionsFailed,
	}
}
