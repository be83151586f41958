// Package metrics aggregates delivery-outcome counters per worker, channel
// and outcome status.
package metrics

import (
	"sync"
	"time"

	"github.com/dmarkin/timed-notifier/internal/model"
)

type key struct {
	server  string
	channel model.Channel
	status  string
}

// Query narrows a metrics report. Zero values mean "no filter"; a zero
// Window means all time.
type Query struct {
	ServerID string
	Channel  model.Channel
	Window   time.Duration
}

// Report is an aggregated view of recorded outcomes, grouped
// server -> channel -> status.
type Report struct {
	Timestamp time.Time                              `json:"timestamp"`
	Servers   map[string]map[string]map[string]int64 `json:"servers"`
	Total     int64                                  `json:"total"`
}

// Collector counts delivery outcomes in second-granularity buckets.
// Safe for concurrent use.
type Collector struct {
	mu      sync.RWMutex
	buckets map[key]map[int64]int64

	now func() time.Time
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		buckets: make(map[key]map[int64]int64),
		now:     time.Now,
	}
}

// Record increments the counter for (server, channel, status) in the
// current second bucket.
func (c *Collector) Record(serverID string, channel model.Channel, status string) {
	k := key{server: serverID, channel: channel, status: status}
	second := c.now().Unix()

	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[k]
	if !ok {
		b = make(map[int64]int64)
		c.buckets[k] = b
	}
	b[second]++
}

// Query sums bucket counts matching q within its window.
func (c *Collector) Query(q Query) Report {
	now := c.now()

	var since int64
	if q.Window > 0 {
		since = now.Add(-q.Window).Unix()
	}

	report := Report{
		Timestamp: now,
		Servers:   make(map[string]map[string]map[string]int64),
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, buckets := range c.buckets {
		if q.ServerID != "" && k.server != q.ServerID {
			continue
		}
		if q.Channel != "" && k.channel != q.Channel {
			continue
		}

		var sum int64
		for second, count := range buckets {
			if second >= since {
				sum += count
			}
		}

		if sum == 0 {
			continue
		}

		channels, ok := report.Servers[k.server]
		if !ok {
			channels = make(map[string]map[string]int64)
			report.Servers[k.server] = channels
		}

		statuses, ok := channels[string(k.channel)]
		if !ok {
			statuses = make(map[string]int64)
			channels[string(k.channel)] = statuses
		}

		statuses[k.status] += sum
		report.Total += sum
	}

	return report
}
