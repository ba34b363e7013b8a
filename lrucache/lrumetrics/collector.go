// Package lrumetrics exports cache statistics to Prometheus.
package lrumetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gitlab.com/slon/memcached/lrucache"
)

// StatsSource is read once per scrape, so it must be safe to call from the
// scraping goroutine. lrusync.Cache satisfies it.
type StatsSource interface {
	Snapshot() lrucache.Snapshot
}

// Collector exports one consistent snapshot of a cache per scrape.
type Collector struct {
	src StatsSource

	hits      *prometheus.Desc
	misses    *prometheus.Desc
	inserts   *prometheus.Desc
	updates   *prometheus.Desc
	evictions *prometheus.Desc
	entries   *prometheus.Desc
	capacity  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string, src StatsSource) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}

	return &Collector{
		src:       src,
		hits:      desc("hits_total", "Number of lookups that found the key."),
		misses:    desc("misses_total", "Number of lookups that did not find the key."),
		inserts:   desc("inserts_total", "Number of new keys stored."),
		updates:   desc("updates_total", "Number of overwrites of present keys."),
		evictions: desc("evictions_total", "Number of least recently used entries evicted."),
		entries:   desc("entries", "Number of live entries."),
		capacity:  desc("capacity", "Maximum number of live entries."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.inserts
	ch <- c.updates
	ch <- c.evictions
	ch <- c.entries
	ch <- c.capacity
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Snapshot()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.hits, s.Hits)
	counter(c.misses, s.Misses)
	counter(c.inserts, s.Inserts)
	counter(c.updates, s.Updates)
	counter(c.evictions, s.Evictions)

	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Len))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Cap))
}
