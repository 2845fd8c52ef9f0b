package metrics

import (
	"time"
)

// StatsSource exposes fleet counts for the collector to sample.
type StatsSource interface {
	FleetSize() int
	FailingClusters() int
}

// Collector samples fleet gauges from a stats source
type Collector struct {
	source StatsSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ClustersTotal.Set(float64(c.source.FleetSize()))
	ClustersFailing.Set(float64(c.source.FailingClusters()))
}
