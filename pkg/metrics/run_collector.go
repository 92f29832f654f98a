package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/avriza/simrunner/internal/store"
)

type runStatsCollector struct {
	store       store.Store
	runsByState *prometheus.Desc
	totalRuns   *prometheus.Desc
}

func newRunStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_archive_%s", simRunner, name)
	}

	return &runStatsCollector{
		store: s,
		runsByState: prometheus.NewDesc(
			fqName("runs_by_status"),
			"Number of archived runs in each status.",
			[]string{statusLabel},
			prometheus.Labels{},
		),
		totalRuns: prometheus.NewDesc(
			fqName("runs_total"),
			"Total number of archived runs.",
			nil,
			prometheus.Labels{},
		),
	}
}

// RegisterRunStatsCollector registers the store-backed run statistics with
// the default registry.
func RegisterRunStatsCollector(s store.Store) {
	prometheus.MustRegister(newRunStatsCollector(s))
}

func (c *runStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runsByState
	ch <- c.totalRuns
}

// Collect implements Collector.
func (c *runStatsCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.store.Run().CountByStatus(context.Background())
	if err != nil {
		zap.S().Named("run_collector").Errorf("failed to collect run statistics: %s", err)
		return
	}

	total := int64(0)
	for status, count := range counts {
		total += count
		ch <- prometheus.MustNewConstMetric(c.runsByState, prometheus.GaugeValue, float64(count), status)
	}
	ch <- prometheus.MustNewConstMetric(c.totalRuns, prometheus.GaugeValue, float64(total))
}
