package consistency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossview_monitor_check_cycles_total",
		Help: "Total number of completed consistency check cycles",
	})

	skippedCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossview_monitor_skipped_cycles_total",
		Help: "Check cycles skipped because a previous cycle was still running",
	})

	mismatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossview_monitor_mismatches_total",
		Help: "Total mismatches recorded, by severity",
	}, []string{"severity"})

	mismatchLogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossview_monitor_mismatch_log_size",
		Help: "Current number of entries in the mismatch log",
	})
)
