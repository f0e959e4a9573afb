package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossview_history_commits_total",
		Help: "Total number of history commits",
	})

	undosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossview_history_undos_total",
		Help: "Total number of successful undo operations",
	})

	redosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossview_history_redos_total",
		Help: "Total number of successful redo operations",
	})
)
