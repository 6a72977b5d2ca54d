package job

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feed_stage_outcomes_total",
	Help: "Stage runs by stage identifier and outcome.",
}, []string{"stage", "outcome"})

func observeStage(stage string, succeeded bool) {
	outcome := "failure"
	if succeeded {
		outcome = "success"
	}
	stageOutcomes.WithLabelValues(stage, outcome).Inc()
}
