package metrics

import "time"

// DeployRun records the end of a deploy run.
func DeployRun(network, contract, status string) {
	if !enabled {
		return
	}
	deployRunsTotal.WithLabelValues(network, contract, status).Inc()
}

// DeployDuration records how long deploy plus confirmations took.
func DeployDuration(network string, d time.Duration) {
	if !enabled {
		return
	}
	deployDuration.WithLabelValues(network).Observe(d.Seconds())
}

// Verification records a verification outcome.
func Verification(network, outcome string) {
	if !enabled {
		return
	}
	verificationTotal.WithLabelValues(network, outcome).Inc()
}

// HistoryRecord records a deployment history write.
func HistoryRecord(status string) {
	if !enabled {
		return
	}
	historyRecordTotal.WithLabelValues(status).Inc()
}
