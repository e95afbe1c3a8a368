package metrics

import "time"

// RecordSyncCycle records the outcome of one presence poll cycle
func (m *Metrics) RecordSyncCycle(totalMembers, presencesProcessed int, duration time.Duration, err error) {
	m.safeExecute("RecordSyncCycle", func() {
		result := "success"
		if err != nil {
			result = "failure"
		}
		m.SyncCyclesTotal.WithLabelValues(result).Inc()
		m.SyncCycleDuration.Observe(duration.Seconds())

		if err == nil {
			m.SyncMembersTotal.Set(float64(totalMembers))
			m.SyncPresencesProcessed.Add(float64(presencesProcessed))
		}
	})
}
