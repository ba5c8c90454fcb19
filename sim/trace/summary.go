package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAttempts      int            `json:"total_attempts"`
	SeizedCount        int            `json:"seized_count"`
	QueuedCount        int            `json:"queued_count"`
	WakeUps            int            `json:"wake_ups"`
	LostWakeUps        int            `json:"lost_wake_ups"` // woken but the slot was taken at the same instant
	MaxQueueLength     int            `json:"max_queue_length"`
	Departures         int            `json:"departures"`
	UniqueTargets      int            `json:"unique_targets"`
	TargetDistribution map[string]int `json:"target_distribution"` // step ID → count of entities routed there
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		TargetDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalAttempts = len(st.Services)
	for _, s := range st.Services {
		if s.Seized {
			summary.SeizedCount++
		} else {
			summary.QueuedCount++
		}
		if s.Woken {
			summary.WakeUps++
			if !s.Seized {
				summary.LostWakeUps++
			}
		}
		summary.MaxQueueLength = max(summary.MaxQueueLength, s.QueueLength)
	}

	for _, r := range st.Routings {
		if r.ChosenStep == "" {
			summary.Departures++
			continue
		}
		summary.TargetDistribution[r.ChosenStep]++
	}
	summary.UniqueTargets = len(summary.TargetDistribution)

	return summary
}
