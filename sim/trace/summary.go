package trace

// Summary aggregates statistics from a ResultLog.
type Summary struct {
	Attempts              int           `yaml:"attempts"`
	Allocated             int           `yaml:"allocated"`
	Unallocated           int           `yaml:"unallocated"`
	Completions           int           `yaml:"completions"`
	MigrationFailures     int           `yaml:"migration_failures"`
	MeanDecisionLatencyMs float64       `yaml:"mean_decision_latency_ms"`
	MaxDecisionLatencyMs  float64       `yaml:"max_decision_latency_ms"`
	UniqueTargets         int           `yaml:"unique_targets"`
	TargetDistribution    map[int64]int `yaml:"target_distribution,omitempty"` // host ID → VMs placed there
}

// Summarize computes aggregate statistics from a ResultLog.
// Safe for nil or empty logs (returns zero-value fields).
func Summarize(log *ResultLog) *Summary {
	summary := &Summary{
		TargetDistribution: make(map[int64]int),
	}
	if log == nil {
		return summary
	}

	summary.Attempts = len(log.outcomes)
	totalLatency := 0.0
	for _, o := range log.outcomes {
		totalLatency += o.DecisionLatencyMs
		if o.DecisionLatencyMs > summary.MaxDecisionLatencyMs {
			summary.MaxDecisionLatencyMs = o.DecisionLatencyMs
		}
		if o.Allocated {
			summary.Allocated++
			summary.TargetDistribution[o.TargetHostID]++
		} else {
			summary.Unallocated++
		}
	}
	if summary.Attempts > 0 {
		summary.MeanDecisionLatencyMs = totalLatency / float64(summary.Attempts)
	}

	summary.Completions = len(log.completions)
	for _, c := range log.completions {
		if !c.Success {
			summary.MigrationFailures++
		}
	}

	summary.UniqueTargets = len(summary.TargetDistribution)

	return summary
}
