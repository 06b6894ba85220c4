// Package trace provides the append-only result log of a migration experiment.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// NoHost is the target host ID recorded when no placement was found.
const NoHost int64 = -1

// OutcomeRecord captures a single placement attempt made during an evacuation round.
// Created when the decision is made and never mutated afterwards.
type OutcomeRecord struct {
	VMID              int64
	DecisionLatencyMs float64 // includes the amortized share of the round's recalculation
	Allocated         bool
	SourceHostID      int64
	TargetHostID      int64 // NoHost when Allocated is false

	// Placeholders fixed at decision time; see CompletionRecord for the observed result.
	MigrationLatencyMs float64
	MigrationSucceeded bool
}

// CompletionRecord captures a migration-finish signal reported by the engine.
// Correlate with OutcomeRecord by VMID.
type CompletionRecord struct {
	VMID         int64
	SourceHostID int64
	TargetHostID int64
	Time         int64 // simulated time in ticks (microseconds)
	Success      bool
}
