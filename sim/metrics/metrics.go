// Package metrics holds the tally metric set emitted by the migration controller and a
// logrus-backed reporter for printing it.
package metrics

import (
	"github.com/uber-go/tally/v4"
)

// Metrics contains all the metrics relevant to the migration controller
type Metrics struct {
	// Rounds counts evacuation rounds that selected a source host
	Rounds tally.Counter
	// NoCandidate counts rounds skipped because no host had any VMs
	NoCandidate tally.Counter
	// Attempts counts placement attempts, one per VM processed in a round
	Attempts tally.Counter

	Placements     tally.Counter
	PlacementsFail tally.Counter
	Migrations     tally.Counter
	MigrationsFail tally.Counter
	InFlight       tally.Gauge

	// DecisionLatency is the per-VM placement latency, amortized recalculation included
	DecisionLatency tally.Timer
	// RecalculateLatency is the full cost of one Recalculate call
	RecalculateLatency tally.Timer
}

// New returns a new Metrics struct with all metrics initialized and rooted below the given tally scope
func New(scope tally.Scope) *Metrics {
	placementScope := scope.SubScope("placement")
	migrationScope := scope.SubScope("migration")

	placementSuccessScope := placementScope.Tagged(map[string]string{"type": "success"})
	placementFailScope := placementScope.Tagged(map[string]string{"type": "fail"})
	migrationSuccessScope := migrationScope.Tagged(map[string]string{"type": "success"})
	migrationFailScope := migrationScope.Tagged(map[string]string{"type": "fail"})

	return &Metrics{
		Rounds:      scope.Counter("rounds"),
		NoCandidate: scope.Counter("no_candidate"),
		Attempts:    scope.Counter("attempts"),

		Placements:     placementSuccessScope.Counter("decisions"),
		PlacementsFail: placementFailScope.Counter("decisions"),
		Migrations:     migrationSuccessScope.Counter("completions"),
		MigrationsFail: migrationFailScope.Counter("completions"),
		InFlight:       migrationScope.Gauge("in_flight"),

		DecisionLatency:    placementScope.Timer("decision_latency"),
		RecalculateLatency: placementScope.Timer("recalculate_latency"),
	}
}

// NewNoop returns a Metrics whose instruments discard everything.
func NewNoop() *Metrics {
	return New(tally.NoopScope)
}
