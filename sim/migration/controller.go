// Package migration drives the evacuation experiment: it repeatedly picks a random
// populated host, asks the placement policy for a new home for each of its VMs, and
// requests the migrations from the engine until the attempt quota is reached.
//
// All handlers run synchronously inside engine callbacks; the controller is not safe for
// concurrent use.
package migration

import (
	"errors"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/metrics"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/trace"
)

var (
	// ErrNoEvacuationCandidate is returned when no host has any VM to evacuate.
	ErrNoEvacuationCandidate = errors.New("no host with VMs to evacuate")
	// ErrQuotaReached is returned by EvacuateRound once the attempt quota is used up.
	ErrQuotaReached = errors.New("placement attempt quota reached")
)

// Engine is the datacenter the controller drives.
type Engine interface {
	// Hosts returns the live host ledgers in engine order.
	Hosts() []*sim.Host
	Policy() sim.PlacementPolicy
	// RequestMigration is fire-and-forget; the outcome arrives later through
	// Controller.OnMigrationFinish.
	RequestMigration(vm *sim.VM, target *sim.Host)
	Now() int64
}

// Config holds the quota and throttle parameters.
type Config struct {
	// MinAttempts stops new rounds once this many placement attempts were made.
	MinAttempts int
	// LowWaterMark triggers a new round when in-flight migrations drop to or below it.
	LowWaterMark int
}

// ConfigFrom converts the experiment's controller section.
func ConfigFrom(c sim.ControllerConfig) Config {
	return Config{MinAttempts: c.MinAttempts, LowWaterMark: c.LowWaterMark}
}

// Phase is the controller lifecycle position. There is no terminal phase: once the quota
// is reached the controller stops issuing rounds and the run ends when the engine drains.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseAwaitingFirstTrigger
	PhaseEvacuating
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseAwaitingFirstTrigger:
		return "AWAITING_FIRST_TRIGGER"
	case PhaseEvacuating:
		return "EVACUATING"
	default:
		return "UNKNOWN"
	}
}

// State is the controller's bookkeeping. Only the controller's handlers mutate it.
type State struct {
	Attempts         int
	Failures         int
	InFlight         int
	FirstTriggerDone bool
}

// MigrationFinish is the engine's completion signal for one requested migration.
type MigrationFinish struct {
	VM      *sim.VM
	Source  int64
	Target  int64
	Time    int64
	Success bool
}

// RoundSummary describes one evacuation round.
type RoundSummary struct {
	SourceHostID int64
	VMs          int
	Placed       int
	Unplaced     int
	Recalculate  time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithRNG sets the source-host selection RNG.
func WithRNG(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

// WithClock replaces the wall clock used for latency measurements.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithMetrics sets the metric set; the default discards everything.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the progress logger; the default is the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Controller) { c.log = logger }
}

// WithResultLog records outcomes into an existing log.
func WithResultLog(log *trace.ResultLog) Option {
	return func(c *Controller) { c.results = log }
}

// Controller is the migration experiment driver.
type Controller struct {
	engine Engine
	cfg    Config

	rng     *rand.Rand
	now     func() time.Time
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	results *trace.ResultLog

	phase Phase
	state State
}

// NewController creates a controller in PhaseInit.
func NewController(engine Engine, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		engine: engine,
		cfg:    cfg,
		now:    time.Now,
		phase:  PhaseInit,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = sim.NewPartitionedRNG(sim.NewSimulationKey(1)).ForSubsystem(sim.SubsystemEvacuation)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewNoop()
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.results == nil {
		c.results = trace.NewResultLog()
	}
	return c
}

// Arm marks the workload as submitted; the next clock tick starts the first round.
func (c *Controller) Arm() {
	if c.phase == PhaseInit {
		c.phase = PhaseAwaitingFirstTrigger
	}
}

// OnClockTick handles the engine's clock signal. Only the first tick after Arm does
// anything: it logs the initial layout and runs the first evacuation round.
func (c *Controller) OnClockTick(now int64) {
	if c.phase != PhaseAwaitingFirstTrigger || c.state.FirstTriggerDone {
		return
	}
	c.state.FirstTriggerDone = true
	c.phase = PhaseEvacuating

	c.log.Infof("##### First migration trigger at t=%d", now)
	c.logLayout()
	c.runRound()
}

// OnMigrationFinish handles a completion signal and starts a new round once the
// in-flight count drops to the low-water mark.
func (c *Controller) OnMigrationFinish(ev MigrationFinish) {
	if c.state.InFlight > 0 {
		c.state.InFlight--
	} else {
		c.log.Warnf("Completion for VM %d with no migration in flight", ev.VM.ID)
	}
	c.metrics.InFlight.Update(float64(c.state.InFlight))

	if ev.Success {
		c.metrics.Migrations.Inc(1)
		c.log.Debugf("VM %d migrated from Host %d to Host %d at t=%d", ev.VM.ID, ev.Source, ev.Target, ev.Time)
	} else {
		c.state.Failures++
		c.metrics.MigrationsFail.Inc(1)
		c.log.Warnf("Migration of VM %d from Host %d to Host %d failed at t=%d", ev.VM.ID, ev.Source, ev.Target, ev.Time)
	}
	c.results.RecordCompletion(trace.CompletionRecord{
		VMID:         ev.VM.ID,
		SourceHostID: ev.Source,
		TargetHostID: ev.Target,
		Time:         ev.Time,
		Success:      ev.Success,
	})

	if c.state.InFlight <= c.cfg.LowWaterMark {
		c.runRound()
	}
}

func (c *Controller) runRound() {
	summary, err := c.EvacuateRound()
	switch {
	case errors.Is(err, ErrQuotaReached):
		c.log.Debugf("Attempt quota of %d reached, no new round", c.cfg.MinAttempts)
	case errors.Is(err, ErrNoEvacuationCandidate):
		c.log.Warnf("Skipping evacuation round: %v", err)
	case err == nil:
		c.log.Infof("##### Round on Host %d finished: %d VMs, %d placed, %d unplaced",
			summary.SourceHostID, summary.VMs, summary.Placed, summary.Unplaced)
	}
}

// EvacuateRound tries to move every VM off one randomly chosen populated host.
// Returns ErrQuotaReached once Attempts >= MinAttempts and ErrNoEvacuationCandidate when
// no host has VMs; neither records anything.
func (c *Controller) EvacuateRound() (RoundSummary, error) {
	if c.state.Attempts >= c.cfg.MinAttempts {
		return RoundSummary{}, ErrQuotaReached
	}
	hosts := c.engine.Hosts()
	source, err := c.pickSource(hosts)
	if err != nil {
		c.metrics.NoCandidate.Inc(1)
		return RoundSummary{}, err
	}
	c.metrics.Rounds.Inc(1)

	vms := source.VMs()
	summary := RoundSummary{SourceHostID: source.ID, VMs: len(vms)}
	c.log.Infof("#>>> Migration command received to migrate VMs in Host %d <<<", source.ID)

	policy := c.engine.Policy()
	var amortizedMs float64
	if r, ok := policy.(sim.Recalculator); ok {
		start := c.now()
		r.Recalculate(source, hosts)
		summary.Recalculate = c.now().Sub(start)
		c.metrics.RecalculateLatency.Record(summary.Recalculate)
		amortizedMs = durationMs(summary.Recalculate) / float64(len(vms))
	}
	c.log.Infof("##### VMs to migrate: %d", len(vms))
	c.log.Infof("##### Pre-processing time per VM: %g ms", amortizedMs)

	for _, vm := range vms {
		start := c.now()
		target, ok := policy.FindHostForVM(vm, hosts)
		latencyMs := durationMs(c.now().Sub(start)) + amortizedMs
		c.state.Attempts++
		c.metrics.Attempts.Inc(1)
		c.metrics.DecisionLatency.Record(msDuration(latencyMs))

		if !ok {
			summary.Unplaced++
			c.metrics.PlacementsFail.Inc(1)
			c.log.Infof("!!!!! No suitable host found for VM %d", vm.ID)
			c.results.RecordOutcome(trace.OutcomeRecord{
				VMID:              vm.ID,
				DecisionLatencyMs: latencyMs,
				SourceHostID:      source.ID,
				TargetHostID:      trace.NoHost,
			})
			continue
		}

		summary.Placed++
		c.metrics.Placements.Inc(1)
		c.results.RecordOutcome(trace.OutcomeRecord{
			VMID:               vm.ID,
			DecisionLatencyMs:  latencyMs,
			Allocated:          true,
			SourceHostID:       source.ID,
			TargetHostID:       target.ID,
			MigrationSucceeded: true,
		})
		c.log.Infof(">>>> Migrating VM %d from Host %d to Host %d", vm.ID, source.ID, target.ID)
		c.engine.RequestMigration(vm, target)
		c.state.InFlight++
	}
	c.metrics.InFlight.Update(float64(c.state.InFlight))
	return summary, nil
}

func (c *Controller) pickSource(hosts []*sim.Host) (*sim.Host, error) {
	var populated []*sim.Host
	for _, h := range hosts {
		if h.NumVMs() > 0 {
			populated = append(populated, h)
		}
	}
	if len(populated) == 0 {
		return nil, ErrNoEvacuationCandidate
	}
	return populated[c.rng.Intn(len(populated))], nil
}

func (c *Controller) logLayout() {
	for _, h := range c.engine.Hosts() {
		c.log.Infof("Host %d: %d VMs %v, used [%s] of [%s]", h.ID, h.NumVMs(), h.VMIDs(), h.Used, h.Capacity)
	}
}

// Phase returns the lifecycle position.
func (c *Controller) Phase() Phase { return c.phase }

// State returns a copy of the bookkeeping counters.
func (c *Controller) State() State { return c.state }

// Results returns the result log the controller records into.
func (c *Controller) Results() *trace.ResultLog { return c.results }

// Summary returns the total placement attempts and migration failures.
func (c *Controller) Summary() (attempts, failures int) {
	return c.state.Attempts, c.state.Failures
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
