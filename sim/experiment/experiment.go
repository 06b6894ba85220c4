// Package experiment wires one simulation run: fleet generation, the datacenter engine,
// the placement policy and the migration controller.
package experiment

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
	_ "github.com/lilRaptor99/vm-allocation-simulation/sim/binpack" // registers the bin-packing policy
	"github.com/lilRaptor99/vm-allocation-simulation/sim/datacenter"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/metrics"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/migration"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/trace"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/workload"
)

// Result is the outcome of one run.
type Result struct {
	Config   sim.ExperimentConfig
	Log      *trace.ResultLog
	Summary  *trace.Summary
	State    migration.State
	EndTime  int64
	Hosts    []*sim.Host // final ledgers
	VMs      int
	Unplaced int // VMs that initial placement could not host
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger logrus.FieldLogger
	scope  tally.Scope
}

// WithLogger sets the logger used by the engine, the controller and the placement policy.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithScope sets the tally scope the controller metrics are rooted in.
func WithScope(scope tally.Scope) Option {
	return func(o *options) { o.scope = scope }
}

// Run executes one experiment. Only configuration problems produce an error; placement
// and migration failures are recorded in the result.
func Run(cfg sim.ExperimentConfig, opts ...Option) (*Result, error) {
	o := options{logger: logrus.StandardLogger(), scope: tally.NoopScope}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment config: %w", err)
	}
	policy, err := sim.NewPlacementPolicy(cfg.Policy, cfg.BinPack, sim.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	fleet := workload.GenerateFleet(cfg.Fleet, rng.ForSubsystem(sim.SubsystemWorkload))
	o.logger.Infof("Starting simulation with %d Hosts with %d VMs for allocation algorithm: %s. Random seed: %d",
		len(fleet.Hosts), len(fleet.VMs), policy.Name(), cfg.Seed)

	dc := datacenter.New(fleet.Hosts, policy, cfg.Engine, datacenter.WithLogger(o.logger))
	log := trace.NewResultLog()
	ctrl := migration.NewController(dc, migration.ConfigFrom(cfg.Controller),
		migration.WithRNG(rng.ForSubsystem(sim.SubsystemEvacuation)),
		migration.WithMetrics(metrics.New(o.scope)),
		migration.WithLogger(o.logger),
		migration.WithResultLog(log),
	)
	dc.OnClockTick(ctrl.OnClockTick)
	dc.OnMigrationFinish(ctrl.OnMigrationFinish)

	dc.Submit(fleet.VMs)
	ctrl.Arm()
	end := dc.Run()

	attempts, failures := ctrl.Summary()
	o.logger.Infof("Simulation finished with %d VM migrations. Of which %d migrations failed!", attempts, failures)

	return &Result{
		Config:   cfg,
		Log:      log,
		Summary:  trace.Summarize(log),
		State:    ctrl.State(),
		EndTime:  end,
		Hosts:    fleet.Hosts,
		VMs:      len(fleet.VMs),
		Unplaced: len(dc.Unplaced()),
	}, nil
}

// SummaryLine is the final progress line of a run.
func (r *Result) SummaryLine() string {
	return fmt.Sprintf("Simulation finished with %d VM migrations. Of which %d migrations failed!",
		r.State.Attempts, r.State.Failures)
}

// Export writes the run's files to <outputDir>/<policy>/.
func (r *Result) Export(outputDir string) (trace.RunFiles, error) {
	header := &trace.RunHeader{
		Policy:  r.Config.Policy,
		Hosts:   len(r.Hosts),
		VMs:     r.VMs,
		Seed:    r.Config.Seed,
		EndTime: r.EndTime,
		Summary: r.Summary,
	}
	return trace.ExportRun(filepath.Join(outputDir, r.Config.Policy), header, r.Log)
}
