package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
)

var (
	sweepPolicies        []string // Policies to compare
	sweepHostCounts      []int    // Datacenter sizes
	sweepSeeds           int      // Seeds 1..N per policy and size
	sweepBinPackMaxHosts int      // Largest datacenter the bin-packing policy is run on
	sweepParallel        int      // Concurrent runs
)

// sweepRun identifies one experiment of a sweep.
type sweepRun struct {
	Policy string
	Hosts  int
	Seed   int64
}

// planSweep expands policies × host counts × seeds, skipping bin-packing above maxBinPackHosts.
func planSweep(policies []string, hostCounts []int, seeds int, maxBinPackHosts int) []sweepRun {
	var runs []sweepRun
	for _, policy := range policies {
		for _, hosts := range hostCounts {
			if policy == sim.PolicyBinPacking && hosts > maxBinPackHosts {
				continue
			}
			for seed := 1; seed <= seeds; seed++ {
				runs = append(runs, sweepRun{Policy: policy, Hosts: hosts, Seed: int64(seed)})
			}
		}
	}
	return runs
}

// runSweep executes runs with at most parallel in flight. The first failing run cancels
// those not yet started. Summary lines are returned in plan order.
func runSweep(ctx context.Context, base sim.ExperimentConfig, runs []sweepRun, parallel int) ([]string, error) {
	lines := make([]string, len(runs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, r := range runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg := base
			cfg.Policy = r.Policy
			cfg.Fleet.Hosts = r.Hosts
			cfg.Seed = r.Seed
			logger := logrus.WithFields(logrus.Fields{
				"policy": r.Policy,
				"hosts":  r.Hosts,
				"seed":   r.Seed,
			})

			res, err := runExperiment(cfg, logger)
			if err != nil {
				return fmt.Errorf("%s hosts=%d seed=%d: %w", r.Policy, r.Hosts, r.Seed, err)
			}
			mu.Lock()
			lines[i] = fmt.Sprintf("%s hosts=%d seed=%d: %s", r.Policy, r.Hosts, r.Seed, res.SummaryLine())
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

// sweepCmd reproduces the full experiment series across policies, sizes and seeds
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run every policy over a range of datacenter sizes and seeds",
	Run: func(cmd *cobra.Command, args []string) {
		base, err := loadExperimentConfig(configPath, cmd.Flags())
		if err != nil {
			logrus.Fatalf("Loading configuration: %v", err)
		}
		for _, p := range sweepPolicies {
			if !sim.ValidPolicies[p] {
				logrus.Fatalf("Unknown policy %q (valid: %v)", p, sim.PolicyNames())
			}
		}
		if sweepParallel < 1 {
			logrus.Fatalf("--parallel must be >= 1, got %d", sweepParallel)
		}

		runs := planSweep(sweepPolicies, sweepHostCounts, sweepSeeds, sweepBinPackMaxHosts)
		logrus.Infof("Sweep of %d runs, %d at a time", len(runs), sweepParallel)

		lines, err := runSweep(cmd.Context(), *base, runs, sweepParallel)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		for _, line := range lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	},
}

func init() {
	sweepCmd.Flags().StringSliceVar(&sweepPolicies, "policies",
		[]string{sim.PolicyBestFit, sim.PolicyFirstFit, sim.PolicySimple, sim.PolicyRoundRobin, sim.PolicyBinPacking},
		"Policies to run")
	sweepCmd.Flags().IntSliceVar(&sweepHostCounts, "host-counts",
		[]int{5, 10, 20, 40, 80, 100, 200, 500, 1000}, "Datacenter sizes to run")
	sweepCmd.Flags().IntVar(&sweepSeeds, "seeds", 10, "Run seeds 1..N for every policy and size")
	sweepCmd.Flags().IntVar(&sweepBinPackMaxHosts, "binpack-max-hosts", 50, "Skip the bin-packing policy above this many hosts")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 1, "Concurrent runs (1 keeps latency measurements undistorted)")
	addExperimentFlags(sweepCmd.Flags())
	sweepCmd.Flags().DurationVar(&metricsInterval, "metrics-interval", 0, "Metrics reporting interval (0 = report once at exit)")
}
