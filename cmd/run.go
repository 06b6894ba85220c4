package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/experiment"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/metrics"
)

var metricsInterval time.Duration // tally reporting interval; 0 reports once at exit

// runCmd executes a single experiment using the layered configuration
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one placement and migration experiment",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadExperimentConfig(configPath, cmd.Flags())
		if err != nil {
			logrus.Fatalf("Loading configuration: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		startTime := time.Now()
		res, err := runExperiment(*cfg, logrus.StandardLogger())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Run took %s", time.Since(startTime))
		fmt.Fprintln(cmd.OutOrStdout(), res.SummaryLine())
	},
}

// runExperiment runs cfg with a logging metrics scope and exports the results when an
// output directory is configured.
func runExperiment(cfg sim.ExperimentConfig, logger logrus.FieldLogger) (*experiment.Result, error) {
	scope, closer := metrics.NewRootScope("vmsim", logger, logrus.DebugLevel, metricsInterval)
	defer closeQuietly(closer)

	res, err := experiment.Run(cfg, experiment.WithLogger(logger), experiment.WithScope(scope))
	if err != nil {
		return nil, err
	}
	if cfg.OutputDir == "" {
		return res, nil
	}
	files, err := res.Export(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("exporting results: %w", err)
	}
	logger.Infof("Results written to %s", files.Outcomes)
	return res, nil
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logrus.Warnf("closing metrics scope: %v", err)
	}
}

func init() {
	d := sim.DefaultExperimentConfig()
	runCmd.Flags().String("policy", d.Policy, fmt.Sprintf("Placement policy %v", sim.PolicyNames()))
	runCmd.Flags().Int64("seed", d.Seed, "Seed for fleet generation and source host selection")
	runCmd.Flags().Int("hosts", d.Fleet.Hosts, "Number of hosts in the datacenter")
	addExperimentFlags(runCmd.Flags())
	runCmd.Flags().DurationVar(&metricsInterval, "metrics-interval", 0, "Metrics reporting interval (0 = report once at exit)")
}
