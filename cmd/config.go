package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
)

const defaultOutputDir = "results"

// flagKeys maps experiment flags onto their config keys. Flags absent from a command's
// flag set are skipped when binding.
var flagKeys = map[string]string{
	"policy":             "policy",
	"seed":               "seed",
	"hosts":              "fleet.hosts",
	"vms-per-host":       "fleet.vms_per_host",
	"min-attempts":       "controller.min_attempts",
	"low-water-mark":     "controller.low_water_mark",
	"horizon":            "engine.horizon",
	"bandwidth-fraction": "engine.migration_bandwidth_fraction",
	"prune":              "binpack.prune",
	"output-dir":         "output_dir",
}

// addExperimentFlags registers the flags shared by run and sweep.
func addExperimentFlags(fs *pflag.FlagSet) {
	d := sim.DefaultExperimentConfig()
	fs.Int("vms-per-host", d.Fleet.VMsPerHost, "VMs generated per host")
	fs.Int("min-attempts", d.Controller.MinAttempts, "Placement attempts after which no new evacuation round starts")
	fs.Int("low-water-mark", d.Controller.LowWaterMark, "In-flight migration count at or below which the next round starts")
	fs.Int64("horizon", d.Engine.Horizon, "Simulation horizon in ticks (0 = run until idle)")
	fs.Float64("bandwidth-fraction", d.Engine.MigrationBandwidthFraction, "Share of link bandwidth used by a live migration")
	fs.Bool("prune", d.BinPack.Prune, "Branch-and-bound pruning in the 4D bin-packing solver")
	fs.String("output-dir", defaultOutputDir, "Results directory (empty = don't export)")
}

// loadExperimentConfig layers defaults, the config file, VMSIM_* environment variables
// and explicitly set flags, in increasing precedence.
func loadExperimentConfig(configPath string, fs *pflag.FlagSet) (*sim.ExperimentConfig, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("vmsim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VMSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	var cfg sim.ExperimentConfig
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := sim.DefaultExperimentConfig()

	v.SetDefault("policy", d.Policy)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("output_dir", defaultOutputDir)

	// Fleet
	v.SetDefault("fleet.hosts", d.Fleet.Hosts)
	v.SetDefault("fleet.vms_per_host", d.Fleet.VMsPerHost)
	v.SetDefault("fleet.host_capacity.ram_mb", d.Fleet.HostCapacity.RAM)
	v.SetDefault("fleet.host_capacity.cores", d.Fleet.HostCapacity.Cores)
	v.SetDefault("fleet.host_capacity.bw_mbps", d.Fleet.HostCapacity.BW)
	v.SetDefault("fleet.host_capacity.power_watts", d.Fleet.HostCapacity.Power)
	v.SetDefault("fleet.vm_cores_min", d.Fleet.VMCoresMin)
	v.SetDefault("fleet.vm_cores_max", d.Fleet.VMCoresMax)
	v.SetDefault("fleet.vm_ram_min_mb", d.Fleet.VMRAMMin)
	v.SetDefault("fleet.vm_ram_max_mb", d.Fleet.VMRAMMax)
	v.SetDefault("fleet.vm_bw_mbps", d.Fleet.VMBW)
	v.SetDefault("fleet.vm_power_watts", d.Fleet.VMPower)

	// Controller
	v.SetDefault("controller.min_attempts", d.Controller.MinAttempts)
	v.SetDefault("controller.low_water_mark", d.Controller.LowWaterMark)

	// Engine
	v.SetDefault("engine.horizon", d.Engine.Horizon)
	v.SetDefault("engine.first_tick_delay", d.Engine.FirstTickDelay)
	v.SetDefault("engine.migration_bandwidth_fraction", d.Engine.MigrationBandwidthFraction)

	// Bin packing
	v.SetDefault("binpack.prune", d.BinPack.Prune)
}
