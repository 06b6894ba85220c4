package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ExperimentConfig is the complete configuration of one simulation run.
// Loadable from YAML via LoadExperimentConfig, or layered by the CLI through viper
// (hence the mapstructure tags).
type ExperimentConfig struct {
	Policy     string           `yaml:"policy" mapstructure:"policy"`
	Seed       int64            `yaml:"seed" mapstructure:"seed"`
	OutputDir  string           `yaml:"output_dir" mapstructure:"output_dir"` // "" = don't export
	Fleet      FleetConfig      `yaml:"fleet" mapstructure:"fleet"`
	Controller ControllerConfig `yaml:"controller" mapstructure:"controller"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	BinPack    BinPackConfig    `yaml:"binpack" mapstructure:"binpack"`
}

// FleetConfig shapes the generated hosts and VMs.
type FleetConfig struct {
	Hosts        int       `yaml:"hosts" mapstructure:"hosts"`
	VMsPerHost   int       `yaml:"vms_per_host" mapstructure:"vms_per_host"`
	HostCapacity Resources `yaml:"host_capacity" mapstructure:"host_capacity"`
	VMCoresMin   int64     `yaml:"vm_cores_min" mapstructure:"vm_cores_min"`
	VMCoresMax   int64     `yaml:"vm_cores_max" mapstructure:"vm_cores_max"` // inclusive
	VMRAMMin     int64     `yaml:"vm_ram_min_mb" mapstructure:"vm_ram_min_mb"`
	VMRAMMax     int64     `yaml:"vm_ram_max_mb" mapstructure:"vm_ram_max_mb"` // exclusive
	VMBW         int64     `yaml:"vm_bw_mbps" mapstructure:"vm_bw_mbps"`
	VMPower      float64   `yaml:"vm_power_watts" mapstructure:"vm_power_watts"`
}

// ControllerConfig holds the migration controller's quota and throttle.
type ControllerConfig struct {
	MinAttempts  int `yaml:"min_attempts" mapstructure:"min_attempts"`
	LowWaterMark int `yaml:"low_water_mark" mapstructure:"low_water_mark"`
}

// EngineConfig holds the in-process datacenter engine's timing parameters.
// All times are in ticks (microseconds).
type EngineConfig struct {
	Horizon                    int64   `yaml:"horizon" mapstructure:"horizon"` // 0 = run until the queue drains
	FirstTickDelay             int64   `yaml:"first_tick_delay" mapstructure:"first_tick_delay"`
	MigrationBandwidthFraction float64 `yaml:"migration_bandwidth_fraction" mapstructure:"migration_bandwidth_fraction"`
}

// BinPackConfig tunes the 4D bin-packing solver.
type BinPackConfig struct {
	// Prune enables the branch-and-bound cut. The returned assignment is identical
	// with and without it; only the number of explored leaves changes.
	Prune bool `yaml:"prune" mapstructure:"prune"`
}

// DefaultExperimentConfig returns the configuration of the reference experiment
// series: 64-core/128 GB/10 Gbps hosts, three VMs per host, 100 placement attempts.
func DefaultExperimentConfig() ExperimentConfig {
	return ExperimentConfig{
		Policy: PolicyBinPacking,
		Seed:   1,
		Fleet: FleetConfig{
			Hosts:        5,
			VMsPerHost:   3,
			HostCapacity: Resources{RAM: 128_000, Cores: 64, BW: 10_000, Power: 500},
			VMCoresMin:   1,
			VMCoresMax:   16,
			VMRAMMin:     1_000,
			VMRAMMax:     32_000,
			VMBW:         1_000,
		},
		Controller: ControllerConfig{
			MinAttempts:  100,
			LowWaterMark: 2,
		},
		Engine: EngineConfig{
			FirstTickDelay:             100_000,
			MigrationBandwidthFraction: 0.5,
		},
		BinPack: BinPackConfig{Prune: true},
	}
}

// LoadExperimentConfig reads a YAML experiment file on top of DefaultExperimentConfig.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment config: %w", err)
	}
	cfg := DefaultExperimentConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing experiment config: %w", err)
	}
	return &cfg, nil
}

// Validate checks policy names and parameter ranges.
func (c *ExperimentConfig) Validate() error {
	if !ValidPolicies[c.Policy] {
		return fmt.Errorf("%w %q (valid: %v)", ErrUnknownPolicy, c.Policy, PolicyNames())
	}
	f := c.Fleet
	if f.Hosts < 1 {
		return fmt.Errorf("fleet.hosts must be >= 1, got %d", f.Hosts)
	}
	if f.VMsPerHost < 0 {
		return fmt.Errorf("fleet.vms_per_host must be non-negative, got %d", f.VMsPerHost)
	}
	capacity := f.HostCapacity
	if capacity.RAM <= 0 || capacity.Cores <= 0 || capacity.BW <= 0 {
		return fmt.Errorf("fleet.host_capacity must be positive on ram, cores and bw, got [%s]", capacity)
	}
	if capacity.Power < 0 || math.IsNaN(capacity.Power) || math.IsInf(capacity.Power, 0) {
		return fmt.Errorf("fleet.host_capacity.power_watts must be a finite non-negative number, got %f", capacity.Power)
	}
	if f.VMCoresMin < 1 || f.VMCoresMax < f.VMCoresMin {
		return fmt.Errorf("fleet vm cores range [%d,%d] is invalid", f.VMCoresMin, f.VMCoresMax)
	}
	if f.VMRAMMin < 1 || f.VMRAMMax <= f.VMRAMMin {
		return fmt.Errorf("fleet vm ram range [%d,%d) is invalid", f.VMRAMMin, f.VMRAMMax)
	}
	if f.VMBW < 0 {
		return fmt.Errorf("fleet.vm_bw_mbps must be non-negative, got %d", f.VMBW)
	}
	if f.VMPower < 0 || math.IsNaN(f.VMPower) || math.IsInf(f.VMPower, 0) {
		return fmt.Errorf("fleet.vm_power_watts must be a finite non-negative number, got %f", f.VMPower)
	}
	if c.Controller.MinAttempts < 1 {
		return fmt.Errorf("controller.min_attempts must be >= 1, got %d", c.Controller.MinAttempts)
	}
	if c.Controller.LowWaterMark < 0 {
		return fmt.Errorf("controller.low_water_mark must be non-negative, got %d", c.Controller.LowWaterMark)
	}
	// a round evacuates at most one host's worth of VMs; a mark at or above that never throttles
	if c.Fleet.VMsPerHost > 0 && c.Controller.LowWaterMark >= c.Fleet.VMsPerHost {
		return fmt.Errorf("controller.low_water_mark must be below fleet.vms_per_host (%d), got %d",
			c.Fleet.VMsPerHost, c.Controller.LowWaterMark)
	}
	if c.Engine.Horizon < 0 {
		return fmt.Errorf("engine.horizon must be non-negative, got %d", c.Engine.Horizon)
	}
	if c.Engine.FirstTickDelay < 1 {
		return fmt.Errorf("engine.first_tick_delay must be >= 1 tick, got %d", c.Engine.FirstTickDelay)
	}
	if bf := c.Engine.MigrationBandwidthFraction; !(bf > 0 && bf <= 1) {
		return fmt.Errorf("engine.migration_bandwidth_fraction must be in (0,1], got %f", bf)
	}
	return nil
}
