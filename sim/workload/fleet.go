// Package workload generates the seeded host and VM fleet of an experiment.
package workload

import (
	"math/rand"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
)

// Fleet is a generated set of identical idle hosts and unplaced VMs.
type Fleet struct {
	Hosts []*sim.Host
	VMs   []*sim.VM
}

// GenerateFleet creates cfg.Hosts identical hosts and cfg.Hosts*cfg.VMsPerHost VMs.
// Deterministic given the same config and RNG state. IDs are sequential from 0.
// Each VM draws cores uniformly in [VMCoresMin, VMCoresMax] and then RAM uniformly in
// [VMRAMMin, VMRAMMax); bandwidth and power are fixed.
func GenerateFleet(cfg sim.FleetConfig, rng *rand.Rand) Fleet {
	fleet := Fleet{
		Hosts: make([]*sim.Host, cfg.Hosts),
		VMs:   make([]*sim.VM, cfg.Hosts*cfg.VMsPerHost),
	}
	for i := range fleet.Hosts {
		fleet.Hosts[i] = sim.NewHost(int64(i), cfg.HostCapacity)
	}
	for i := range fleet.VMs {
		cores := cfg.VMCoresMin + rng.Int63n(cfg.VMCoresMax-cfg.VMCoresMin+1)
		ram := cfg.VMRAMMin + int64(rng.Float64()*float64(cfg.VMRAMMax-cfg.VMRAMMin))
		fleet.VMs[i] = sim.NewVM(int64(i), sim.Resources{
			RAM:   ram,
			Cores: cores,
			BW:    cfg.VMBW,
			Power: cfg.VMPower,
		})
	}
	return fleet
}

// TotalDemand sums the demand of all VMs in the fleet.
func (f Fleet) TotalDemand() sim.Resources {
	var total sim.Resources
	for _, vm := range f.VMs {
		total = total.Add(vm.Demand)
	}
	return total
}
