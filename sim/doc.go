// Package sim provides the core types of the VM placement and migration simulator.
//
// # Reading Guide
//
// Start with these files to understand the model:
//   - resources.go: the four-dimensional capacity/demand vector (RAM, cores, bandwidth, power)
//   - host.go: host ledgers (allocate, deallocate, in-flight reservations) and assignments
//   - policy.go: the PlacementPolicy interface and the policy registry
//
// # Architecture
//
// The sim package defines interfaces and value types; implementations live in
// sub-packages:
//   - sim/binpack/: 4D bin-packing solver and the COLD/PLANNED placement policy
//   - sim/datacenter/: event-driven engine that places VMs and executes live migrations
//   - sim/migration/: evacuation controller with attempt quota and low-water throttle
//   - sim/workload/: seeded host and VM fleet generation
//   - sim/trace/: per-attempt outcome and completion records, CSV export
//   - sim/metrics/: tally metrics for the controller
//   - sim/experiment/: wiring of one complete run
//
// Sub-packages register their implementations via init() functions that set
// package-level factory variables (NewBinPackingPolicyFunc).
//
// # Key Interfaces
//
//   - PlacementPolicy: choose a host for a VM from the live host list
//   - Recalculator: optional per-round planning hook, implemented by the bin-packing policy
//
// Baseline policies (first-fit, best-fit, simple, round-robin) live in policy_baseline.go.
package sim
