// Package binpack implements the 4-dimensional bin-packing placement policy: an exhaustive
// backtracking search for the reassignment of evicted VMs that uses the fewest distinct
// destination hosts, wrapped in a placement policy with a round-robin first-fit cold start.
package binpack

import (
	"math"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
)

// Result is the outcome of one Solve call.
type Result struct {
	Assignment sim.Assignment // VM ID -> host ID; empty when no full placement exists
	HostsUsed  int            // distinct destination hosts in Assignment; -1 when none exists
	Placed     int            // VMs the search had to place
	Leaves     int            // full placements examined
}

// Option configures a Solver.
type Option func(*Solver)

// WithPruning enables the branch-and-bound cut: a partial assignment that already touches
// as many distinct hosts as the best full assignment cannot yield a strictly better one,
// so its subtree is skipped. The returned Assignment is the same either way.
func WithPruning(enabled bool) Option {
	return func(s *Solver) { s.prune = enabled }
}

// Solver searches for the minimal-host assignment of the VMs that no candidate host
// currently holds.
//
// The solver works on private clones of the candidate ledgers; the hosts passed to
// NewSolver are never mutated.
type Solver struct {
	hosts   []*sim.Host
	pending []*sim.VM
	prune   bool

	current   sim.Assignment
	perHost   map[int64]int // newly placed VMs per host in current
	best      sim.Assignment
	bestCount int
	leaves    int
}

// NewSolver snapshots hosts and selects, in input order, the VMs of vms that are not
// allocated on any of them.
func NewSolver(hosts []*sim.Host, vms []*sim.VM, opts ...Option) *Solver {
	s := &Solver{hosts: make([]*sim.Host, len(hosts))}
	allocated := make(map[int64]bool)
	for i, h := range hosts {
		s.hosts[i] = h.Clone()
		for _, id := range h.VMIDs() {
			allocated[id] = true
		}
	}
	for _, vm := range vms {
		if !allocated[vm.ID] {
			s.pending = append(s.pending, vm)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pending returns the VMs the search places, in search order.
func (s *Solver) Pending() []*sim.VM {
	return append([]*sim.VM(nil), s.pending...)
}

// Solve runs the search. Repeated calls on the same Solver return identical results.
func (s *Solver) Solve() Result {
	s.current = make(sim.Assignment, len(s.pending))
	s.perHost = make(map[int64]int)
	s.best = sim.Assignment{}
	s.bestCount = math.MaxInt
	s.leaves = 0

	s.search(0)

	used := s.bestCount
	if used == math.MaxInt {
		used = -1
	}
	return Result{
		Assignment: s.best,
		HostsUsed:  used,
		Placed:     len(s.pending),
		Leaves:     s.leaves,
	}
}

func (s *Solver) search(idx int) {
	if idx == len(s.pending) {
		s.leaves++
		// first assignment found at a given minimal count wins
		if used := len(s.perHost); used < s.bestCount {
			s.bestCount = used
			s.best = s.current.Clone()
		}
		return
	}
	if s.prune && len(s.perHost) >= s.bestCount {
		return
	}

	vm := s.pending[idx]
	for _, host := range s.hosts {
		if host.CanFit(vm) {
			s.try(idx, vm, host)
		}
	}
}

// try places vm on host for the duration of the recursive call. The release runs on
// every return path so sibling branches start from a clean ledger.
func (s *Solver) try(idx int, vm *sim.VM, host *sim.Host) {
	s.place(vm, host)
	defer s.release(vm, host)
	s.search(idx + 1)
}

func (s *Solver) place(vm *sim.VM, host *sim.Host) {
	host.Allocate(vm)
	s.current[vm.ID] = host.ID
	s.perHost[host.ID]++
}

func (s *Solver) release(vm *sim.VM, host *sim.Host) {
	host.Deallocate(vm)
	delete(s.current, vm.ID)
	if s.perHost[host.ID]--; s.perHost[host.ID] == 0 {
		delete(s.perHost, host.ID)
	}
}
