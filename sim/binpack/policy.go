package binpack

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
)

// Phase is the policy's planning state.
type Phase int

const (
	// PhaseCold means no plan has been computed; placement uses round-robin first-fit.
	PhaseCold Phase = iota
	// PhasePlanned means a committed Assignment answers every lookup.
	PhasePlanned
)

func (p Phase) String() string {
	switch p {
	case PhaseCold:
		return "COLD"
	case PhasePlanned:
		return "PLANNED"
	default:
		return "UNKNOWN"
	}
}

// planState is the tagged state value: the plan is only meaningful in PhasePlanned.
type planState struct {
	phase Phase
	plan  sim.Assignment
}

// Policy is the 4D bin-packing placement policy.
//
// COLD -> PLANNED on Recalculate; PLANNED -> COLD only on Reset. Once planned, a VM
// missing from the plan has no host: there is no first-fit fallback.
type Policy struct {
	cfg   sim.BinPackConfig
	ring  sim.FirstFitRing
	state planState
	last  Result
	log   logrus.FieldLogger
}

var (
	_ sim.PlacementPolicy = (*Policy)(nil)
	_ sim.Recalculator    = (*Policy)(nil)
)

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithLogger routes the policy's planning output to logger.
func WithLogger(logger logrus.FieldLogger) PolicyOption {
	return func(p *Policy) { p.log = logger }
}

// NewPolicy creates a bin-packing policy in PhaseCold.
func NewPolicy(cfg sim.BinPackConfig, opts ...PolicyOption) *Policy {
	p := &Policy{cfg: cfg, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Policy) Name() string { return sim.PolicyBinPacking }

// FindHostForVM implements sim.PlacementPolicy.
func (p *Policy) FindHostForVM(vm *sim.VM, hosts []*sim.Host) (*sim.Host, bool) {
	if p.state.phase == PhaseCold {
		return p.ring.Next(vm, hosts)
	}

	hostID, ok := p.state.plan[vm.ID]
	if !ok {
		return nil, false
	}
	host := sim.HostByID(hosts, hostID)
	if host == nil {
		return nil, false
	}
	if !host.CanFit(vm) {
		// live ledger drifted from the snapshot the plan was computed on
		p.log.Debugf("planned host %d can no longer fit VM %d", hostID, vm.ID)
		return nil, false
	}
	return host, true
}

// Recalculate plans the best global repacking for the case where every VM on source
// must leave. Candidates are all other hosts with their live allocations; the VMs to
// place are the ones currently on source.
func (p *Policy) Recalculate(source *sim.Host, hosts []*sim.Host) {
	candidates := make([]*sim.Host, 0, len(hosts))
	var vms []*sim.VM
	for _, h := range hosts {
		if h.ID == source.ID {
			continue
		}
		candidates = append(candidates, h)
		vms = append(vms, h.VMs()...)
	}
	vms = append(vms, source.VMs()...)

	result := NewSolver(candidates, vms, WithPruning(p.cfg.Prune)).Solve()
	p.state = planState{phase: PhasePlanned, plan: result.Assignment}
	p.last = result

	p.log.Infof("Optimal new VM allocation: %d of %d VMs placed, additional hosts used: %d (%d leaves)",
		len(result.Assignment), result.Placed, result.HostsUsed, result.Leaves)
	ids := make([]int64, 0, len(result.Assignment))
	for id := range result.Assignment {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p.log.Debugf("VM %d allocated to Host %d", id, result.Assignment[id])
	}
}

// Reset discards the plan and returns to PhaseCold.
func (p *Policy) Reset() {
	p.state = planState{phase: PhaseCold}
}

// Phase returns the current planning phase.
func (p *Policy) Phase() Phase {
	return p.state.phase
}

// Plan returns a copy of the committed plan, nil in PhaseCold.
func (p *Policy) Plan() sim.Assignment {
	if p.state.phase != PhasePlanned {
		return nil
	}
	return p.state.plan.Clone()
}

// LastResult returns the statistics of the most recent Recalculate.
func (p *Policy) LastResult() Result {
	return p.last
}
