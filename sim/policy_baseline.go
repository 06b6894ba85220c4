package sim

// FirstFitRing is a round-robin first-fit scan over a host ring.
//
// Each call starts at a persisted cursor, tries at most len(hosts) hosts and returns the
// first one that can fit the VM. The cursor advances past every host tried, matched or
// not, so consecutive calls make progress around the ring and a failed scan leaves the
// cursor where it started.
type FirstFitRing struct {
	cursor int
}

// Next returns the next host on the ring that can fit vm.
func (r *FirstFitRing) Next(vm *VM, hosts []*Host) (*Host, bool) {
	n := len(hosts)
	if n == 0 {
		return nil, false
	}
	for tries := 0; tries < n; tries++ {
		host := hosts[r.cursor%n]
		r.cursor = (r.cursor + 1) % n
		if host.CanFit(vm) {
			return host, true
		}
	}
	return nil, false
}

// Cursor returns the index the next scan starts from.
func (r *FirstFitRing) Cursor() int {
	return r.cursor
}

// FirstFit places a VM on the first host, in engine order, that can fit it.
type FirstFit struct{}

func (p *FirstFit) Name() string { return PolicyFirstFit }

// FindHostForVM implements PlacementPolicy for FirstFit.
func (p *FirstFit) FindHostForVM(vm *VM, hosts []*Host) (*Host, bool) {
	for _, h := range hosts {
		if h.CanFit(vm) {
			return h, true
		}
	}
	return nil, false
}

// BestFit places a VM on the suitable host with the most busy cores.
// Ties broken by first occurrence in engine order.
type BestFit struct{}

func (p *BestFit) Name() string { return PolicyBestFit }

// FindHostForVM implements PlacementPolicy for BestFit.
func (p *BestFit) FindHostForVM(vm *VM, hosts []*Host) (*Host, bool) {
	var best *Host
	for _, h := range hosts {
		if !h.CanFit(vm) {
			continue
		}
		if best == nil || busyCores(h) > busyCores(best) {
			best = h
		}
	}
	return best, best != nil
}

// Simple places a VM on the suitable host with the fewest busy cores (worst fit).
// Ties broken by first occurrence in engine order.
type Simple struct{}

func (p *Simple) Name() string { return PolicySimple }

// FindHostForVM implements PlacementPolicy for Simple.
func (p *Simple) FindHostForVM(vm *VM, hosts []*Host) (*Host, bool) {
	var best *Host
	for _, h := range hosts {
		if !h.CanFit(vm) {
			continue
		}
		if best == nil || busyCores(h) < busyCores(best) {
			best = h
		}
	}
	return best, best != nil
}

// RoundRobin places each VM on the next suitable host after the previously tried one.
type RoundRobin struct {
	ring FirstFitRing
}

func (p *RoundRobin) Name() string { return PolicyRoundRobin }

// FindHostForVM implements PlacementPolicy for RoundRobin.
func (p *RoundRobin) FindHostForVM(vm *VM, hosts []*Host) (*Host, bool) {
	return p.ring.Next(vm, hosts)
}

func busyCores(h *Host) int64 {
	return h.Used.Cores + h.Reserved.Cores
}
