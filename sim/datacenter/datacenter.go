// Package datacenter is the in-process discrete-event engine the migration controller
// runs against: live host ledgers, initial VM placement, and timed migrations.
package datacenter

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/migration"
)

// TicksPerSecond converts simulated seconds to clock ticks (microseconds).
const TicksPerSecond = 1_000_000

// noHost is reported as the source of a migration for a VM that is not placed.
const noHost int64 = -1

// Option configures a Datacenter.
type Option func(*Datacenter)

// WithLogger sets the progress logger; the default is the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(dc *Datacenter) { dc.log = logger }
}

// Datacenter owns the live ledgers and the event queue of one run.
// Single-threaded: all listeners run inside Run.
type Datacenter struct {
	cfg    sim.EngineConfig
	hosts  []*sim.Host
	policy sim.PlacementPolicy
	log    logrus.FieldLogger

	queue  *EventHeap
	clock  int64
	hasRun bool

	hostOf    map[int64]*sim.Host // VM ID -> host holding it
	migrating map[int64]bool
	unplaced  []*sim.VM

	tickListeners   []func(now int64)
	finishListeners []func(ev migration.MigrationFinish)
}

var _ migration.Engine = (*Datacenter)(nil)

// New creates a datacenter over hosts with the clock at 0.
func New(hosts []*sim.Host, policy sim.PlacementPolicy, cfg sim.EngineConfig, opts ...Option) *Datacenter {
	dc := &Datacenter{
		cfg:       cfg,
		hosts:     hosts,
		policy:    policy,
		queue:     NewEventHeap(),
		hostOf:    make(map[int64]*sim.Host),
		migrating: make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(dc)
	}
	if dc.log == nil {
		dc.log = logrus.StandardLogger()
	}
	for _, h := range hosts {
		for _, vm := range h.VMs() {
			dc.hostOf[vm.ID] = h
		}
	}
	return dc
}

// Hosts returns the live host ledgers in engine order.
func (dc *Datacenter) Hosts() []*sim.Host { return dc.hosts }

// Policy returns the placement policy used for initial placement and migrations.
func (dc *Datacenter) Policy() sim.PlacementPolicy { return dc.policy }

// Now returns the current simulated time in ticks.
func (dc *Datacenter) Now() int64 { return dc.clock }

// Unplaced returns the submitted VMs that no host accepted.
func (dc *Datacenter) Unplaced() []*sim.VM {
	return append([]*sim.VM(nil), dc.unplaced...)
}

// HostOf returns the host currently holding the VM, or nil.
func (dc *Datacenter) HostOf(vmID int64) *sim.Host { return dc.hostOf[vmID] }

// OnClockTick registers fn to run every time the clock advances.
func (dc *Datacenter) OnClockTick(fn func(now int64)) {
	dc.tickListeners = append(dc.tickListeners, fn)
}

// OnMigrationFinish registers fn to run for every finished or rejected migration.
func (dc *Datacenter) OnMigrationFinish(fn func(ev migration.MigrationFinish)) {
	dc.finishListeners = append(dc.finishListeners, fn)
}

func (dc *Datacenter) newEventID() uint64 {
	return dc.queue.NextID()
}

// Submit schedules placement of vms at the current time, followed by a warm-up tick
// FirstTickDelay later.
func (dc *Datacenter) Submit(vms []*sim.VM) {
	dc.queue.Schedule(NewSubmissionEvent(dc.clock, vms, dc.newEventID()))
	dc.queue.Schedule(NewClockTickEvent(dc.clock+dc.cfg.FirstTickDelay, dc.newEventID()))
}

// RequestMigration starts moving vm to target. The outcome is always delivered later
// through the finish listeners: a rejected request finishes unsuccessfully at the
// current time.
func (dc *Datacenter) RequestMigration(vm *sim.VM, target *sim.Host) {
	source := dc.hostOf[vm.ID]
	switch {
	case source == nil:
		dc.log.Warnf("Migration of VM %d rejected: VM is not placed", vm.ID)
		dc.reject(vm, nil, target)
		return
	case dc.migrating[vm.ID]:
		dc.log.Warnf("Migration of VM %d rejected: already migrating", vm.ID)
		dc.reject(vm, source, target)
		return
	case source.ID == target.ID:
		dc.log.Warnf("Migration of VM %d rejected: already on Host %d", vm.ID, target.ID)
		dc.reject(vm, source, target)
		return
	case !target.CanFit(vm):
		dc.log.Warnf("Migration of VM %d rejected: Host %d cannot fit it", vm.ID, target.ID)
		dc.reject(vm, source, target)
		return
	}

	duration, ok := dc.migrationTicks(vm, source, target)
	if !ok {
		dc.log.Warnf("Migration of VM %d rejected: no bandwidth between Host %d and Host %d", vm.ID, source.ID, target.ID)
		dc.reject(vm, source, target)
		return
	}
	target.Reserve(vm)
	dc.migrating[vm.ID] = true
	dc.queue.Schedule(NewMigrationFinishEvent(dc.clock+duration, vm, source, target, true, dc.newEventID()))
}

func (dc *Datacenter) reject(vm *sim.VM, source, target *sim.Host) {
	dc.queue.Schedule(NewMigrationFinishEvent(dc.clock, vm, source, target, false, dc.newEventID()))
}

// migrationTicks is the time to copy the VM's memory over the slower of the two links,
// of which the migration may use MigrationBandwidthFraction. At least one tick.
func (dc *Datacenter) migrationTicks(vm *sim.VM, source, target *sim.Host) (int64, bool) {
	bw := float64(min(source.Capacity.BW, target.Capacity.BW)) * dc.cfg.MigrationBandwidthFraction
	if bw <= 0 {
		return 0, false
	}
	seconds := float64(vm.Demand.RAM) * 8 / bw
	return max(1, int64(math.Ceil(seconds*TicksPerSecond))), true
}

// Run processes events until the queue drains or the clock passes Horizon (when
// non-zero), and returns the final clock. Must be called once.
func (dc *Datacenter) Run() int64 {
	if dc.hasRun {
		panic("Datacenter.Run() called more than once")
	}
	dc.hasRun = true

	for dc.queue.Len() > 0 {
		ev := dc.queue.PopNext()
		if ev.Timestamp() > dc.clock {
			if dc.cfg.Horizon > 0 && ev.Timestamp() > dc.cfg.Horizon {
				dc.clock = dc.cfg.Horizon
				dc.log.Infof("Horizon %d reached with %d events pending", dc.cfg.Horizon, dc.queue.Len()+1)
				break
			}
			dc.clock = ev.Timestamp()
			for _, fn := range dc.tickListeners {
				fn(dc.clock)
			}
		}
		ev.Execute(dc)
	}
	return dc.clock
}

func (dc *Datacenter) handleSubmission(e *SubmissionEvent) {
	for _, vm := range e.VMs {
		host, ok := dc.policy.FindHostForVM(vm, dc.hosts)
		if !ok || !host.CanFit(vm) {
			dc.log.Warnf("VM %d creation failed: no suitable host", vm.ID)
			dc.unplaced = append(dc.unplaced, vm)
			continue
		}
		host.Allocate(vm)
		dc.hostOf[vm.ID] = host
		dc.log.Debugf("VM %d placed on Host %d", vm.ID, host.ID)
	}
}

func (dc *Datacenter) handleMigrationFinish(e *MigrationFinishEvent) {
	sourceID := noHost
	if e.Source != nil {
		sourceID = e.Source.ID
	}
	if e.Success {
		e.Source.Deallocate(e.VM)
		e.Target.CommitReservation(e.VM)
		dc.hostOf[e.VM.ID] = e.Target
		delete(dc.migrating, e.VM.ID)
	}
	ev := migration.MigrationFinish{
		VM:      e.VM,
		Source:  sourceID,
		Target:  e.Target.ID,
		Time:    dc.clock,
		Success: e.Success,
	}
	for _, fn := range dc.finishListeners {
		fn(ev)
	}
}
