package datacenter

import "github.com/lilRaptor99/vm-allocation-simulation/sim"

// EventType names a kind of datacenter event.
type EventType string

const (
	EventTypeSubmission      EventType = "Submission"
	EventTypeMigrationFinish EventType = "MigrationFinish"
	EventTypeClockTick       EventType = "ClockTick"
)

// EventTypePriority defines ordering for simultaneous events
// Lower values are processed first
var EventTypePriority = map[EventType]int{
	EventTypeSubmission:      1,
	EventTypeMigrationFinish: 2,
	EventTypeClockTick:       3,
}

// Event represents a simulation event
type Event interface {
	Timestamp() int64
	EventID() uint64
	Type() EventType
	Execute(dc *Datacenter)
}

// BaseEvent provides common event fields
type BaseEvent struct {
	timestamp int64
	eventID   uint64
	eventType EventType
}

func (e *BaseEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *BaseEvent) EventID() uint64 {
	return e.eventID
}

func (e *BaseEvent) Type() EventType {
	return e.eventType
}

// SubmissionEvent places a batch of VMs through the placement policy.
type SubmissionEvent struct {
	BaseEvent
	VMs []*sim.VM
}

func NewSubmissionEvent(timestamp int64, vms []*sim.VM, id uint64) *SubmissionEvent {
	return &SubmissionEvent{
		BaseEvent: BaseEvent{timestamp: timestamp, eventID: id, eventType: EventTypeSubmission},
		VMs:       vms,
	}
}

func (e *SubmissionEvent) Execute(dc *Datacenter) {
	dc.handleSubmission(e)
}

// ClockTickEvent only advances the clock; listeners fire on the advance.
type ClockTickEvent struct {
	BaseEvent
}

func NewClockTickEvent(timestamp int64, id uint64) *ClockTickEvent {
	return &ClockTickEvent{
		BaseEvent: BaseEvent{timestamp: timestamp, eventID: id, eventType: EventTypeClockTick},
	}
}

func (e *ClockTickEvent) Execute(*Datacenter) {}

// MigrationFinishEvent completes (or reports the rejection of) a requested migration.
// Source is nil when the VM was not placed anywhere.
type MigrationFinishEvent struct {
	BaseEvent
	VM      *sim.VM
	Source  *sim.Host
	Target  *sim.Host
	Success bool
}

func NewMigrationFinishEvent(timestamp int64, vm *sim.VM, source, target *sim.Host, success bool, id uint64) *MigrationFinishEvent {
	return &MigrationFinishEvent{
		BaseEvent: BaseEvent{timestamp: timestamp, eventID: id, eventType: EventTypeMigrationFinish},
		VM:        vm,
		Source:    source,
		Target:    target,
		Success:   success,
	}
}

func (e *MigrationFinishEvent) Execute(dc *Datacenter) {
	dc.handleMigrationFinish(e)
}
