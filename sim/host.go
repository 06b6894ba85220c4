package sim

import (
	"fmt"
	"strings"
)

// VM is a workload unit with a four-dimensional resource demand.
// Treated as immutable once constructed.
type VM struct {
	ID     int64
	Demand Resources
}

// NewVM creates a VM with the given identity and demand.
func NewVM(id int64, demand Resources) *VM {
	return &VM{ID: id, Demand: demand}
}

// Host is the resource ledger of one simulated machine.
//
// Used tracks the demand of VMs allocated on the host; Reserved tracks the demand of VMs
// migrating in that have not committed yet. Remaining capacity accounts for both, so
// Used+Reserved never exceeds Capacity as long as callers check CanFit before Allocate
// or Reserve. The ledger itself does not validate.
//
// Used is always the sum of the allocated demands taken in allocation order, and Reserved
// the same over the reservations. Removals re-sum instead of subtracting, so power (a
// float) comes back bit-for-bit after any allocate/deallocate sequence.
type Host struct {
	ID       int64
	Capacity Resources
	Used     Resources
	Reserved Resources

	vms      []*VM // allocated, insertion order
	incoming []*VM // reserved for in-flight migrations
}

// NewHost creates an idle host with the given capacity.
func NewHost(id int64, capacity Resources) *Host {
	return &Host{ID: id, Capacity: capacity}
}

// Remaining returns capacity - used - reserved on every dimension.
func (h *Host) Remaining() Resources {
	return h.Capacity.Sub(h.Used).Sub(h.Reserved)
}

// CanFit reports whether the remaining capacity covers vm's demand on all four dimensions.
func (h *Host) CanFit(vm *VM) bool {
	return h.Remaining().Fits(vm.Demand)
}

// Allocate adds vm's demand to the used totals and appends it to the allocated set.
// Callers must check CanFit first.
func (h *Host) Allocate(vm *VM) {
	h.vms = append(h.vms, vm)
	h.Used = h.Used.Add(vm.Demand)
}

// Deallocate is the exact inverse of Allocate. It reports false, and changes nothing,
// if vm is not allocated on h.
func (h *Host) Deallocate(vm *VM) bool {
	i := indexOf(h.vms, vm.ID)
	if i < 0 {
		return false
	}
	h.vms = append(h.vms[:i], h.vms[i+1:]...)
	h.Used = sumDemand(h.vms)
	return true
}

// Reserve holds capacity for a VM migrating in. Callers must check CanFit first.
func (h *Host) Reserve(vm *VM) {
	h.incoming = append(h.incoming, vm)
	h.Reserved = h.Reserved.Add(vm.Demand)
}

// CommitReservation turns a reservation into an allocation.
func (h *Host) CommitReservation(vm *VM) bool {
	if !h.CancelReservation(vm) {
		return false
	}
	h.Allocate(vm)
	return true
}

// CancelReservation releases a reservation made by Reserve.
func (h *Host) CancelReservation(vm *VM) bool {
	i := indexOf(h.incoming, vm.ID)
	if i < 0 {
		return false
	}
	h.incoming = append(h.incoming[:i], h.incoming[i+1:]...)
	h.Reserved = sumDemand(h.incoming)
	return true
}

// VMs returns a copy of the allocated VMs in allocation order.
func (h *Host) VMs() []*VM {
	out := make([]*VM, len(h.vms))
	copy(out, h.vms)
	return out
}

// VMIDs returns the identities of the allocated VMs in allocation order.
func (h *Host) VMIDs() []int64 {
	ids := make([]int64, len(h.vms))
	for i, vm := range h.vms {
		ids[i] = vm.ID
	}
	return ids
}

// HasVM reports whether the VM with the given ID is allocated on h.
func (h *Host) HasVM(id int64) bool {
	return indexOf(h.vms, id) >= 0
}

// NumVMs returns the number of allocated VMs (reservations excluded).
func (h *Host) NumVMs() int {
	return len(h.vms)
}

// CoreUtilization returns (used+reserved)/capacity on the cores dimension, 0 for a
// zero-core host.
func (h *Host) CoreUtilization() float64 {
	if h.Capacity.Cores == 0 {
		return 0
	}
	return float64(h.Used.Cores+h.Reserved.Cores) / float64(h.Capacity.Cores)
}

// Clone returns an independent copy of the ledger. VMs are shared since they are immutable.
func (h *Host) Clone() *Host {
	c := *h
	c.vms = append([]*VM(nil), h.vms...)
	c.incoming = append([]*VM(nil), h.incoming...)
	return &c
}

func (h *Host) String() string {
	ids := make([]string, len(h.vms))
	for i, vm := range h.vms {
		ids[i] = fmt.Sprint(vm.ID)
	}
	return fmt.Sprintf("Host{id=%d, capacity=[%s], used=[%s], reserved=[%s], vms=[%s]}",
		h.ID, h.Capacity, h.Used, h.Reserved, strings.Join(ids, " "))
}

func sumDemand(vms []*VM) Resources {
	var total Resources
	for _, vm := range vms {
		total = total.Add(vm.Demand)
	}
	return total
}

func indexOf(vms []*VM, id int64) int {
	for i, vm := range vms {
		if vm.ID == id {
			return i
		}
	}
	return -1
}

// Assignment maps VM ID to destination host ID.
type Assignment map[int64]int64

// HostsUsed returns the number of distinct destination hosts in a.
func (a Assignment) HostsUsed() int {
	seen := make(map[int64]struct{}, len(a))
	for _, hostID := range a {
		seen[hostID] = struct{}{}
	}
	return len(seen)
}

// Clone returns an independent copy of a.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// HostByID returns the host with the given ID from hosts, or nil.
func HostByID(hosts []*Host, id int64) *Host {
	for _, h := range hosts {
		if h.ID == id {
			return h
		}
	}
	return nil
}
