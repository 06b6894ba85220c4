package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHost(id int64) *Host {
	return NewHost(id, Resources{RAM: 100_000, Cores: 10, BW: 100, Power: 500})
}

func TestHost_Remaining_CapacityMinusUsed(t *testing.T) {
	h := testHost(1)
	h.Allocate(NewVM(1, Resources{RAM: 40_000, Cores: 4, BW: 10, Power: 50}))

	assert.Equal(t, Resources{RAM: 60_000, Cores: 6, BW: 90, Power: 450}, h.Remaining())
}

func TestHost_CanFit_AllFourDimensions(t *testing.T) {
	tests := []struct {
		name   string
		demand Resources
		want   bool
	}{
		{"exact fit", Resources{RAM: 100_000, Cores: 10, BW: 100, Power: 500}, true},
		{"ram over", Resources{RAM: 100_001, Cores: 1, BW: 1, Power: 1}, false},
		{"cores over", Resources{RAM: 1, Cores: 11, BW: 1, Power: 1}, false},
		{"bw over", Resources{RAM: 1, Cores: 1, BW: 101, Power: 1}, false},
		{"power over", Resources{RAM: 1, Cores: 1, BW: 1, Power: 500.5}, false},
		{"zero demand", Resources{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testHost(1).CanFit(NewVM(1, tt.demand)); got != tt.want {
				t.Errorf("CanFit(%s) = %v, want %v", tt.demand, got, tt.want)
			}
		})
	}
}

func TestHost_AllocateDeallocate_RoundTrip(t *testing.T) {
	// GIVEN a host with two VMs already allocated
	h := testHost(1)
	h.Allocate(NewVM(1, Resources{RAM: 10_000, Cores: 1, BW: 10, Power: 5}))
	h.Allocate(NewVM(2, Resources{RAM: 20_000, Cores: 2, BW: 20, Power: 10}))
	usedBefore := h.Used
	idsBefore := h.VMIDs()

	// WHEN a third VM is allocated then deallocated
	vm := NewVM(3, Resources{RAM: 30_000, Cores: 3, BW: 30, Power: 15})
	require.True(t, h.CanFit(vm))
	h.Allocate(vm)
	require.True(t, h.Deallocate(vm))

	// THEN used totals and the allocation set are restored exactly
	assert.Equal(t, usedBefore, h.Used)
	assert.Equal(t, idsBefore, h.VMIDs())
}

func TestHost_AllocateDeallocate_FractionalPower_RoundTrip(t *testing.T) {
	// GIVEN a host holding a VM with non-representable power
	h := testHost(1)
	h.Allocate(NewVM(1, Resources{Cores: 1, Power: 0.1}))
	usedBefore := h.Used

	// WHEN a 0.2 W VM is allocated then deallocated
	vm := NewVM(2, Resources{Cores: 1, Power: 0.2})
	h.Allocate(vm)
	require.True(t, h.Deallocate(vm))

	// THEN power is restored bit-for-bit, not just within rounding
	assert.Equal(t, usedBefore, h.Used)
	assert.Equal(t, 0.1, h.Used.Power)
}

func TestHost_FractionalPower_RemovalOrderDoesNotMatter(t *testing.T) {
	h := testHost(1)
	vms := []*VM{
		NewVM(1, Resources{Power: 0.1}),
		NewVM(2, Resources{Power: 0.2}),
		NewVM(3, Resources{Power: 0.3}),
	}
	for _, vm := range vms {
		h.Allocate(vm)
	}

	for _, vm := range vms {
		require.True(t, h.Deallocate(vm))
	}

	assert.True(t, h.Used.IsZero(), "used after draining: %s", h.Used)
}

func TestHost_Reservation_FractionalPower_CancelAndCommit(t *testing.T) {
	// GIVEN one reservation already held
	h := testHost(1)
	kept := NewVM(1, Resources{Cores: 1, Power: 0.1})
	h.Reserve(kept)
	reservedBefore := h.Reserved

	// WHEN a second reservation is placed then cancelled
	dropped := NewVM(2, Resources{Cores: 1, Power: 0.2})
	h.Reserve(dropped)
	require.True(t, h.CancelReservation(dropped))

	// THEN the remaining reservation is exact
	assert.Equal(t, reservedBefore, h.Reserved)

	// AND committing it moves exactly its demand into Used
	require.True(t, h.CommitReservation(kept))
	assert.True(t, h.Reserved.IsZero())
	assert.Equal(t, 0.1, h.Used.Power)
}

func TestHost_Deallocate_MiddleKeepsOrder(t *testing.T) {
	h := testHost(1)
	vms := []*VM{NewVM(1, Resources{Cores: 1}), NewVM(2, Resources{Cores: 1}), NewVM(3, Resources{Cores: 1})}
	for _, vm := range vms {
		h.Allocate(vm)
	}

	h.Deallocate(vms[1])

	assert.Equal(t, []int64{1, 3}, h.VMIDs())
	assert.Equal(t, int64(2), h.Used.Cores)
}

func TestHost_Deallocate_UnknownVM_NoChange(t *testing.T) {
	h := testHost(1)
	h.Allocate(NewVM(1, Resources{Cores: 2}))

	ok := h.Deallocate(NewVM(9, Resources{Cores: 5}))

	assert.False(t, ok)
	assert.Equal(t, int64(2), h.Used.Cores)
	assert.Equal(t, []int64{1}, h.VMIDs())
}

func TestHost_Reservation_CountsAgainstRemaining(t *testing.T) {
	// GIVEN a reservation for an incoming VM
	h := testHost(1)
	incoming := NewVM(7, Resources{RAM: 60_000, Cores: 6, BW: 10})
	h.Reserve(incoming)

	// THEN it consumes headroom but is not listed as allocated
	assert.False(t, h.CanFit(NewVM(8, Resources{Cores: 5})))
	assert.False(t, h.HasVM(7))
	assert.Equal(t, 0, h.NumVMs())
	assert.InDelta(t, 0.6, h.CoreUtilization(), 1e-9)

	// WHEN committed, it becomes an allocation with the same footprint
	require.True(t, h.CommitReservation(incoming))
	assert.True(t, h.HasVM(7))
	assert.True(t, h.Reserved.IsZero())
	assert.Equal(t, int64(6), h.Used.Cores)
	assert.False(t, h.CommitReservation(incoming), "second commit must fail")
}

func TestHost_CancelReservation_RestoresHeadroom(t *testing.T) {
	h := testHost(1)
	vm := NewVM(7, Resources{Cores: 6})
	h.Reserve(vm)
	require.True(t, h.CancelReservation(vm))
	assert.Equal(t, h.Capacity, h.Remaining())
}

func TestHost_Clone_IsIndependent(t *testing.T) {
	h := testHost(1)
	h.Allocate(NewVM(1, Resources{Cores: 1}))

	c := h.Clone()
	c.Allocate(NewVM(2, Resources{Cores: 2}))
	c.Deallocate(NewVM(1, Resources{Cores: 1}))

	assert.Equal(t, []int64{1}, h.VMIDs())
	assert.Equal(t, int64(1), h.Used.Cores)
	assert.Equal(t, []int64{2}, c.VMIDs())
}

func TestHost_VMs_ReturnsCopy(t *testing.T) {
	h := testHost(1)
	h.Allocate(NewVM(1, Resources{Cores: 1}))
	vms := h.VMs()
	vms[0] = NewVM(42, Resources{})
	assert.Equal(t, []int64{1}, h.VMIDs())
}

func TestAssignment_HostsUsed(t *testing.T) {
	assert.Equal(t, 0, Assignment{}.HostsUsed())
	assert.Equal(t, 2, Assignment{1: 10, 2: 10, 3: 11}.HostsUsed())
}

func TestHostByID(t *testing.T) {
	hosts := []*Host{testHost(1), testHost(2)}
	assert.Same(t, hosts[1], HostByID(hosts, 2))
	assert.Nil(t, HostByID(hosts, 3))
}
