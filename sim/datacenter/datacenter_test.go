package datacenter

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/migration"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

func testConfig() sim.EngineConfig {
	return sim.EngineConfig{FirstTickDelay: 1_000, MigrationBandwidthFraction: 0.5}
}

func newHost(id int64) *sim.Host {
	return sim.NewHost(id, sim.Resources{Cores: 8, RAM: 16_000, BW: 10_000, Power: 100})
}

func newVM(id, cores, ram int64) *sim.VM {
	return sim.NewVM(id, sim.Resources{Cores: cores, RAM: ram, BW: 100})
}

// migrateOnFirstTick requests the given migrations from the first clock tick.
func migrateOnFirstTick(dc *Datacenter, moves func()) {
	fired := false
	dc.OnClockTick(func(int64) {
		if !fired {
			fired = true
			moves()
		}
	})
}

func collectFinishes(dc *Datacenter) *[]migration.MigrationFinish {
	var got []migration.MigrationFinish
	dc.OnMigrationFinish(func(ev migration.MigrationFinish) { got = append(got, ev) })
	return &got
}

func TestSubmit_PlacesThroughPolicy(t *testing.T) {
	// GIVEN two hosts and first-fit placement
	h1, h2 := newHost(1), newHost(2)
	dc := New([]*sim.Host{h1, h2}, &sim.FirstFit{}, testConfig())

	// WHEN three VMs are submitted, the third too large for either host
	dc.Submit([]*sim.VM{newVM(1, 6, 1_000), newVM(2, 6, 1_000), newVM(3, 9, 1_000)})
	dc.Run()

	// THEN the first two are placed in policy order and the third is left unplaced
	assert.Equal(t, []int64{1}, h1.VMIDs())
	assert.Equal(t, []int64{2}, h2.VMIDs())
	require.Len(t, dc.Unplaced(), 1)
	assert.Equal(t, int64(3), dc.Unplaced()[0].ID)
	assert.Same(t, h2, dc.HostOf(2))
}

func TestRun_ClockTickFiresOnAdvance(t *testing.T) {
	dc := New([]*sim.Host{newHost(1)}, &sim.FirstFit{}, testConfig())
	var ticks []int64
	dc.OnClockTick(func(now int64) { ticks = append(ticks, now) })

	dc.Submit([]*sim.VM{newVM(1, 1, 1_000)})
	end := dc.Run()

	// submission at t=0 does not advance the clock; the warm-up tick does
	assert.Equal(t, []int64{1_000}, ticks)
	assert.Equal(t, int64(1_000), end)
}

func TestRequestMigration_MovesVMAfterTransferTime(t *testing.T) {
	// GIVEN a VM with 1000 MB of RAM on host 1
	h1, h2 := newHost(1), newHost(2)
	dc := New([]*sim.Host{h1, h2}, &sim.FirstFit{}, testConfig())
	vm := newVM(1, 4, 1_000)
	finishes := collectFinishes(dc)
	var reservedDuringFlight sim.Resources
	migrateOnFirstTick(dc, func() {
		dc.RequestMigration(vm, h2)
		reservedDuringFlight = h2.Reserved
	})

	// WHEN it is migrated to host 2 over half of a 10 Gbps link
	dc.Submit([]*sim.VM{vm})
	end := dc.Run()

	// THEN the transfer takes 8000 Mb / 5000 Mbps = 1.6 s and the ledgers follow the VM
	require.Len(t, *finishes, 1)
	ev := (*finishes)[0]
	assert.True(t, ev.Success)
	assert.Equal(t, int64(1), ev.Source)
	assert.Equal(t, int64(2), ev.Target)
	assert.Equal(t, int64(1_000+1_600_000), ev.Time)
	assert.Equal(t, ev.Time, end)

	assert.Equal(t, vm.Demand, reservedDuringFlight)
	assert.True(t, h2.Reserved.IsZero())
	assert.Empty(t, h1.VMIDs())
	assert.True(t, h1.Used.IsZero())
	assert.Equal(t, []int64{1}, h2.VMIDs())
	assert.Same(t, h2, dc.HostOf(1))
}

func TestRequestMigration_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		source int64
		setup  func(dc *Datacenter, h1, h2 *sim.Host, vm *sim.VM) (*sim.VM, *sim.Host)
	}{
		{"unknown VM", noHost, func(dc *Datacenter, h1, h2 *sim.Host, vm *sim.VM) (*sim.VM, *sim.Host) {
			return newVM(99, 1, 1_000), h2
		}},
		{"already on target", 1, func(dc *Datacenter, h1, h2 *sim.Host, vm *sim.VM) (*sim.VM, *sim.Host) {
			return vm, h1
		}},
		{"target cannot fit", 1, func(dc *Datacenter, h1, h2 *sim.Host, vm *sim.VM) (*sim.VM, *sim.Host) {
			h2.Allocate(newVM(50, 8, 1_000))
			return vm, h2
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1, h2 := newHost(1), newHost(2)
			dc := New([]*sim.Host{h1, h2}, &sim.FirstFit{}, testConfig())
			vm := newVM(1, 4, 1_000)
			finishes := collectFinishes(dc)
			migrateOnFirstTick(dc, func() {
				target, dest := tt.setup(dc, h1, h2, vm)
				dc.RequestMigration(target, dest)
			})

			dc.Submit([]*sim.VM{vm})
			dc.Run()

			// rejected at the request time, ledgers untouched
			require.Len(t, *finishes, 1)
			ev := (*finishes)[0]
			assert.False(t, ev.Success)
			assert.Equal(t, int64(1_000), ev.Time)
			assert.Equal(t, tt.source, ev.Source)
			assert.Equal(t, []int64{1}, h1.VMIDs())
			assert.True(t, h2.Reserved.IsZero())
		})
	}
}

func TestRequestMigration_AlreadyMigrating_SecondRequestFails(t *testing.T) {
	h1, h2, h3 := newHost(1), newHost(2), newHost(3)
	dc := New([]*sim.Host{h1, h2, h3}, &sim.FirstFit{}, testConfig())
	vm := newVM(1, 2, 1_000)
	finishes := collectFinishes(dc)
	migrateOnFirstTick(dc, func() {
		dc.RequestMigration(vm, h2)
		dc.RequestMigration(vm, h3)
	})

	dc.Submit([]*sim.VM{vm})
	dc.Run()

	require.Len(t, *finishes, 2)
	assert.False(t, (*finishes)[0].Success, "rejection is delivered first, at request time")
	assert.Equal(t, int64(3), (*finishes)[0].Target)
	assert.True(t, (*finishes)[1].Success)
	assert.Equal(t, []int64{1}, h2.VMIDs())
	assert.True(t, h3.Reserved.IsZero())
}

func TestRun_StopsAtHorizon(t *testing.T) {
	cfg := testConfig()
	cfg.Horizon = 5_000
	h1, h2 := newHost(1), newHost(2)
	dc := New([]*sim.Host{h1, h2}, &sim.FirstFit{}, cfg)
	vm := newVM(1, 1, 1_000)
	finishes := collectFinishes(dc)
	migrateOnFirstTick(dc, func() { dc.RequestMigration(vm, h2) })

	dc.Submit([]*sim.VM{vm})
	end := dc.Run()

	assert.Equal(t, int64(5_000), end)
	assert.Empty(t, *finishes, "finish at 1.6s lies past the horizon")
	assert.Equal(t, vm.Demand, h2.Reserved)
}

func TestRun_CalledTwice_Panics(t *testing.T) {
	dc := New([]*sim.Host{newHost(1)}, &sim.FirstFit{}, testConfig())
	dc.Run()
	assert.Panics(t, func() { dc.Run() })
}

func TestNew_IndexesPreallocatedVMs(t *testing.T) {
	h := newHost(1)
	h.Allocate(newVM(7, 1, 1_000))
	dc := New([]*sim.Host{h, newHost(2)}, &sim.FirstFit{}, testConfig())
	assert.Same(t, h, dc.HostOf(7))
	assert.Nil(t, dc.HostOf(8))
}

func TestEventIDs_PerDatacenter(t *testing.T) {
	// two engines built the same way number their events identically
	a := New([]*sim.Host{newHost(1)}, &sim.FirstFit{}, testConfig())
	b := New([]*sim.Host{newHost(1)}, &sim.FirstFit{}, testConfig())
	a.Submit(nil)
	b.Submit(nil)
	assert.Equal(t, a.queue.Peek().EventID(), b.queue.Peek().EventID())
}
