package binpack

import (
	"testing"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
	"github.com/lilRaptor99/vm-allocation-simulation/sim/internal/testutil"
)

// TestSolver_GoldenDataset checks the solver against hand-verified minimal placements,
// with and without pruning.
func TestSolver_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	if len(dataset.Tests) == 0 {
		t.Fatal("golden dataset is empty")
	}

	for _, tc := range dataset.Tests {
		for _, prune := range []bool{false, true} {
			name := tc.Name + "/unpruned"
			if prune {
				name = tc.Name + "/pruned"
			}
			t.Run(name, func(t *testing.T) {
				hosts, pending := tc.Build()
				result := NewSolver(hosts, pending, WithPruning(prune)).Solve()

				if result.HostsUsed != tc.Expected.HostsUsed {
					t.Errorf("HostsUsed: got %d, want %d", result.HostsUsed, tc.Expected.HostsUsed)
				}
				if len(result.Assignment) != len(tc.Expected.Assignment) {
					t.Fatalf("Assignment: got %v, want %v", result.Assignment, tc.Expected.Assignment)
				}
				for vmID, want := range tc.Expected.Assignment {
					if got, ok := result.Assignment[vmID]; !ok || got != want {
						t.Errorf("VM %d: got host %d, want %d", vmID, got, want)
					}
				}

				// the solver never touches the caller's ledgers; apply the result to them
				for _, vm := range pending {
					if hostID, ok := result.Assignment[vm.ID]; ok {
						sim.HostByID(hosts, hostID).Allocate(vm)
					}
				}
				testutil.AssertFloat64Equal(t, "mean_core_utilization",
					tc.Expected.MeanCoreUtilization, testutil.MeanCoreUtilization(hosts), 1e-9)
			})
		}
	}
}
