// Package testutil provides shared test infrastructure for the placement packages.
// It holds the golden dataset of hand-checked bin-packing cases and assertion helpers.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
)

// GoldenDataset represents the structure of testdata/binpack_golden.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one fleet with pending VMs and the expected minimal placement.
type GoldenTestCase struct {
	Name     string         `json:"name"`
	Hosts    []GoldenHost   `json:"hosts"`
	Pending  []GoldenVM     `json:"pending"`
	Expected GoldenExpected `json:"expected"`
}

// GoldenHost is a host with the VMs it already holds.
type GoldenHost struct {
	ID       int64         `json:"id"`
	Capacity sim.Resources `json:"capacity"`
	VMs      []GoldenVM    `json:"vms"`
}

type GoldenVM struct {
	ID     int64         `json:"id"`
	Demand sim.Resources `json:"demand"`
}

// GoldenExpected represents the expected solver output for a golden test case.
type GoldenExpected struct {
	// Exact match
	HostsUsed  int            `json:"hosts_used"` // -1 when no full placement exists
	Assignment sim.Assignment `json:"assignment"`

	// Mean core utilization across all hosts once Assignment is applied
	MeanCoreUtilization float64 `json:"mean_core_utilization"`
}

// Build returns fresh ledgers for the case, preallocated VMs already placed, and the
// pending VMs in dataset order.
func (c GoldenTestCase) Build() ([]*sim.Host, []*sim.VM) {
	hosts := make([]*sim.Host, len(c.Hosts))
	for i, gh := range c.Hosts {
		h := sim.NewHost(gh.ID, gh.Capacity)
		for _, gv := range gh.VMs {
			h.Allocate(sim.NewVM(gv.ID, gv.Demand))
		}
		hosts[i] = h
	}
	pending := make([]*sim.VM, len(c.Pending))
	for i, gv := range c.Pending {
		pending[i] = sim.NewVM(gv.ID, gv.Demand)
	}
	return hosts, pending
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "binpack_golden.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// MeanCoreUtilization averages Host.CoreUtilization over hosts; 0 for none.
func MeanCoreUtilization(hosts []*sim.Host) float64 {
	if len(hosts) == 0 {
		return 0
	}
	var sum float64
	for _, h := range hosts {
		sum += h.CoreUtilization()
	}
	return sum / float64(len(hosts))
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
