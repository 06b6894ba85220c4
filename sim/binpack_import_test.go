package sim_test

// Blank import triggers sim/binpack's init(), which registers NewBinPackingPolicyFunc.
// This allows package sim's internal test files to build the bin-packing policy
// without directly importing sim/binpack (which would create an import cycle).
import _ "github.com/lilRaptor99/vm-allocation-simulation/sim/binpack"
