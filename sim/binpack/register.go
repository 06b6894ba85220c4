// register.go wires the bin-packing constructor into the sim package's registration
// variable (NewBinPackingPolicyFunc). The init() runs when any package imports
// sim/binpack, breaking the import cycle between sim/ (interface owner) and
// sim/binpack/ (implementation).
package binpack

import (
	"github.com/sirupsen/logrus"

	"github.com/lilRaptor99/vm-allocation-simulation/sim"
)

func init() {
	sim.NewBinPackingPolicyFunc = func(cfg sim.BinPackConfig, logger logrus.FieldLogger) sim.PlacementPolicy {
		return NewPolicy(cfg, WithLogger(logger))
	}
}
