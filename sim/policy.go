package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Policy names accepted by NewPlacementPolicy.
const (
	PolicyFirstFit   = "first-fit"
	PolicyBestFit    = "best-fit"
	PolicySimple     = "simple"
	PolicyRoundRobin = "round-robin"
	PolicyBinPacking = "4d-bin-packing"
)

// ValidPolicies is the set of recognized placement policy names.
// Shared by ExperimentConfig.Validate() and NewPlacementPolicy().
var ValidPolicies = map[string]bool{
	PolicyFirstFit:   true,
	PolicyBestFit:    true,
	PolicySimple:     true,
	PolicyRoundRobin: true,
	PolicyBinPacking: true,
}

// ErrUnknownPolicy is returned for a policy name outside ValidPolicies.
var ErrUnknownPolicy = errors.New("unknown placement policy")

// PlacementPolicy decides which host should receive a VM.
// Implementations receive the live host list in engine order and must not mutate it.
type PlacementPolicy interface {
	Name() string
	FindHostForVM(vm *VM, hosts []*Host) (*Host, bool)
}

// Recalculator is implemented by policies that precompute a plan before an
// evacuation round. Recalculate is the only expensive policy operation.
type Recalculator interface {
	Recalculate(source *Host, hosts []*Host)
}

// NewBinPackingPolicyFunc constructs the 4D bin-packing policy. Set by sim/binpack's
// init(); nil until that package is imported.
var NewBinPackingPolicyFunc func(cfg BinPackConfig, logger logrus.FieldLogger) PlacementPolicy

type policyOptions struct {
	logger logrus.FieldLogger
}

// PolicyOption configures NewPlacementPolicy.
type PolicyOption func(*policyOptions)

// WithLogger sets the logger for policies that report their planning. Defaults to the
// logrus standard logger.
func WithLogger(logger logrus.FieldLogger) PolicyOption {
	return func(o *policyOptions) { o.logger = logger }
}

// NewPlacementPolicy creates the policy registered under name.
func NewPlacementPolicy(name string, binpack BinPackConfig, opts ...PolicyOption) (PlacementPolicy, error) {
	o := policyOptions{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	switch name {
	case PolicyFirstFit:
		return &FirstFit{}, nil
	case PolicyBestFit:
		return &BestFit{}, nil
	case PolicySimple:
		return &Simple{}, nil
	case PolicyRoundRobin:
		return &RoundRobin{}, nil
	case PolicyBinPacking:
		if NewBinPackingPolicyFunc == nil {
			panic("NewBinPackingPolicyFunc not registered: import sim/binpack")
		}
		return NewBinPackingPolicyFunc(binpack, o.logger), nil
	default:
		return nil, fmt.Errorf("%w %q (valid: %v)", ErrUnknownPolicy, name, PolicyNames())
	}
}

// PolicyNames returns the recognized policy names in sorted order.
func PolicyNames() []string {
	names := make([]string, 0, len(ValidPolicies))
	for name := range ValidPolicies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
