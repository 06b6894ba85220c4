package sim

import "fmt"

// Resources is a four-dimensional capacity or demand vector.
// Used for host capacities, host consumption and VM demand alike.
type Resources struct {
	RAM   int64   `yaml:"ram_mb" mapstructure:"ram_mb"`           // memory in MB
	Cores int64   `yaml:"cores" mapstructure:"cores"`             // processing elements
	BW    int64   `yaml:"bw_mbps" mapstructure:"bw_mbps"`         // bandwidth in Mbps
	Power float64 `yaml:"power_watts" mapstructure:"power_watts"` // W; for hosts, draw at full utilization
}

// Add returns r + o on every dimension.
func (r Resources) Add(o Resources) Resources {
	return Resources{
		RAM:   r.RAM + o.RAM,
		Cores: r.Cores + o.Cores,
		BW:    r.BW + o.BW,
		Power: r.Power + o.Power,
	}
}

// Sub returns r - o on every dimension.
func (r Resources) Sub(o Resources) Resources {
	return Resources{
		RAM:   r.RAM - o.RAM,
		Cores: r.Cores - o.Cores,
		BW:    r.BW - o.BW,
		Power: r.Power - o.Power,
	}
}

// Fits reports whether demand d fits in r on all four dimensions simultaneously.
func (r Resources) Fits(d Resources) bool {
	return r.RAM >= d.RAM &&
		r.Cores >= d.Cores &&
		r.BW >= d.BW &&
		r.Power >= d.Power
}

// IsZero reports whether every dimension is zero.
func (r Resources) IsZero() bool {
	return r == Resources{}
}

func (r Resources) String() string {
	return fmt.Sprintf("%d core, %d MB, %d Mbps, %.1f W", r.Cores, r.RAM, r.BW, r.Power)
}
