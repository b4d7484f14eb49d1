package model

import "time"

// ResourceState describes the electrical state of a storage resource after
// one epoch of operation. RealPowerKW follows the grid convention used
// throughout this module: positive power discharges the storage into the
// network, negative power charges it.
type ResourceState struct {
	CustomerID      string
	Node            *int // 1, 2 or 3 for a single phase device, nil for three phase
	RealPowerKW     float64
	ReactivePowerKW float64
	StateOfCharge   float64 // percent of rated capacity
}

// Setpoint is the power requested from a resource for a single epoch.
type Setpoint struct {
	RealPowerKW     float64
	ReactivePowerKW float64
}

// Epoch is one discrete simulation time step with externally supplied
// start and end times.
type Epoch struct {
	Number    int64
	StartTime time.Time
	EndTime   time.Time
}

// DurationHours returns the epoch length in hours.
func (e Epoch) DurationHours() float64 {
	return e.EndTime.Sub(e.StartTime).Hours()
}
