package storage

import (
	"github.com/kilianp07/storagesim/core/logger"
	"github.com/kilianp07/storagesim/core/model"
)

// State models the internal state of an energy storage resource. It owns the
// validated device ratings and the current stored energy, and advances that
// energy once per epoch through Transition.
//
// Sign convention, enforced in a single place (efficiencyFactor): positive
// power discharges the storage, so energy leaves it; negative power charges
// it, so energy enters it.
//
// State is not safe for concurrent use. Each simulated device owns its own
// instance and the caller serializes Transition calls.
type State struct {
	customerID          string
	node                *int
	kwhRated            float64
	kwRated             float64
	chargeRate          float64
	dischargeRate       float64
	chargeEfficiency    float64
	dischargeEfficiency float64
	selfDischarge       float64
	initialSoC          float64
	kwhStored           float64

	log logger.Logger
}

// New validates every configuration field and returns a ready State. The
// initial stored energy is derived from KWhRated and InitialStateOfCharge in
// the same step, so there is no assignment ordering for callers to get wrong.
// A nil log disables diagnostics.
func New(cfg Config, log logger.Logger) (*State, error) {
	if log == nil {
		log = nopLogger{}
	}
	n, err := node(cfg.Node)
	if err != nil {
		return nil, err
	}
	kwhRated, err := nonNegative("kwh_rated", cfg.KWhRated)
	if err != nil {
		return nil, err
	}
	if kwhRated == 0 {
		return nil, &ConfigError{Field: "kwh_rated", Value: cfg.KWhRated, Reason: "it should be greater than zero"}
	}
	kwRated, err := nonNegative("kw_rated", cfg.KWRated)
	if err != nil {
		return nil, err
	}
	chargeRate, err := percentageOr("charge_rate", cfg.ChargeRate, 100)
	if err != nil {
		return nil, err
	}
	dischargeRate, err := percentageOr("discharge_rate", cfg.DischargeRate, 100)
	if err != nil {
		return nil, err
	}
	chargeEff, err := percentageOr("charge_efficiency", cfg.ChargeEfficiency, 90)
	if err != nil {
		return nil, err
	}
	dischargeEff, err := percentageOr("discharge_efficiency", cfg.DischargeEfficiency, 90)
	if err != nil {
		return nil, err
	}
	// A zero efficiency would divide by zero when the achieved power is
	// recomputed after a capacity violation, so it is a configuration
	// error rather than a saturated result.
	if chargeEff == 0 {
		return nil, &ConfigError{Field: "charge_efficiency", Value: cfg.ChargeEfficiency, Reason: "it should be greater than zero"}
	}
	if dischargeEff == 0 {
		return nil, &ConfigError{Field: "discharge_efficiency", Value: cfg.DischargeEfficiency, Reason: "it should be greater than zero"}
	}
	selfDischarge, err := percentageOr("self_discharge", cfg.SelfDischarge, 0)
	if err != nil {
		return nil, err
	}
	initialSoC, err := percentage("initial_state_of_charge", cfg.InitialStateOfCharge)
	if err != nil {
		return nil, err
	}

	return &State{
		customerID:          cfg.CustomerID,
		node:                n,
		kwhRated:            kwhRated,
		kwRated:             kwRated,
		chargeRate:          chargeRate,
		dischargeRate:       dischargeRate,
		chargeEfficiency:    chargeEff,
		dischargeEfficiency: dischargeEff,
		selfDischarge:       selfDischarge,
		initialSoC:          initialSoC,
		kwhStored:           kwhRated * (initialSoC / 100),
		log:                 log,
	}, nil
}

// CustomerID returns the customer the resource is associated with.
func (s *State) CustomerID() string { return s.customerID }

// Node returns the connected phase, or nil for a three phase device.
func (s *State) Node() *int {
	if s.node == nil {
		return nil
	}
	n := *s.node
	return &n
}

// KWhRated returns the rated storage capacity in kWh.
func (s *State) KWhRated() float64 { return s.kwhRated }

// KWRated returns the rated power in kW.
func (s *State) KWRated() float64 { return s.kwRated }

// ChargeRate returns the charging rate limit in percent of KWRated.
func (s *State) ChargeRate() float64 { return s.chargeRate }

// DischargeRate returns the discharging rate limit in percent of KWRated.
func (s *State) DischargeRate() float64 { return s.dischargeRate }

// ChargeEfficiency returns the charge efficiency in percent.
func (s *State) ChargeEfficiency() float64 { return s.chargeEfficiency }

// DischargeEfficiency returns the discharge efficiency in percent.
func (s *State) DischargeEfficiency() float64 { return s.dischargeEfficiency }

// SelfDischarge returns the idle loss in percent of KWhRated per hour.
func (s *State) SelfDischarge() float64 { return s.selfDischarge }

// InitialStateOfCharge returns the state of charge the device started with.
func (s *State) InitialStateOfCharge() float64 { return s.initialSoC }

// KWhStored returns the energy currently stored in kWh.
func (s *State) KWhStored() float64 { return s.kwhStored }

// StateOfCharge returns the stored energy in percent of rated capacity.
func (s *State) StateOfCharge() float64 {
	return s.kwhStored / s.kwhRated * 100
}

// MaxDischargePower returns the maximum discharging power in kW (>= 0).
func (s *State) MaxDischargePower() float64 {
	return s.dischargeRate / 100 * s.kwRated
}

// MaxChargePower returns the maximum charging power in kW (<= 0, charging
// power is negative).
func (s *State) MaxChargePower() float64 {
	return -(s.chargeRate / 100 * s.kwRated)
}

// SetCustomerID reassigns the passthrough customer identity between epochs.
func (s *State) SetCustomerID(id string) { s.customerID = id }

// SetNode reassigns the passthrough phase between epochs. Returns a
// ConfigError for values outside {1, 2, 3, nil}.
func (s *State) SetNode(value any) error {
	n, err := node(value)
	if err != nil {
		return err
	}
	s.node = n
	return nil
}

// efficiencyFactor scales power times duration into the stored energy
// delta. The sign encodes the convention:
// discharging (power >= 0) drains stored energy, and draining accelerates
// with conversion loss, so the factor is -1/efficiency. Charging (power < 0)
// stores energy, attenuated by the charge efficiency, so the factor is
// -efficiency and the negative request turns into a positive delta.
func (s *State) efficiencyFactor(powerKW float64) float64 {
	if powerKW >= 0 {
		return -1 / (s.dischargeEfficiency / 100)
	}
	return -s.chargeEfficiency / 100
}

// Transition advances the storage by durationHours while it is requested to
// operate at realPowerKW. The request is clamped to the rate limits, the
// stored energy is updated using the applicable efficiency and the idle self
// discharge, and if the device cannot supply or absorb the requested energy
// the achieved power is recomputed from what was physically possible. The
// returned state carries the achieved power, which differs from the request
// whenever the device was constrained.
//
// A negative duration returns ErrInvalidDuration and leaves the state
// untouched. A zero duration is a no-op: every energy term scales with the
// duration, so the stored energy is unchanged and capacity reconciliation
// cannot trigger.
func (s *State) Transition(realPowerKW, durationHours float64) (model.ResourceState, error) {
	if durationHours < 0 {
		return model.ResourceState{}, &DurationError{Hours: durationHours}
	}

	s.log.Debugf("%v kW requested from storage for %v hours", realPowerKW, durationHours)
	power := realPowerKW
	if power > s.MaxDischargePower() {
		power = s.MaxDischargePower()
		s.log.Debugf("requested over maximum discharge rate, using %v kW instead", power)
	} else if power < s.MaxChargePower() {
		power = s.MaxChargePower()
		s.log.Debugf("requested over maximum charge rate, using %v kW instead", power)
	}

	factor := s.efficiencyFactor(power)
	// Energy drained regardless of the requested power.
	idleEnergy := s.selfDischarge / 100 * s.kwhRated * durationHours
	kwhStoredNext := s.kwhStored + factor*power*durationHours - idleEnergy

	// maxEnergy is the energy the device could actually move this epoch,
	// defined only when the tentative energy violates the capacity bounds.
	var maxEnergy float64
	reconciled := false
	switch {
	case kwhStoredNext < 0:
		// Not enough energy stored for the requested discharge. Negative
		// so that the power recomputation yields a positive power.
		maxEnergy = -(s.kwhStored - idleEnergy)
		if maxEnergy > 0 {
			// The idle loss alone exceeds the stored energy, nothing is
			// left for active operation.
			maxEnergy = 0
		}
		kwhStoredNext = 0
		reconciled = true
		s.log.Debugf("storage does not have enough energy")
	case kwhStoredNext > s.kwhRated:
		// Cannot absorb the full charge request.
		maxEnergy = s.kwhRated - s.kwhStored + idleEnergy
		kwhStoredNext = s.kwhRated
		reconciled = true
		s.log.Debugf("storage cannot store all of the energy")
	}

	if reconciled && power != 0 {
		power = maxEnergy / durationHours / factor
	}

	s.log.Debugw("storage transition", map[string]any{
		"stored_kwh":     s.kwhStored,
		"power_kw":       power,
		"duration_hours": durationHours,
		"next_kwh":       kwhStoredNext,
	})
	s.kwhStored = kwhStoredNext

	return model.ResourceState{
		CustomerID:      s.customerID,
		Node:            s.Node(),
		RealPowerKW:     power,
		ReactivePowerKW: 0,
		StateOfCharge:   s.StateOfCharge(),
	}, nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
