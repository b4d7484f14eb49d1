package storage

import (
	"fmt"
	"math"
	"strconv"
)

// Config holds the raw configuration of a storage device. Numeric fields are
// typed any because values arrive from environment variables or config files
// and may be float64, int, or numeric strings; New coerces and validates
// every field before an engine instance exists.
//
// Fields left nil fall back to their defaults where one is listed. KWhRated,
// KWRated and InitialStateOfCharge have no default and are required.
type Config struct {
	// CustomerID tags the resource for downstream consumers. Passthrough
	// only, no effect on the physics.
	CustomerID string
	// Node is the phase a single phase device is connected to: 1, 2 or 3.
	// nil means the device is a three phase resource.
	Node any
	// KWhRated is the rated energy capacity in kWh. Must be greater than
	// zero so that the state of charge ratio stays meaningful.
	KWhRated any
	// KWRated is the rated power capacity in kW.
	KWRated any
	// ChargeRate and DischargeRate limit the usable power to a percentage
	// of KWRated. Default 100.
	ChargeRate    any
	DischargeRate any
	// ChargeEfficiency and DischargeEfficiency are conversion efficiencies
	// in percent. Default 90. Zero is rejected: the achieved power
	// reconciliation divides by the efficiency.
	ChargeEfficiency    any
	DischargeEfficiency any
	// SelfDischarge is the percentage of KWhRated lost per hour regardless
	// of the requested power. Default 0.
	SelfDischarge any
	// InitialStateOfCharge sets the stored energy at construction as a
	// percentage of KWhRated.
	InitialStateOfCharge any
}

// toFloat coerces a config value into a float64. Accepted inputs are Go
// numeric types and strings holding a decimal number.
func toFloat(field string, value any) (float64, error) {
	if value == nil {
		return 0, &ConfigError{Field: field, Value: value, Reason: "value is required"}
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &ConfigError{Field: field, Value: value, Reason: "cannot be converted to a number"}
		}
		return f, nil
	default:
		return 0, &ConfigError{Field: field, Value: value, Reason: fmt.Sprintf("unsupported type %T", value)}
	}
}

// percentage validates that value converts to a finite float within [0, 100].
func percentage(field string, value any) (float64, error) {
	f, err := toFloat(field, value)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 100 {
		return 0, &ConfigError{Field: field, Value: value, Reason: "it should be between 0.0 and 100.0"}
	}
	return f, nil
}

// nonNegative validates that value converts to a finite float >= 0.
func nonNegative(field string, value any) (float64, error) {
	f, err := toFloat(field, value)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, &ConfigError{Field: field, Value: value, Reason: "it should not be negative"}
	}
	return f, nil
}

// percentageOr applies the default when value is nil.
func percentageOr(field string, value any, def float64) (float64, error) {
	if value == nil {
		return def, nil
	}
	return percentage(field, value)
}

// node validates the phase value: nil, or anything convertible to an
// integer in {1, 2, 3}.
func node(value any) (*int, error) {
	if value == nil {
		return nil, nil
	}
	if s, ok := value.(string); ok && s == "" {
		return nil, nil
	}
	f, err := toFloat("node", value)
	if err != nil {
		return nil, &ConfigError{Field: "node", Value: value, Reason: "allowed values are 1, 2, 3 or none"}
	}
	n := int(f)
	if float64(n) != f || n < 1 || n > 3 {
		return nil, &ConfigError{Field: "node", Value: value, Reason: "allowed values are 1, 2, 3 or none"}
	}
	return &n, nil
}
