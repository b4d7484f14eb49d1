package config

import (
	"fmt"
	"strings"

	"github.com/kilianp07/storagesim/core/storage"
)

// StorageConfig carries the raw device configuration. Values are kept as
// strings so the storage engine's own validation stays authoritative; fields
// left empty fall back to the engine defaults.
type StorageConfig struct {
	CustomerID           string `json:"customer_id"`
	Node                 string `json:"node"`
	KWhRated             string `json:"kwh_rated"`
	KWRated              string `json:"kw_rated"`
	ChargeRate           string `json:"charge_rate"`
	DischargeRate        string `json:"discharge_rate"`
	ChargeEfficiency     string `json:"charge_efficiency"`
	DischargeEfficiency  string `json:"discharge_efficiency"`
	SelfDischarge        string `json:"self_discharge"`
	InitialStateOfCharge string `json:"initial_state_of_charge"`
}

// Validate checks that the fields without an engine default are present.
func (c StorageConfig) Validate() error {
	var missing []string
	if c.KWhRated == "" {
		missing = append(missing, "kwh_rated")
	}
	if c.KWRated == "" {
		missing = append(missing, "kw_rated")
	}
	if c.InitialStateOfCharge == "" {
		missing = append(missing, "initial_state_of_charge")
	}
	if len(missing) > 0 {
		return fmt.Errorf("storage configuration missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Engine maps the raw values into the engine configuration.
func (c StorageConfig) Engine() storage.Config {
	opt := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}
	return storage.Config{
		CustomerID:           c.CustomerID,
		Node:                 opt(c.Node),
		KWhRated:             c.KWhRated,
		KWRated:              c.KWRated,
		ChargeRate:           opt(c.ChargeRate),
		DischargeRate:        opt(c.DischargeRate),
		ChargeEfficiency:     opt(c.ChargeEfficiency),
		DischargeEfficiency:  opt(c.DischargeEfficiency),
		SelfDischarge:        opt(c.SelfDischarge),
		InitialStateOfCharge: c.InitialStateOfCharge,
	}
}

// SourceConfig selects the optional pre-recorded setpoint series. When
// CSVFile is empty the component expects setpoint messages from the bus.
type SourceConfig struct {
	CSVFile   string `json:"csv_file"`
	Delimiter string `json:"delimiter"`
}

// SetDefaults applies sane defaults.
func (c *SourceConfig) SetDefaults() {
	if c.Delimiter == "" {
		c.Delimiter = ","
	}
}

// Validate checks the delimiter is a single character.
func (c SourceConfig) Validate() error {
	if len([]rune(c.Delimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	return nil
}

// DelimiterRune returns the delimiter as a rune.
func (c SourceConfig) DelimiterRune() rune {
	return []rune(c.Delimiter)[0]
}
