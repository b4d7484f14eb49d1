package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/storagesim/core/storage"
)

type StorageDef struct {
	CustomerID           string   `yaml:"customer_id"`
	Node                 *int     `yaml:"node,omitempty"`
	KWhRated             float64  `yaml:"kwh_rated"`
	KWRated              float64  `yaml:"kw_rated"`
	ChargeRate           *float64 `yaml:"charge_rate,omitempty"`
	DischargeRate        *float64 `yaml:"discharge_rate,omitempty"`
	ChargeEfficiency     *float64 `yaml:"charge_efficiency,omitempty"`
	DischargeEfficiency  *float64 `yaml:"discharge_efficiency,omitempty"`
	SelfDischarge        *float64 `yaml:"self_discharge,omitempty"`
	InitialStateOfCharge float64  `yaml:"initial_state_of_charge"`
}

func (d StorageDef) ToConfig() storage.Config {
	opt := func(p *float64) any {
		if p == nil {
			return nil
		}
		return *p
	}
	var node any
	if d.Node != nil {
		node = *d.Node
	}
	return storage.Config{
		CustomerID:           d.CustomerID,
		Node:                 node,
		KWhRated:             d.KWhRated,
		KWRated:              d.KWRated,
		ChargeRate:           opt(d.ChargeRate),
		DischargeRate:        opt(d.DischargeRate),
		ChargeEfficiency:     opt(d.ChargeEfficiency),
		DischargeEfficiency:  opt(d.DischargeEfficiency),
		SelfDischarge:        opt(d.SelfDischarge),
		InitialStateOfCharge: d.InitialStateOfCharge,
	}
}

type EpochDef struct {
	PowerKW       float64 `yaml:"power_kw"`
	DurationHours float64 `yaml:"duration_hours"`
}

type Expected struct {
	FinalSoC     float64 `yaml:"final_soc"`
	SoCTolerance float64 `yaml:"soc_tolerance,omitempty"`
	Constrained  int     `yaml:"constrained"`
}

type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Storage     StorageDef `yaml:"storage"`
	Epochs      []EpochDef `yaml:"epochs"`
	Expected    Expected   `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Expected.SoCTolerance == 0 {
		sc.Expected.SoCTolerance = 1e-6
	}
	return &sc, nil
}
