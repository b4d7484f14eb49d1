package storage

import (
	"errors"
	"testing"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		value any
		want  float64
		ok    bool
	}{
		{10, 10, true},
		{100.0, 100, true},
		{"0.0", 0, true},
		{"55.5", 55.5, true},
		{-1.0, 0, false},
		{100.1, 0, false},
		{nil, 0, false},
		{"foo", 0, false},
	}
	for _, tt := range tests {
		got, err := percentage("test", tt.value)
		if tt.ok {
			if err != nil {
				t.Errorf("percentage(%v): unexpected error %v", tt.value, err)
			} else if got != tt.want {
				t.Errorf("percentage(%v) = %v, want %v", tt.value, got, tt.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("percentage(%v): expected error", tt.value)
		} else if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("percentage(%v): error %v does not match ErrInvalidConfig", tt.value, err)
		}
	}
}

func TestNonNegative(t *testing.T) {
	tests := []struct {
		value any
		want  float64
		ok    bool
	}{
		{10, 10, true},
		{100.0, 100, true},
		{"0.0", 0, true},
		{100.1, 100.1, true},
		{-1.0, 0, false},
		{nil, 0, false},
		{"foo", 0, false},
	}
	for _, tt := range tests {
		got, err := nonNegative("test", tt.value)
		if tt.ok {
			if err != nil {
				t.Errorf("nonNegative(%v): unexpected error %v", tt.value, err)
			} else if got != tt.want {
				t.Errorf("nonNegative(%v) = %v, want %v", tt.value, got, tt.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("nonNegative(%v): expected error", tt.value)
		}
	}
}

func TestNode(t *testing.T) {
	for _, v := range []any{1, 2, 3, "2", 3.0} {
		n, err := node(v)
		if err != nil {
			t.Errorf("node(%v): unexpected error %v", v, err)
			continue
		}
		if n == nil {
			t.Errorf("node(%v): expected a value", v)
		}
	}
	for _, v := range []any{nil, ""} {
		n, err := node(v)
		if err != nil {
			t.Errorf("node(%v): unexpected error %v", v, err)
		}
		if n != nil {
			t.Errorf("node(%v): expected nil, got %d", v, *n)
		}
	}
	for _, v := range []any{0, 4, -1, "foo", 1.5} {
		if _, err := node(v); err == nil {
			t.Errorf("node(%v): expected error", v)
		}
	}
}

func TestNewValidation(t *testing.T) {
	valid := Config{
		CustomerID:           "customerid",
		Node:                 1,
		ChargeRate:           99.0,
		DischargeRate:        95.0,
		ChargeEfficiency:     91.0,
		DischargeEfficiency:  85.0,
		KWhRated:             110.0,
		InitialStateOfCharge: 50.0,
		KWRated:              80.0,
		SelfDischarge:        0.5,
	}

	tests := []struct {
		name  string
		mod   func(c Config) Config
		field string // empty means the config is valid
	}{
		{"valid", func(c Config) Config { return c }, ""},
		{"defaults", func(c Config) Config {
			return Config{CustomerID: c.CustomerID, KWhRated: c.KWhRated, KWRated: c.KWRated, InitialStateOfCharge: c.InitialStateOfCharge}
		}, ""},
		{"numeric strings", func(c Config) Config {
			c.KWhRated = "110.0"
			c.KWRated = "80"
			c.InitialStateOfCharge = "50"
			return c
		}, ""},
		{"invalid node", func(c Config) Config { c.Node = "foo"; return c }, "node"},
		{"soc over 100", func(c Config) Config { c.InitialStateOfCharge = 150.0; return c }, "initial_state_of_charge"},
		{"negative charge rate", func(c Config) Config { c.ChargeRate = -99.0; return c }, "charge_rate"},
		{"kwh_rated not a number", func(c Config) Config { c.KWhRated = "foo"; return c }, "kwh_rated"},
		{"kwh_rated zero", func(c Config) Config { c.KWhRated = 0.0; return c }, "kwh_rated"},
		{"missing kw_rated", func(c Config) Config { c.KWRated = nil; return c }, "kw_rated"},
		{"zero charge efficiency", func(c Config) Config { c.ChargeEfficiency = 0.0; return c }, "charge_efficiency"},
		{"zero discharge efficiency", func(c Config) Config { c.DischargeEfficiency = "0"; return c }, "discharge_efficiency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.mod(valid), nil)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if s == nil {
					t.Fatal("expected a state")
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("error %v does not match ErrInvalidConfig", err)
			}
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("error %v is not a ConfigError", err)
			}
			if cerr.Field != tt.field {
				t.Fatalf("error names field %q, want %q", cerr.Field, tt.field)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	s, err := New(Config{
		CustomerID:           "customerid",
		KWhRated:             110.0,
		InitialStateOfCharge: 50.0,
		KWRated:              80.0,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.ChargeRate(); got != 100 {
		t.Errorf("ChargeRate() = %v, want 100", got)
	}
	if got := s.DischargeRate(); got != 100 {
		t.Errorf("DischargeRate() = %v, want 100", got)
	}
	if got := s.ChargeEfficiency(); got != 90 {
		t.Errorf("ChargeEfficiency() = %v, want 90", got)
	}
	if got := s.DischargeEfficiency(); got != 90 {
		t.Errorf("DischargeEfficiency() = %v, want 90", got)
	}
	if got := s.SelfDischarge(); got != 0 {
		t.Errorf("SelfDischarge() = %v, want 0", got)
	}
	if got := s.Node(); got != nil {
		t.Errorf("Node() = %v, want nil", *got)
	}
	if got := s.KWhStored(); got != 55 {
		t.Errorf("KWhStored() = %v, want 55", got)
	}
}
