package scenarios

import (
	"math"
	"testing"

	"github.com/kilianp07/storagesim/core/storage"
	"github.com/kilianp07/storagesim/infra/logger"
)

// RunScenario drives the storage model through the scenario's epochs and
// checks the final state of charge and the number of constrained epochs.
func RunScenario(t *testing.T, sc *Scenario) {
	engine, err := storage.New(sc.Storage.ToConfig(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("scenario %s: engine: %v", sc.Name, err)
	}

	constrained := 0
	for i, e := range sc.Epochs {
		state, err := engine.Transition(e.PowerKW, e.DurationHours)
		if err != nil {
			t.Fatalf("scenario %s epoch %d: %v", sc.Name, i+1, err)
		}
		if state.RealPowerKW != e.PowerKW {
			constrained++
		}
	}

	if got := engine.StateOfCharge(); math.Abs(got-sc.Expected.FinalSoC) > sc.Expected.SoCTolerance {
		t.Errorf("scenario %s final soc = %v, want %v within %v",
			sc.Name, got, sc.Expected.FinalSoC, sc.Expected.SoCTolerance)
	}
	if constrained != sc.Expected.Constrained {
		t.Errorf("scenario %s expected %d constrained epochs, got %d",
			sc.Name, sc.Expected.Constrained, constrained)
	}
}
