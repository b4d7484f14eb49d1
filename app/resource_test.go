package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/storagesim/core/metrics"
	"github.com/kilianp07/storagesim/core/source"
	"github.com/kilianp07/storagesim/core/storage"
	"github.com/kilianp07/storagesim/infra/logger"
	"github.com/kilianp07/storagesim/infra/mqtt"
	"github.com/kilianp07/storagesim/internal/eventbus"
)

const (
	testSim    = "sim-test"
	testName   = "storage1"
	testPrefix = "simulation"
)

func testEngine(t *testing.T) *storage.State {
	t.Helper()
	engine, err := storage.New(storage.Config{
		CustomerID:           "customer1",
		KWhRated:             100.0,
		KWRated:              100.0,
		ChargeEfficiency:     90.0,
		DischargeEfficiency:  90.0,
		SelfDischarge:        0.0,
		InitialStateOfCharge: 50.0,
	}, logger.NopLogger{})
	require.NoError(t, err)
	return engine
}

func newResource(t *testing.T, src source.SetpointSource, bus mqtt.Bus,
	events *eventbus.TypedBus[coremetrics.EpochResult]) *StorageResource {
	t.Helper()
	return NewStorageResource(testEngine(t), src, bus, events,
		testSim, testName, testPrefix, logger.NopLogger{})
}

func publishEpoch(t *testing.T, bus *mqtt.MockBus, number int64, duration time.Duration) mqtt.EpochMessage {
	t.Helper()
	start := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	msg := mqtt.EpochMessage{
		Envelope:  mqtt.NewEnvelope(testSim, "manager", number),
		StartTime: start,
		EndTime:   start.Add(duration),
	}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(mqtt.EpochTopic(testPrefix), payload))
	return msg
}

func publishSetpoint(t *testing.T, bus *mqtt.MockBus, number int64, power float64) mqtt.SetpointMessage {
	t.Helper()
	msg := mqtt.SetpointMessage{
		Envelope:  mqtt.NewEnvelope(testSim, "controller", number),
		RealPower: power,
	}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(mqtt.SetpointTopic(testPrefix, testName), payload))
	return msg
}

func lastResourceState(t *testing.T, bus *mqtt.MockBus) mqtt.ResourceStateMessage {
	t.Helper()
	published := bus.Published(mqtt.ResourceStateTopic(testPrefix, testName))
	require.NotEmpty(t, published)
	var msg mqtt.ResourceStateMessage
	require.NoError(t, json.Unmarshal(published[len(published)-1], &msg))
	return msg
}

func TestStartAnnouncesReadiness(t *testing.T) {
	bus := mqtt.NewMockBus()
	r := newResource(t, source.NewSliceSource(nil), bus, nil)
	require.NoError(t, r.Start())

	published := bus.Published(mqtt.StatusTopic(testPrefix, testName))
	require.Len(t, published, 1)
	var status mqtt.StatusMessage
	require.NoError(t, json.Unmarshal(published[0], &status))
	assert.Equal(t, mqtt.StatusReady, status.Value)
	assert.Equal(t, int64(0), status.EpochNumber)
}

func TestSourceDrivenEpoch(t *testing.T) {
	bus := mqtt.NewMockBus()
	src := source.NewSliceSource([]source.Row{{RealPowerKW: 40}})
	events := eventbus.NewTyped[coremetrics.EpochResult]()
	ch := events.Subscribe()
	r := newResource(t, src, bus, events)
	require.NoError(t, r.Start())

	epoch := publishEpoch(t, bus, 1, 15*time.Minute)

	state := lastResourceState(t, bus)
	assert.Equal(t, int64(1), state.EpochNumber)
	assert.Equal(t, []string{epoch.MessageID}, state.TriggeringMessageIDs)
	assert.Equal(t, "customer1", state.CustomerID)
	assert.Equal(t, 40.0, state.RealPower)
	assert.Empty(t, state.Warnings)
	assert.InDelta(t, 50.0-(1.0/0.9*40*0.25), state.StateOfCharge, 1e-9)

	select {
	case ev := <-ch:
		assert.Equal(t, testName, ev.Component)
		assert.Equal(t, int64(1), ev.EpochNumber)
		assert.Equal(t, 40.0, ev.RequestedKW)
		assert.False(t, ev.Constrained)
	default:
		t.Fatal("expected an epoch result on the event bus")
	}
}

func TestSourceDrivenReassignsIdentity(t *testing.T) {
	bus := mqtt.NewMockBus()
	src := source.NewSliceSource([]source.Row{
		{RealPowerKW: 10, CustomerID: "customer2", HasCustomerID: true, Node: "2", HasNode: true},
	})
	r := newResource(t, src, bus, nil)
	require.NoError(t, r.Start())

	publishEpoch(t, bus, 1, time.Hour)

	state := lastResourceState(t, bus)
	assert.Equal(t, "customer2", state.CustomerID)
	require.NotNil(t, state.Node)
	assert.Equal(t, 2, *state.Node)
}

func TestSetpointDrivenEpochWaitsForSetpoint(t *testing.T) {
	bus := mqtt.NewMockBus()
	r := newResource(t, nil, bus, nil)
	require.NoError(t, r.Start())

	epoch := publishEpoch(t, bus, 1, 15*time.Minute)
	assert.Empty(t, bus.Published(mqtt.ResourceStateTopic(testPrefix, testName)))

	setpoint := publishSetpoint(t, bus, 1, 250)

	state := lastResourceState(t, bus)
	assert.Equal(t, []string{epoch.MessageID, setpoint.MessageID}, state.TriggeringMessageIDs)
	assert.Equal(t, 100.0, state.RealPower)
	assert.Equal(t, []string{mqtt.WarningInputRange}, state.Warnings)
}

func TestStaleSetpointIgnored(t *testing.T) {
	bus := mqtt.NewMockBus()
	r := newResource(t, nil, bus, nil)
	require.NoError(t, r.Start())

	publishEpoch(t, bus, 2, 15*time.Minute)
	publishSetpoint(t, bus, 1, 40)
	assert.Empty(t, bus.Published(mqtt.ResourceStateTopic(testPrefix, testName)))

	publishSetpoint(t, bus, 2, 40)
	state := lastResourceState(t, bus)
	assert.Equal(t, int64(2), state.EpochNumber)
}

func TestDuplicateEpochIgnored(t *testing.T) {
	bus := mqtt.NewMockBus()
	src := source.NewSliceSource([]source.Row{{RealPowerKW: 10}, {RealPowerKW: 20}})
	r := newResource(t, src, bus, nil)
	require.NoError(t, r.Start())

	publishEpoch(t, bus, 1, time.Hour)
	publishEpoch(t, bus, 1, time.Hour)

	published := bus.Published(mqtt.ResourceStateTopic(testPrefix, testName))
	assert.Len(t, published, 1)
}

func TestExhaustedSourcePublishesError(t *testing.T) {
	bus := mqtt.NewMockBus()
	src := source.NewSliceSource([]source.Row{{RealPowerKW: 10}})
	r := newResource(t, src, bus, nil)
	require.NoError(t, r.Start())

	publishEpoch(t, bus, 1, time.Hour)
	publishEpoch(t, bus, 2, time.Hour)

	published := bus.Published(mqtt.StatusTopic(testPrefix, testName))
	require.NotEmpty(t, published)
	var status mqtt.StatusMessage
	require.NoError(t, json.Unmarshal(published[len(published)-1], &status))
	assert.Equal(t, mqtt.StatusError, status.Value)
	assert.Equal(t, int64(2), status.EpochNumber)
	assert.NotEmpty(t, status.Description)
}

func TestNegativeEpochSpanPublishesError(t *testing.T) {
	bus := mqtt.NewMockBus()
	src := source.NewSliceSource([]source.Row{{RealPowerKW: 10}})
	r := newResource(t, src, bus, nil)
	require.NoError(t, r.Start())

	publishEpoch(t, bus, 1, -time.Hour)

	published := bus.Published(mqtt.StatusTopic(testPrefix, testName))
	require.NotEmpty(t, published)
	var status mqtt.StatusMessage
	require.NoError(t, json.Unmarshal(published[len(published)-1], &status))
	assert.Equal(t, mqtt.StatusError, status.Value)
}
