package app

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/storagesim/core/logger"
	coremetrics "github.com/kilianp07/storagesim/core/metrics"
	"github.com/kilianp07/storagesim/core/model"
	"github.com/kilianp07/storagesim/core/source"
	"github.com/kilianp07/storagesim/core/storage"
	"github.com/kilianp07/storagesim/infra/mqtt"
	"github.com/kilianp07/storagesim/internal/eventbus"
)

// StorageResource is the simulation component around the storage engine. It
// receives epoch notifications from the coordinator, resolves the requested
// power for the epoch from either a pre-recorded series or a setpoint
// message, advances the engine, and publishes the resulting resource state.
type StorageResource struct {
	engine *storage.State
	src    source.SetpointSource // nil when setpoints arrive over the bus
	bus    mqtt.Bus
	events *eventbus.TypedBus[coremetrics.EpochResult]
	log    logger.Logger

	simulationID string
	name         string
	prefix       string

	mu             sync.Mutex
	epoch          *mqtt.EpochMessage
	setpoint       *mqtt.SetpointMessage
	processedEpoch int64
}

// NewStorageResource assembles a component. src may be nil, in which case the
// component subscribes to its setpoint topic.
func NewStorageResource(engine *storage.State, src source.SetpointSource, bus mqtt.Bus,
	events *eventbus.TypedBus[coremetrics.EpochResult], simulationID, name, prefix string,
	log logger.Logger) *StorageResource {
	return &StorageResource{
		engine:       engine,
		src:          src,
		bus:          bus,
		events:       events,
		log:          log,
		simulationID: simulationID,
		name:         name,
		prefix:       prefix,
	}
}

// Start subscribes to the epoch topic, and to the setpoint topic when no
// pre-recorded source is configured, then announces readiness.
func (r *StorageResource) Start() error {
	if err := r.bus.Subscribe(mqtt.EpochTopic(r.prefix), r.onEpoch); err != nil {
		return fmt.Errorf("subscribe epoch topic: %w", err)
	}
	if r.src == nil {
		topic := mqtt.SetpointTopic(r.prefix, r.name)
		if err := r.bus.Subscribe(topic, r.onSetpoint); err != nil {
			return fmt.Errorf("subscribe setpoint topic: %w", err)
		}
		r.log.Infof("listening for setpoint messages on %s", topic)
	} else {
		r.log.Infof("using a pre-recorded series as the setpoint source")
	}
	return r.publishStatus(0, mqtt.StatusReady, "")
}

func (r *StorageResource) onEpoch(_ string, payload []byte) {
	var msg mqtt.EpochMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.log.Errorf("invalid epoch message: %v", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.EpochNumber <= r.processedEpoch {
		r.log.Warnf("epoch %d already processed, ignoring message %s", msg.EpochNumber, msg.MessageID)
		return
	}
	r.epoch = &msg
	r.tryProcessLocked()
}

func (r *StorageResource) onSetpoint(_ string, payload []byte) {
	var msg mqtt.SetpointMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.log.Errorf("invalid setpoint message: %v", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch == nil || msg.EpochNumber != r.epoch.EpochNumber {
		current := int64(0)
		if r.epoch != nil {
			current = r.epoch.EpochNumber
		}
		r.log.Warnf("got setpoint message %s for epoch %d but expected it for epoch %d",
			msg.MessageID, msg.EpochNumber, current)
		return
	}
	if r.setpoint != nil && r.setpoint.EpochNumber == msg.EpochNumber {
		r.log.Warnf("already had a setpoint for epoch %d, ignoring message %s", msg.EpochNumber, msg.MessageID)
		return
	}
	r.setpoint = &msg
	r.tryProcessLocked()
}

// readyLocked reports whether the current epoch can be processed.
func (r *StorageResource) readyLocked() bool {
	if r.epoch == nil || r.epoch.EpochNumber <= r.processedEpoch {
		return false
	}
	return r.src != nil || (r.setpoint != nil && r.setpoint.EpochNumber == r.epoch.EpochNumber)
}

func (r *StorageResource) tryProcessLocked() {
	if !r.readyLocked() {
		return
	}
	epoch := *r.epoch
	if err := r.processEpoch(epoch); err != nil {
		r.log.Errorf("epoch %d: %v", epoch.EpochNumber, err)
		if perr := r.publishStatus(epoch.EpochNumber, mqtt.StatusError, err.Error()); perr != nil {
			r.log.Errorf("publish error status: %v", perr)
		}
	}
	r.processedEpoch = epoch.EpochNumber
	r.setpoint = nil
}

// processEpoch resolves the requested power, advances the engine and
// publishes the resulting resource state.
func (r *StorageResource) processEpoch(msg mqtt.EpochMessage) error {
	epoch := model.Epoch{Number: msg.EpochNumber, StartTime: msg.StartTime, EndTime: msg.EndTime}
	triggering := []string{msg.MessageID}
	var requested model.Setpoint
	if r.src != nil {
		row, err := r.src.Next()
		if err != nil {
			return fmt.Errorf("setpoint source: %w", err)
		}
		// Passthrough identity may change per row.
		if row.HasCustomerID {
			r.engine.SetCustomerID(row.CustomerID)
		}
		if row.HasNode {
			if err := r.engine.SetNode(row.Node); err != nil {
				return fmt.Errorf("setpoint source: %w", err)
			}
		}
		requested = model.Setpoint{RealPowerKW: row.RealPowerKW, ReactivePowerKW: row.ReactivePowerKW}
	} else {
		requested = model.Setpoint{RealPowerKW: r.setpoint.RealPower, ReactivePowerKW: r.setpoint.ReactivePower}
		triggering = append(triggering, r.setpoint.MessageID)
	}

	duration := epoch.DurationHours()
	state, err := r.engine.Transition(requested.RealPowerKW, duration)
	if err != nil {
		return fmt.Errorf("transition: %w", err)
	}

	out := mqtt.ResourceStateMessage{
		Envelope:             mqtt.NewEnvelope(r.simulationID, r.name, epoch.Number),
		TriggeringMessageIDs: triggering,
		CustomerID:           state.CustomerID,
		Node:                 state.Node,
		RealPower:            state.RealPowerKW,
		ReactivePower:        state.ReactivePowerKW,
		StateOfCharge:        state.StateOfCharge,
	}
	constrained := state.RealPowerKW != requested.RealPowerKW
	if constrained {
		// The device could not operate at the requested power.
		out.Warnings = []string{mqtt.WarningInputRange}
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal resource state: %w", err)
	}
	if err := r.bus.Publish(mqtt.ResourceStateTopic(r.prefix, r.name), payload); err != nil {
		return fmt.Errorf("publish resource state: %w", err)
	}
	if err := r.publishStatus(epoch.Number, mqtt.StatusReady, ""); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}

	if r.events != nil {
		r.events.Publish(coremetrics.EpochResult{
			Component:     r.name,
			EpochNumber:   epoch.Number,
			RequestedKW:   requested.RealPowerKW,
			AchievedKW:    state.RealPowerKW,
			StateOfCharge: state.StateOfCharge,
			DurationHours: duration,
			Constrained:   constrained,
			Time:          time.Now().UTC(),
		})
	}
	return nil
}

func (r *StorageResource) publishStatus(epoch int64, value, description string) error {
	msg := mqtt.StatusMessage{
		Envelope:    mqtt.NewEnvelope(r.simulationID, r.name, epoch),
		Value:       value,
		Description: description,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.bus.Publish(mqtt.StatusTopic(r.prefix, r.name), payload)
}
