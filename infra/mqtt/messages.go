package mqtt

import (
	"time"

	"github.com/google/uuid"
)

// WarningInputRange marks a resource state whose achieved power differs from
// the requested setpoint.
const WarningInputRange = "warning.input.range"

// Status values published on the component status topic.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// Envelope carries the metadata shared by every simulation message.
type Envelope struct {
	SimulationID    string    `json:"simulation_id"`
	MessageID       string    `json:"message_id"`
	SourceProcessID string    `json:"source_process_id"`
	EpochNumber     int64     `json:"epoch_number"`
	Timestamp       time.Time `json:"timestamp"`
}

// EpochMessage announces a new simulation epoch with its time span.
type EpochMessage struct {
	Envelope
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// SetpointMessage requests a power from a resource for the current epoch.
type SetpointMessage struct {
	Envelope
	RealPower     float64 `json:"real_power"`
	ReactivePower float64 `json:"reactive_power"`
}

// ResourceStateMessage publishes the state of a resource after an epoch.
type ResourceStateMessage struct {
	Envelope
	TriggeringMessageIDs []string `json:"triggering_message_ids,omitempty"`
	CustomerID           string   `json:"customer_id,omitempty"`
	Node                 *int     `json:"node,omitempty"`
	RealPower            float64  `json:"real_power"`
	ReactivePower        float64  `json:"reactive_power"`
	StateOfCharge        float64  `json:"state_of_charge"`
	Warnings             []string `json:"warnings,omitempty"`
}

// StatusMessage reports component readiness or failure for an epoch.
type StatusMessage struct {
	Envelope
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// NewEnvelope fills the shared metadata with a fresh message id.
func NewEnvelope(simulationID, source string, epoch int64) Envelope {
	return Envelope{
		SimulationID:    simulationID,
		MessageID:       uuid.NewString(),
		SourceProcessID: source,
		EpochNumber:     epoch,
		Timestamp:       time.Now().UTC(),
	}
}
