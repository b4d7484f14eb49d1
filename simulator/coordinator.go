package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/storagesim/infra/mqtt"
)

// EpochOutcome is what the component reported back for one epoch.
type EpochOutcome struct {
	EpochNumber   int64
	RequestedKW   float64
	AchievedKW    float64
	StateOfCharge float64
	Constrained   bool
}

// Coordinator publishes epochs and collects the component's answers.
type Coordinator struct {
	cfg    Config
	client paho.Client
	rng    *rand.Rand

	states   chan mqtt.ResourceStateMessage
	statuses chan mqtt.StatusMessage
}

func newMQTTClient(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}

// NewCoordinator connects to the broker and subscribes to the component's
// resource state and status topics.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	cli, err := newMQTTClient(cfg.Broker, "simulator-"+cfg.SimulationID)
	if err != nil {
		return nil, err
	}
	c := &Coordinator{
		cfg:      cfg,
		client:   cli,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		states:   make(chan mqtt.ResourceStateMessage, 8),
		statuses: make(chan mqtt.StatusMessage, 8),
	}
	stateTopic := mqtt.ResourceStateTopic(cfg.TopicPrefix, cfg.Component)
	if token := cli.Subscribe(stateTopic, 1, c.onState); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return nil, token.Error()
	}
	statusTopic := mqtt.StatusTopic(cfg.TopicPrefix, cfg.Component)
	if token := cli.Subscribe(statusTopic, 1, c.onStatus); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return nil, token.Error()
	}
	return c, nil
}

func (c *Coordinator) onState(_ paho.Client, msg paho.Message) {
	var state mqtt.ResourceStateMessage
	if err := json.Unmarshal(msg.Payload(), &state); err != nil {
		log.Printf("invalid resource state: %v", err)
		return
	}
	select {
	case c.states <- state:
	default:
	}
}

func (c *Coordinator) onStatus(_ paho.Client, msg paho.Message) {
	var status mqtt.StatusMessage
	if err := json.Unmarshal(msg.Payload(), &status); err != nil {
		log.Printf("invalid status: %v", err)
		return
	}
	select {
	case c.statuses <- status:
	default:
	}
}

// Run drives the configured number of epochs and returns the outcomes.
func (c *Coordinator) Run(ctx context.Context) ([]EpochOutcome, error) {
	start := time.Now().UTC().Truncate(c.cfg.EpochLength)
	var results []EpochOutcome
	for i := 1; i <= c.cfg.Epochs; i++ {
		number := int64(i)
		epoch := mqtt.EpochMessage{
			Envelope:  mqtt.NewEnvelope(c.cfg.SimulationID, "simulator", number),
			StartTime: start,
			EndTime:   start.Add(c.cfg.EpochLength),
		}
		start = epoch.EndTime
		if err := c.publish(mqtt.EpochTopic(c.cfg.TopicPrefix), epoch); err != nil {
			return results, fmt.Errorf("epoch %d: %w", number, err)
		}

		requested := 0.0
		if c.cfg.Setpoints {
			requested = (c.rng.Float64()*2 - 1) * c.cfg.MaxPowerKW
			setpoint := mqtt.SetpointMessage{
				Envelope:  mqtt.NewEnvelope(c.cfg.SimulationID, "simulator", number),
				RealPower: requested,
			}
			topic := mqtt.SetpointTopic(c.cfg.TopicPrefix, c.cfg.Component)
			if err := c.publish(topic, setpoint); err != nil {
				return results, fmt.Errorf("epoch %d: %w", number, err)
			}
		}

		outcome, err := c.await(ctx, number, requested)
		if err != nil {
			return results, err
		}
		results = append(results, outcome)
		log.Printf("epoch %d: achieved %.2f kW, soc %.2f%%",
			number, outcome.AchievedKW, outcome.StateOfCharge)
	}
	return results, nil
}

// await blocks until the component reports for the epoch.
func (c *Coordinator) await(ctx context.Context, number int64, requested float64) (EpochOutcome, error) {
	outcome := EpochOutcome{EpochNumber: number, RequestedKW: requested}
	haveState := false
	deadline := time.NewTimer(c.cfg.Timeout)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return outcome, ctx.Err()
		case <-deadline.C:
			return outcome, fmt.Errorf("epoch %d: no answer within %s", number, c.cfg.Timeout)
		case state := <-c.states:
			if state.EpochNumber != number {
				continue
			}
			outcome.AchievedKW = state.RealPower
			outcome.StateOfCharge = state.StateOfCharge
			outcome.Constrained = len(state.Warnings) > 0
			haveState = true
		case status := <-c.statuses:
			if status.EpochNumber != number {
				continue
			}
			if status.Value == mqtt.StatusError {
				return outcome, fmt.Errorf("epoch %d: component reported %q", number, status.Description)
			}
			if haveState {
				return outcome, nil
			}
		}
	}
}

func (c *Coordinator) publish(topic string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout on %s", topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (c *Coordinator) Close() {
	c.client.Disconnect(250)
}
