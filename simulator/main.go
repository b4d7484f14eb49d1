// Command simulator drives a storage component the way a simulation manager
// would: it publishes epoch messages, optionally random setpoints, and
// collects the resource states the component publishes back.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker       string
	SimulationID string
	TopicPrefix  string
	Component    string
	Epochs       int
	EpochLength  time.Duration
	Timeout      time.Duration
	Setpoints    bool
	MaxPowerKW   float64
	Seed         int64
	Verbose      bool
}

// Validate checks the flag combination.
func (c *Config) Validate() error {
	if c.Component == "" {
		return fmt.Errorf("component name is required")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive")
	}
	if c.EpochLength <= 0 {
		return fmt.Errorf("epoch-length must be positive")
	}
	return nil
}

func main() {
	cfg := parseFlags()
	if err := (&cfg).Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord, err := NewCoordinator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coordinator: %v\n", err)
		os.Exit(1)
	}
	defer coord.Close()

	results, err := coord.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}
	printSummary(results)
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.SimulationID, "simulation-id", "simulation", "simulation run identifier")
	flag.StringVar(&cfg.TopicPrefix, "topic-prefix", "simulation", "MQTT topic prefix")
	flag.StringVar(&cfg.Component, "component", "storage1", "target component name")
	flag.IntVar(&cfg.Epochs, "epochs", 96, "number of epochs to run")
	flag.DurationVar(&cfg.EpochLength, "epoch-length", 15*time.Minute, "simulated time span per epoch")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "wait per epoch for the component")
	flag.BoolVar(&cfg.Setpoints, "setpoints", false, "publish random setpoints instead of relying on a series")
	flag.Float64Var(&cfg.MaxPowerKW, "max-power", 100, "setpoint magnitude bound in kW")
	flag.Int64Var(&cfg.Seed, "seed", time.Now().UnixNano(), "random seed for setpoints")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}

func printSummary(results []EpochOutcome) {
	if len(results) == 0 {
		fmt.Println("no epochs completed")
		return
	}
	var achieved, socs []float64
	constrained := 0
	for _, r := range results {
		achieved = append(achieved, r.AchievedKW)
		socs = append(socs, r.StateOfCharge)
		if r.Constrained {
			constrained++
		}
	}
	fmt.Printf("epochs %d, constrained %d\n", len(results), constrained)
	fmt.Printf("achieved power  mean %.2f kW  stddev %.2f kW\n",
		stat.Mean(achieved, nil), stat.StdDev(achieved, nil))
	fmt.Printf("state of charge mean %.2f%%  final %.2f%%\n",
		stat.Mean(socs, nil), socs[len(socs)-1])
}
