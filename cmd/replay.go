package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/storagesim/config"
	"github.com/kilianp07/storagesim/core/source"
	"github.com/kilianp07/storagesim/core/storage"
	"github.com/kilianp07/storagesim/infra/logger"
)

var (
	replayCSV        string
	replayEpochHours float64
	replayEpochs     int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a setpoint series against the storage model without a broker",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayCSV, "csv", "", "setpoint series, overrides the configured source")
	replayCmd.Flags().Float64Var(&replayEpochHours, "epoch-hours", 0.25, "length of each epoch in hours")
	replayCmd.Flags().IntVar(&replayEpochs, "epochs", 0, "number of epochs to replay, 0 replays the whole series")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	csvPath := cfg.Source.CSVFile
	if replayCSV != "" {
		csvPath = replayCSV
	}
	if csvPath == "" {
		return errors.New("replay needs a setpoint series, set source.csv_file or --csv")
	}
	if replayEpochHours <= 0 {
		return errors.New("--epoch-hours must be positive")
	}

	engine, err := storage.New(cfg.Storage.Engine(), logger.New("storage"))
	if err != nil {
		return fmt.Errorf("storage engine: %w", err)
	}
	src, err := source.OpenCSV(csvPath, cfg.Source.DelimiterRune())
	if err != nil {
		return fmt.Errorf("setpoint source: %w", err)
	}
	defer src.Close()

	out := cmd.OutOrStdout()
	var achieved, socs []float64
	constrained := 0
	for epoch := 1; replayEpochs == 0 || epoch <= replayEpochs; epoch++ {
		row, err := src.Next()
		if errors.Is(err, source.ErrExhausted) {
			break
		}
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		state, err := engine.Transition(row.RealPowerKW, replayEpochHours)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		flag := ""
		if state.RealPowerKW != row.RealPowerKW {
			flag = " constrained"
			constrained++
		}
		fmt.Fprintf(out, "epoch %4d  requested %8.2f kW  achieved %8.2f kW  soc %6.2f%%%s\n",
			epoch, row.RealPowerKW, state.RealPowerKW, state.StateOfCharge, flag)
		achieved = append(achieved, state.RealPowerKW)
		socs = append(socs, state.StateOfCharge)
	}
	if len(achieved) == 0 {
		return errors.New("the setpoint series is empty")
	}

	fmt.Fprintf(out, "\nepochs %d, constrained %d\n", len(achieved), constrained)
	fmt.Fprintf(out, "achieved power  mean %.2f kW  stddev %.2f kW\n",
		stat.Mean(achieved, nil), stat.StdDev(achieved, nil))
	fmt.Fprintf(out, "state of charge mean %.2f%%  final %.2f%%\n",
		stat.Mean(socs, nil), socs[len(socs)-1])
	return nil
}
