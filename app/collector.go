package app

import (
	"context"

	"github.com/kilianp07/storagesim/core/logger"
	coremetrics "github.com/kilianp07/storagesim/core/metrics"
	"github.com/kilianp07/storagesim/internal/eventbus"
)

// runCollector forwards epoch results from the event bus to the metric sink
// until the context is cancelled or the bus is closed.
func runCollector(ctx context.Context, events *eventbus.TypedBus[coremetrics.EpochResult],
	sink coremetrics.MetricsSink, log logger.Logger) {
	ch := events.Subscribe()
	for {
		select {
		case <-ctx.Done():
			events.Unsubscribe(ch)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := sink.RecordEpochResult(ev); err != nil {
				log.Errorf("record epoch result: %v", err)
			}
		}
	}
}
