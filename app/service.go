package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/storagesim/config"
	coremetrics "github.com/kilianp07/storagesim/core/metrics"
	"github.com/kilianp07/storagesim/core/source"
	"github.com/kilianp07/storagesim/core/storage"
	"github.com/kilianp07/storagesim/infra/logger"
	inframetrics "github.com/kilianp07/storagesim/infra/metrics"
	"github.com/kilianp07/storagesim/infra/mqtt"
	"github.com/kilianp07/storagesim/internal/eventbus"
)

// Service wires the storage component to the broker and the metric sinks.
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	resource *StorageResource
	client   *mqtt.PahoClient
	events   *eventbus.TypedBus[coremetrics.EpochResult]
	sink     coremetrics.MetricsSink
	src      source.SetpointSource
}

// New builds the service from the loaded configuration. Construction fails
// when the device configuration is invalid or the broker is unreachable.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	engine, err := storage.New(cfg.Storage.Engine(), logger.New("storage"))
	if err != nil {
		return nil, fmt.Errorf("storage engine: %w", err)
	}

	var src source.SetpointSource
	if cfg.Source.CSVFile != "" {
		src, err = source.OpenCSV(cfg.Source.CSVFile, cfg.Source.DelimiterRune())
		if err != nil {
			return nil, fmt.Errorf("setpoint source: %w", err)
		}
	}

	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		if src != nil {
			src.Close()
		}
		return nil, fmt.Errorf("mqtt: %w", err)
	}

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		prom, err := inframetrics.NewPromSink(cfg.Metrics)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("prometheus sink: %w", err)
		}
		sinks = append(sinks, prom)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, inframetrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = coremetrics.NewMultiSink(sinks...)
	}

	events := eventbus.NewTyped[coremetrics.EpochResult]()
	resource := NewStorageResource(engine, src, client, events,
		cfg.Component.SimulationID, cfg.Component.Name, cfg.MQTT.TopicPrefix,
		logger.New("resource"))

	return &Service{
		cfg:      cfg,
		log:      log,
		resource: resource,
		client:   client,
		events:   events,
		sink:     sink,
		src:      src,
	}, nil
}

// Run starts the component and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go runCollector(ctx, s.events, s.sink, s.log)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := inframetrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prometheus server: %v", err)
			}
		}()
	}
	if err := s.resource.Start(); err != nil {
		return err
	}
	s.log.Infof("component %s started", s.cfg.Component.Name)
	<-ctx.Done()
	s.Close()
	return nil
}

// Close releases the broker connection and the setpoint source.
func (s *Service) Close() {
	s.events.Close()
	if s.src != nil {
		if err := s.src.Close(); err != nil {
			s.log.Errorf("close setpoint source: %v", err)
		}
	}
	s.client.Close()
}
