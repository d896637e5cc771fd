package cli

import (
	"context"
	"eats/internal/blob"
	"eats/internal/config"
	"eats/internal/core"
	"eats/internal/eatsml"
	"eats/pkg/domain"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

// app holds everything a command needs once the configuration is loaded.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	svc      *core.Service
	blobs    blob.Store
	codec    []eatsml.Option
}

func openApp(ctx context.Context, configPath string, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(stderr)

	store, err := core.OpenStore(cfg.StorageSelection(), core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.BlobSelection())
	if err != nil {
		_ = core.CloseStore(store)
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	details, err := cfg.RecordDetails()
	if err != nil {
		_ = core.CloseStore(store)
		return nil, fmt.Errorf("load authority record schemes: %w", err)
	}

	reg := prometheus.NewRegistry()
	recorder, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		_ = core.CloseStore(store)
		return nil, err
	}
	metrics, err := eatsml.NewMetrics(reg)
	if err != nil {
		_ = core.CloseStore(store)
		return nil, err
	}

	svc := core.NewService(store,
		core.WithLogger(logger),
		core.WithBlobStore(blobs),
		core.WithRecordDetailsGenerator(details),
		core.WithMetricsRecorder(recorder),
		core.WithTracer(core.OTelTracer{}),
	)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		svc:      svc,
		blobs:    blobs,
	}
	a.codec = []eatsml.Option{
		eatsml.FromService(svc),
		eatsml.WithLogger(logger),
		eatsml.WithMetrics(metrics),
		eatsml.WithTracer(otel.Tracer("eats/eatsml")),
		eatsml.WithBatchSize(cfg.Export.BatchSize),
		eatsml.WithReverseRelationships(cfg.Export.ReverseRelationships),
		eatsml.WithDiagnostics(blobs, cfg.Export.DiagnosticKey),
	}
	return a, nil
}

func (a *app) Close() error {
	return core.CloseStore(a.svc.Store())
}

// user resolves the acting user named on the command line.
func (a *app) user(ctx context.Context, username string) (domain.User, error) {
	if username == "" {
		return domain.User{}, errors.New("an acting user is required (--user)")
	}
	return a.svc.FindUser(ctx, username)
}
