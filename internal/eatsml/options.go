package eatsml

import (
	"eats/internal/blob"
	"eats/internal/core"
	"eats/internal/names"

	"go.opentelemetry.io/otel/trace"
)

// DefaultBatchSize is the number of entities exported per batch.
const DefaultBatchSize = 1000

// DefaultDiagnosticKey is the blob key an invalid export is saved under.
const DefaultDiagnosticKey = "diagnostics/invalid-export.xml"

type settings struct {
	logger        core.Logger
	metrics       *Metrics
	tracer        trace.Tracer
	names         core.NameHandler
	records       core.RecordDetailsGenerator
	validator     Validator
	diagnostics   blob.Store
	diagnosticKey string
	batchSize     int
	reverse       bool
	cache         *InfrastructureCache
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:        nopLogger{},
		names:         names.DefaultRegistry(),
		records:       core.DefaultScheme(),
		validator:     SchemaValidator{},
		diagnosticKey: DefaultDiagnosticKey,
		batchSize:     DefaultBatchSize,
		reverse:       true,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures an Exporter or an Importer.
type Option func(*settings)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger core.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records exports and imports on m.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithTracer sets the tracer spans are started on. The global provider is
// used otherwise.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) { s.tracer = tracer }
}

// WithNameHandler replaces the name cleaner and assembler.
func WithNameHandler(handler core.NameHandler) Option {
	return func(s *settings) {
		if handler != nil {
			s.names = handler
		}
	}
}

// WithRecordDetails replaces the generator used for authority records
// flagged auto_create_data.
func WithRecordDetails(generator core.RecordDetailsGenerator) Option {
	return func(s *settings) {
		if generator != nil {
			s.records = generator
		}
	}
}

// WithValidator replaces the document validator.
func WithValidator(v Validator) Option {
	return func(s *settings) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithDiagnostics saves invalid export documents to store under key. An
// empty key selects DefaultDiagnosticKey.
func WithDiagnostics(store blob.Store, key string) Option {
	return func(s *settings) {
		s.diagnostics = store
		if key != "" {
			s.diagnosticKey = key
		}
	}
}

// WithBatchSize sets the number of entities exported per batch.
func WithBatchSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithReverseRelationships controls whether entities relating to a primary
// entity are pulled into an export.
func WithReverseRelationships(enabled bool) Option {
	return func(s *settings) { s.reverse = enabled }
}

// WithCache flushes c after every committed import.
func WithCache(c *InfrastructureCache) Option {
	return func(s *settings) { s.cache = c }
}

// FromService takes the name handler and record id scheme of a service.
func FromService(svc *core.Service) Option {
	return func(s *settings) {
		s.names = svc.Names()
		s.records = svc.Records()
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
