package core

import (
	"context"
	"eats/internal/blob"
	"eats/internal/infra/persistence/memory"
	"eats/internal/names"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Audited operation names.
const (
	opCreateEntity   = "create_entity"
	opDeleteEntity   = "delete_entity"
	opSaveName       = "save_name"
	opCreateUser     = "create_user"
	opUpdateUser     = "update_user"
	opRegisterImport = "register_import"
)

// Service exposes the transactional operations of the entity graph.
type Service struct {
	store   PersistentStore
	engine  *RulesEngine
	now     func() time.Time
	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	names   NameHandler
	records RecordDetailsGenerator
	blobs   blob.Store
	newID   func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for audit timestamps and, when the store
// accepts one, for record modification times.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit recorder.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithNameHandler replaces the name cleaning and search form generator.
func WithNameHandler(handler NameHandler) ServiceOption {
	return func(s *Service) {
		if handler != nil {
			s.names = handler
		}
	}
}

// WithRecordDetailsGenerator replaces the authority record id scheme.
func WithRecordDetailsGenerator(generator RecordDetailsGenerator) ServiceOption {
	return func(s *Service) {
		if generator != nil {
			s.records = generator
		}
	}
}

// WithBlobStore sets the store registered import documents are archived in.
func WithBlobStore(store blob.Store) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.blobs = store
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	svc := &Service{
		store:   store,
		engine:  extractRulesEngine(store),
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		names:   names.DefaultRegistry(),
		records: DefaultScheme(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.clock != nil {
		if setter, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
			setter.SetNowFunc(svc.clock.Now)
		}
	}
	if svc.blobs == nil {
		svc.blobs = blob.NewMemory()
	}
	svc.now = selectNowFunc(store, svc.clock)
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects NewDefaultRulesEngine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// RulesEngine returns the store's rules engine, or nil when the store does
// not expose one.
func (s *Service) RulesEngine() *RulesEngine { return s.engine }

// Names returns the name handler.
func (s *Service) Names() NameHandler { return s.names }

// Records returns the authority record id generator.
func (s *Service) Records() RecordDetailsGenerator { return s.records }

// Blobs returns the blob store.
func (s *Service) Blobs() blob.Store { return s.blobs }

// Now returns the service time.
func (s *Service) Now() time.Time { return s.now() }

func extractRulesEngine(store PersistentStore) *RulesEngine {
	if provider, ok := store.(interface{ RulesEngine() *RulesEngine }); ok {
		return provider.RulesEngine()
	}
	return nil
}

func selectNowFunc(store PersistentStore, clock Clock) func() time.Time {
	if provider, ok := store.(interface{ NowFunc() func() time.Time }); ok {
		if fn := provider.NowFunc(); fn != nil {
			return func() time.Time { return fn().UTC() }
		}
	}
	if clock != nil {
		return clock.Now
	}
	return func() time.Time { return time.Now().UTC() }
}

// run executes fn in a transaction, wrapping it with tracing, metrics,
// logging and auditing. fn returns the id of the record it acted on.
func (s *Service) run(ctx context.Context, op string, fn func(Transaction) (string, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	var recordID string
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		id, err := fn(tx)
		recordID = id
		return err
	})
	duration := time.Since(start)
	sortViolations(res.Violations)
	s.metrics.Observe(ctx, op, err == nil, duration)
	for _, v := range res.Violations {
		if v.Severity != SeverityBlock {
			s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "message", v.Message)
		}
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
		s.recordAuditFailure(ctx, op, recordID, duration, err)
	} else {
		s.logger.Debug("operation completed", "operation", op, "record", recordID, "duration", duration)
		s.recordAuditSuccess(ctx, op, recordID, duration)
	}
	span.End(err)
	return res, err
}

// view runs a read-only function with tracing and metrics.
func (s *Service) view(ctx context.Context, op string, fn func(TransactionView) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := s.store.View(ctx, fn)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	return err
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, recordID string, duration time.Duration) {
	s.recordAudit(ctx, op, recordID, duration, nil)
}

func (s *Service) recordAuditFailure(ctx context.Context, op, recordID string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, recordID, duration, err)
}

func (s *Service) recordAudit(ctx context.Context, op, recordID string, duration time.Duration, err error) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Kind:      meta.kind,
		Action:    meta.action,
		RecordID:  recordID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// sortViolations orders violations by rule, then record id.
func sortViolations(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].Rule != violations[j].Rule {
			return violations[i].Rule < violations[j].Rule
		}
		return violations[i].RecordID < violations[j].RecordID
	})
}

// IsRuleViolation reports whether err was caused by a blocking rule.
func IsRuleViolation(err error) bool {
	var rv RuleViolationError
	return errors.As(err, &rv)
}
