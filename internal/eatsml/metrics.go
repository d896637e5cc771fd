package eatsml

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "eats/internal/eatsml"

// Export kinds used as metric labels.
const (
	exportKindEntities       = "entities"
	exportKindInfrastructure = "infrastructure"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the codec collectors. A nil *Metrics records nothing.
type Metrics struct {
	exports        *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	imports        *prometheus.CounterVec
	created        *prometheus.CounterVec
}

// NewMetrics registers the codec collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eats",
			Name:      "export_total",
			Help:      "EATSML exports by kind and outcome.",
		}, []string{"kind", "status"}),
		exportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eats",
			Name:      "export_duration_seconds",
			Help:      "EATSML export latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eats",
			Name:      "import_total",
			Help:      "EATSML imports by outcome.",
		}, []string{"status"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eats",
			Name:      "import_objects_created_total",
			Help:      "Objects created by committed EATSML imports.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{m.exports, m.exportDuration, m.imports, m.created} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeExport(kind string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(kind, status(err)).Inc()
	m.exportDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *Metrics) observeImport(err error, created map[string]int) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(status(err)).Inc()
	if err != nil {
		return
	}
	for kind, n := range created {
		m.created.WithLabelValues(kind).Add(float64(n))
	}
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusSuccess
}

func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return tracer.Start(ctx, "eatsml."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
