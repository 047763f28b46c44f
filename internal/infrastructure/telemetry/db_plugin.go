package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBPluginConfig holds configuration for database instrumentation.
type DBPluginConfig struct {
	// TraceEnabled wraps every statement in an otelgorm span.
	TraceEnabled bool
	// LogFullSQL includes bound query variables in spans. Development only.
	LogFullSQL bool
	// SlowQueryThresh marks queries slower than this on the span and in metrics.
	SlowQueryThresh time.Duration
	// DBName is reported as db.name on spans.
	DBName string
	// Meter records query metrics when non-nil.
	Meter metric.Meter
	// TracerProvider overrides the global provider for otelgorm spans.
	TracerProvider trace.TracerProvider
}

// DefaultDBPluginConfig returns default configuration for database instrumentation.
func DefaultDBPluginConfig() DBPluginConfig {
	return DBPluginConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "paycore",
	}
}

// DBPlugin is a gorm.Plugin that traces statements through otelgorm and
// records query counts, latency and slow queries.
type DBPlugin struct {
	config DBPluginConfig
	logger *zap.Logger

	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
}

// DBDurationBuckets are bucket boundaries for database query duration (seconds).
var DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// NewDBPlugin creates the plugin. Pass it to persistence.WithPlugins.
func NewDBPlugin(cfg DBPluginConfig, logger *zap.Logger) (*DBPlugin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	p := &DBPlugin{config: cfg, logger: logger}
	if cfg.Meter == nil {
		return p, nil
	}

	var err error
	p.queryTotal, err = NewCounter(cfg.Meter, "db_query_total",
		"Total number of database queries by operation type", "{query}")
	if err != nil {
		return nil, err
	}
	p.queryDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	p.slowQueryTotal, err = NewCounter(cfg.Meter, "db_slow_query_total",
		"Total number of slow database queries", "{query}")
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Name implements gorm.Plugin.
func (p *DBPlugin) Name() string {
	return "paycore:telemetry"
}

// Initialize implements gorm.Plugin.
func (p *DBPlugin) Initialize(db *gorm.DB) error {
	if p.config.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
		if !p.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if p.config.TracerProvider != nil {
			opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	registrations := []func() error{
		func() error {
			return cb.Create().Before("gorm:create").Register("paycore_telemetry:before_create", p.before)
		},
		func() error {
			return cb.Query().Before("gorm:query").Register("paycore_telemetry:before_query", p.before)
		},
		func() error {
			return cb.Update().Before("gorm:update").Register("paycore_telemetry:before_update", p.before)
		},
		func() error {
			return cb.Delete().Before("gorm:delete").Register("paycore_telemetry:before_delete", p.before)
		},
		func() error {
			return cb.Row().Before("gorm:row").Register("paycore_telemetry:before_row", p.before)
		},
		func() error {
			return cb.Raw().Before("gorm:raw").Register("paycore_telemetry:before_raw", p.before)
		},
		func() error {
			return cb.Create().After("gorm:create").Register("paycore_telemetry:after_create", p.after)
		},
		func() error {
			return cb.Query().After("gorm:query").Register("paycore_telemetry:after_query", p.after)
		},
		func() error {
			return cb.Update().After("gorm:update").Register("paycore_telemetry:after_update", p.after)
		},
		func() error {
			return cb.Delete().After("gorm:delete").Register("paycore_telemetry:after_delete", p.after)
		},
		func() error {
			return cb.Row().After("gorm:row").Register("paycore_telemetry:after_row", p.after)
		},
		func() error {
			return cb.Raw().After("gorm:raw").Register("paycore_telemetry:after_raw", p.after)
		},
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}

	p.logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", p.config.TraceEnabled),
		zap.Bool("metrics", p.config.Meter != nil),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

type queryStartKey struct{}

func (p *DBPlugin) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
}

func (p *DBPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	var elapsed time.Duration
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		elapsed = time.Since(start)
	}
	slow := elapsed > p.config.SlowQueryThresh
	failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)

	if p.queryTotal != nil {
		attrs := []attribute.KeyValue{
			AttrDBOperation.String(detectOperationType(db.Statement.SQL.String())),
			AttrDBTable.String(db.Statement.Table),
			attribute.Bool("error", failed),
		}
		p.queryTotal.Inc(ctx, attrs...)
		p.queryDuration.RecordDuration(ctx, elapsed, attrs[:2]...)
		if slow {
			p.slowQueryTotal.Inc(ctx, attrs[:2]...)
		}
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if failed {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

// detectOperationType derives the SQL verb from the rendered statement.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}

var _ gorm.Plugin = (*DBPlugin)(nil)
