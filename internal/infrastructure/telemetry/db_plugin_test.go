package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type probeRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T, plugin gorm.Plugin) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&probeRow{}))
	if plugin != nil {
		require.NoError(t, db.Use(plugin))
	}
	return db
}

func setupTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func TestDefaultDBPluginConfig(t *testing.T) {
	cfg := DefaultDBPluginConfig()

	assert.False(t, cfg.TraceEnabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Nil(t, cfg.Meter)
}

func TestDBPlugin_OtelGormSpans(t *testing.T) {
	tp, recorder := setupTracer(t)
	cfg := DefaultDBPluginConfig()
	cfg.TraceEnabled = true
	cfg.TracerProvider = tp

	plugin, err := NewDBPlugin(cfg, zap.NewNop())
	require.NoError(t, err)
	db := setupTestDB(t, plugin)

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	require.NoError(t, db.WithContext(ctx).Create(&probeRow{Name: "a"}).Error)
	var found probeRow
	require.NoError(t, db.WithContext(ctx).First(&found, "name = ?", "a").Error)
	span.End()

	spans := recorder.Ended()
	assert.Greater(t, len(spans), 1, "statements get their own spans")
}

func TestDBPlugin_SlowQueryMarksSpan(t *testing.T) {
	tp, recorder := setupTracer(t)
	cfg := DefaultDBPluginConfig()
	cfg.SlowQueryThresh = time.Nanosecond

	plugin, err := NewDBPlugin(cfg, zap.NewNop())
	require.NoError(t, err)
	db := setupTestDB(t, plugin)

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	var rows []probeRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := attribute.NewSet(ended[0].Attributes()...)
	slow, ok := attrs.Value("db.slow_query")
	require.True(t, ok)
	assert.True(t, slow.AsBool())
	table, _ := attrs.Value("db.sql.table")
	assert.Equal(t, "probe_rows", table.AsString())

	var sawEvent bool
	for _, ev := range ended[0].Events() {
		sawEvent = sawEvent || ev.Name == "slow_query_warning"
	}
	assert.True(t, sawEvent)
}

func TestDBPlugin_NotFoundIsNotAnError(t *testing.T) {
	tp, recorder := setupTracer(t)
	plugin, err := NewDBPlugin(DefaultDBPluginConfig(), zap.NewNop())
	require.NoError(t, err)
	db := setupTestDB(t, plugin)

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	var row probeRow
	assert.ErrorIs(t, db.WithContext(ctx).First(&row, 42).Error, gorm.ErrRecordNotFound)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Empty(t, ended[0].Events())
}

func TestDBPlugin_RecordsQueryMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	cfg := DefaultDBPluginConfig()
	cfg.Meter = provider.Meter("db.client")
	plugin, err := NewDBPlugin(cfg, zap.NewNop())
	require.NoError(t, err)
	db := setupTestDB(t, plugin)

	require.NoError(t, db.Create(&probeRow{Name: "a"}).Error)
	require.NoError(t, db.Create(&probeRow{Name: "b"}).Error)
	var rows []probeRow
	require.NoError(t, db.Find(&rows).Error)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byOp := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "db_query_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				op, _ := dp.Attributes.Value(AttrDBOperation)
				byOp[op.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), byOp["INSERT"])
	assert.Equal(t, int64(1), byOp["SELECT"])
}

func TestDBPlugin_DoubleRegistrationFails(t *testing.T) {
	plugin, err := NewDBPlugin(DefaultDBPluginConfig(), zap.NewNop())
	require.NoError(t, err)
	db := setupTestDB(t, plugin)

	assert.Error(t, db.Use(plugin))
}

func TestDetectOperationType(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM payments":      "SELECT",
		"  insert into outbox_events": "INSERT",
		"UPDATE subscriptions SET":    "UPDATE",
		"delete from refund_records":  "DELETE",
		"PRAGMA foreign_keys = ON":    "OTHER",
		"":                            "OTHER",
	}
	for sql, want := range tests {
		assert.Equal(t, want, detectOperationType(sql), sql)
	}
}
