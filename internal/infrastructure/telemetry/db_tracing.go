package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/qualee/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound variables; never in production
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns tracing disabled with a 200ms slow threshold.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingConfigFrom extracts the database tracing settings
func DBTracingConfigFrom(cfg config.TelemetryConfig) DBTracingConfig {
	out := DefaultDBTracingConfig()
	out.Enabled = cfg.DBTraceEnabled
	out.LogFullSQL = cfg.DBLogFullSQL
	if cfg.DBSlowQueryThresh > 0 {
		out.SlowQueryThresh = cfg.DBSlowQueryThresh
	}
	return out
}

// DBTracingPlugin installs otelgorm plus a callback that marks slow
// statements and errors on the active span.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm registers otelgorm and the timing callbacks on db.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
		fn       func(*gorm.DB)
	}{
		{"qualee_timing:before_create", cb.Create().Before("gorm:create").Register, markStart},
		{"qualee_timing:before_query", cb.Query().Before("gorm:query").Register, markStart},
		{"qualee_timing:before_update", cb.Update().Before("gorm:update").Register, markStart},
		{"qualee_timing:before_delete", cb.Delete().Before("gorm:delete").Register, markStart},
		{"qualee_timing:before_row", cb.Row().Before("gorm:row").Register, markStart},
		{"qualee_timing:before_raw", cb.Raw().Before("gorm:raw").Register, markStart},
		{"qualee_timing:after_create", cb.Create().After("gorm:create").Register, p.markSpan},
		{"qualee_timing:after_query", cb.Query().After("gorm:query").Register, p.markSpan},
		{"qualee_timing:after_update", cb.Update().After("gorm:update").Register, p.markSpan},
		{"qualee_timing:after_delete", cb.Delete().After("gorm:delete").Register, p.markSpan},
		{"qualee_timing:after_row", cb.Row().After("gorm:row").Register, p.markSpan},
		{"qualee_timing:after_raw", cb.Raw().After("gorm:raw").Register, p.markSpan},
	}
	for _, step := range steps {
		if err := step.register(step.name, step.fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBTracingPlugin) markSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type queryStartKey struct{}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}
