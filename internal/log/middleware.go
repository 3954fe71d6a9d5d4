package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := NewContext(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware adds request ID to logger context
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := extractRequestID(r)
			logger := FromContext(r.Context()).With(FieldRequestID, requestID)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogLedgerMutation records a committed transaction change and the number
// of budget rows it moved.
func (sl *StructuredLogger) LogLedgerMutation(ctx context.Context, op string, id, categoryID int64, amount string, budgetsTouched int) {
	fields := NewFields().
		WithTransaction(id, categoryID, amount).
		WithOperation(op).
		ToSlice()
	fields = append(fields, "budgets_touched", budgetsTouched)

	sl.logger.InfoContext(ctx, "Ledger updated", fields...)
}

// LogReconciliation records a completed default-currency rescale.
func (sl *StructuredLogger) LogReconciliation(ctx context.Context, from, to, rate string, transactions, budgets int) {
	fields := NewFields().
		WithConversion(from, to, rate).
		WithOperation(OpReconcile).
		ToSlice()
	fields = append(fields, "transactions", transactions, "budgets", budgets)

	sl.logger.InfoContext(ctx, "Default currency reconciled", fields...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	logger := sl.logger
	if component != "" {
		logger = logger.WithComponent(component)
	}
	logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
