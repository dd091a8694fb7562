// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package observability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogTracer is a Tracer implementation that emits spans as structured log
// lines rather than to an external trace store. It requires no optional
// build tags and is the default tracer for standalone deployments.
type LogTracer struct {
	logger *zap.Logger
}

// NewLogTracer creates a tracer that logs span lifecycle events through the
// given zap logger. A nil logger falls back to zap.NewNop().
func NewLogTracer(logger *zap.Logger) *LogTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTracer{logger: logger}
}

// StartSpan creates a new span, linking it to any parent found in ctx.
func (t *LogTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span) {
	span := &Span{
		TraceID:    uuid.New().String(),
		SpanID:     uuid.New().String(),
		Name:       name,
		StartTime:  time.Now(),
		Attributes: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(span)
	}
	if parent := SpanFromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	}
	return ContextWithSpan(ctx, span), span
}

// EndSpan finalizes a span and writes it to the log at debug (success) or
// warn (error status) level.
func (t *LogTracer) EndSpan(span *Span) {
	if span == nil {
		return
	}
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)

	fields := []zap.Field{
		zap.String("span_id", span.SpanID),
		zap.String("trace_id", span.TraceID),
		zap.String("parent_id", span.ParentID),
		zap.Duration("duration", span.Duration),
		zap.Any("attributes", span.Attributes),
	}
	if span.Status.Code == StatusError {
		t.logger.Warn(span.Name, append(fields, zap.String("error", span.Status.Message))...)
		return
	}
	t.logger.Debug(span.Name, fields...)
}

// RecordMetric logs a point-in-time metric value.
func (t *LogTracer) RecordMetric(name string, value float64, labels map[string]string) {
	t.logger.Debug("metric", zap.String("name", name), zap.Float64("value", value), zap.Any("labels", labels))
}

// RecordEvent logs a standalone event.
func (t *LogTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	t.logger.Debug(name, zap.Any("attributes", attributes))
}

// Flush syncs the underlying logger, writing out any buffered log lines.
func (t *LogTracer) Flush(ctx context.Context) error {
	return t.logger.Sync()
}

var _ Tracer = (*LogTracer)(nil)
