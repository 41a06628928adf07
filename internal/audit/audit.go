// Package audit escribe eventos de auditoría como líneas estructuradas en un
// logger dedicado ("audit"), separables del resto por el campo logger.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/yandexid/internal/observability/logger"
)

// Log writes a structured audit event.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	l := logger.From(ctx).Named("audit")
	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.String("event", event), zap.Time("ts", time.Now().UTC()))
	all = append(all, fields...)
	l.Info("audit", all...)
}
