// Package audit emite eventos de auditoría estructurados.
// Hoy salen por el logger (JSON en prod); el sink puede cambiar sin tocar
// los call sites.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/eventgate/internal/observability/logger"
)

// Log escribe un evento de auditoría con campos arbitrarios.
func Log(ctx context.Context, event string, fields map[string]any) {
	zf := make([]zap.Field, 0, len(fields)+1)
	zf = append(zf, zap.String("audit_event", event))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	logger.From(ctx).Named("audit").Info("audit", zf...)
}
