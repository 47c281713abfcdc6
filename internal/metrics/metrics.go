// Package metrics expone los contadores Prometheus del servicio.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MigrationsTotal cuenta migraciones de guest por resultado.
	MigrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventgate",
		Subsystem: "migration",
		Name:      "runs_total",
		Help:      "Guest migrations by result (ok, conflict, not_found, error).",
	}, []string{"result"})

	// MigratedLinksTotal cuenta attendance links copiados durante migraciones.
	MigratedLinksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventgate",
		Subsystem: "migration",
		Name:      "attendance_links_total",
		Help:      "Attendance links copied to durable identities.",
	})

	// MigrationChunksTotal cuenta transacciones commiteadas en migraciones chunked.
	MigrationChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventgate",
		Subsystem: "migration",
		Name:      "chunks_total",
		Help:      "Committed migration chunks (1 for single-transaction runs).",
	})

	// CredentialOpsTotal cuenta operaciones sobre credenciales por tipo y resultado.
	CredentialOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventgate",
		Subsystem: "credential",
		Name:      "ops_total",
		Help:      "Credential index operations (register, remove, lookup) by result.",
	}, []string{"op", "result"})

	// OrphanIndexHealedTotal cuenta entradas de índice huérfanas autocuradas.
	OrphanIndexHealedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventgate",
		Subsystem: "credential",
		Name:      "orphan_index_healed_total",
		Help:      "Orphaned credential index entries deleted on lookup.",
	})

	// SessionsRevokedTotal cuenta revocaciones de sesión por motivo.
	SessionsRevokedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventgate",
		Subsystem: "session",
		Name:      "revocations_total",
		Help:      "Session revocation events by reason.",
	}, []string{"reason"})

	// SessionValidationsTotal cuenta validaciones de sesión por resultado.
	SessionValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventgate",
		Subsystem: "session",
		Name:      "validations_total",
		Help:      "Session validations by result (ok, expired, revoked, env_mismatch, invalid).",
	}, []string{"result"})
)
