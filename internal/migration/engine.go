// Package migration implementa la migración exactly-once del historial de
// asistencia de un guest hacia una identidad durable.
//
// La escritura condicional del marker converted_to_user_id (precondición
// field-absent) es la fuente de verdad de "ya convertido": aunque el
// pre-flight check pase, un segundo intento concurrente falla al commitear
// el marker. El pre-flight queda como fast path sin efectos.
package migration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/eventgate/internal/audit"
	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/metrics"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
)

// batchOverhead reserva escrituras no-attendance por transacción: alta de la
// identidad, update del marker del guest y delete de la pending conversion.
const batchOverhead = 3

// Errores del engine.
var (
	// ErrGuestNotFound: el guest no existe.
	ErrGuestNotFound = errors.New("migration: guest not found")

	// ErrAlreadyConverted: el guest ya fue migrado; reintentar tras éxito se
	// rechaza, no se repite en silencio.
	ErrAlreadyConverted = errors.New("migration: guest already converted")

	// ErrTargetNotFound: el user destino del link administrativo no existe.
	ErrTargetNotFound = errors.New("migration: target user not found")
)

// Request describe una migración.
type Request struct {
	GuestID string

	// NewIdentity es la identidad a crear dentro de la migración (populada
	// desde los campos del guest). nil cuando se linkea a un user existente.
	NewIdentity *types.User

	// TargetUserID es el user preexistente destino (path administrativo
	// "link to existing user"). Vacío cuando NewIdentity != nil.
	TargetUserID string

	// DeletePendingEmail, si no es vacío, borra la pending conversion de ese
	// email dentro de la misma transacción final.
	DeletePendingEmail string
}

// Result es el resultado de una migración exitosa.
type Result struct {
	UserID                  string `json:"user_id"`
	MigratedAttendanceCount int    `json:"migrated_attendance_count"`
}

// Engine ejecuta migraciones. Los intentos concurrentes para el mismo guest
// se serializan in-process con singleflight; la escritura condicional del
// marker cubre procesos concurrentes.
type Engine struct {
	store docstore.Store
	group singleflight.Group
	now   func() time.Time
}

// NewEngine crea el engine sobre el docstore dado.
func NewEngine(s docstore.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// Migrate ejecuta la migración completa del guest.
//
// Pre-flight (sin efectos, seguro de reintentar): existencia del guest,
// guard de idempotencia, existencia del user destino. Después copia todos
// los AttendanceLinks en chunks que respetan el tope de escrituras por
// transacción; el marker del guest y el delete de la pending conversion van
// siempre en la última transacción, así una migración chunked parcial es
// detectable (guest sin marcar) y re-ejecutable.
func (e *Engine) Migrate(ctx context.Context, req Request) (*Result, error) {
	v, err, _ := e.group.Do(req.GuestID, func() (any, error) {
		return e.migrate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (e *Engine) migrate(ctx context.Context, req Request) (*Result, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("migration"), logger.Op("Migrate"), logger.GuestID(req.GuestID))

	// 1. Pre-flight: guest existe y no está convertido.
	var guest types.GuestRecord
	err := e.store.Get(ctx, docstore.GuestPath(req.GuestID), &guest)
	if docstore.IsNotFound(err) {
		metrics.MigrationsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrGuestNotFound
	}
	if err != nil {
		return nil, err
	}
	if guest.Converted() {
		metrics.MigrationsTotal.WithLabelValues("conflict").Inc()
		return nil, ErrAlreadyConverted
	}

	// 2. Pre-flight del destino (solo path administrativo).
	userID := req.TargetUserID
	if req.NewIdentity != nil {
		userID = req.NewIdentity.ID
	} else {
		var target types.User
		err := e.store.Get(ctx, docstore.UserPath(req.TargetUserID), &target)
		if docstore.IsNotFound(err) {
			metrics.MigrationsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrTargetNotFound
		}
		if err != nil {
			return nil, err
		}
	}

	// 3. Historial de asistencia del guest, aún sin migrar.
	links, err := e.guestLinks(ctx, req.GuestID)
	if err != nil {
		return nil, err
	}
	n := len(links)

	// 4. Capacidad por chunk: tope del store menos overhead fijo.
	perBatch := docstore.MaxTxWrites - batchOverhead

	// 5/6. Commits secuenciales. Con n <= perBatch es una única transacción
	// all-or-nothing; con más, los chunks intermedios solo copian links y el
	// último lleva marker + delete de pending.
	chunks := chunkLinks(links, perBatch)
	if len(chunks) == 0 {
		chunks = [][]types.AttendanceLink{nil} // migración sin asistencia: solo identidad + marker
	}

	now := e.now().UTC()
	for i, chunk := range chunks {
		first := i == 0
		last := i == len(chunks)-1

		err := e.store.RunTransaction(ctx, func(tx docstore.Tx) error {
			if first && req.NewIdentity != nil {
				if err := tx.Create(docstore.UserPath(req.NewIdentity.ID), req.NewIdentity); err != nil {
					return err
				}
			}
			for _, src := range chunk {
				migrated := types.AttendanceLink{
					ID:           uuid.NewString(),
					OwnerID:      userID,
					EventID:      src.EventID,
					RegisteredAt: src.RegisteredAt, // preserva el timestamp original
					MigratedFrom: src.ID,
					CreatedAt:    now,
				}
				if err := tx.Create(docstore.AttendancePath(migrated.ID), &migrated); err != nil {
					return err
				}
			}
			if last {
				// Escritura condicional: falla si otro proceso ya marcó.
				err := tx.Update(docstore.GuestPath(req.GuestID), map[string]any{
					"converted_to_user_id": userID,
					"updated_at":           now,
				}, docstore.Precondition{FieldAbsent: "converted_to_user_id"})
				if err != nil {
					return err
				}
				if req.DeletePendingEmail != "" {
					if err := tx.Delete(docstore.PendingPath(req.DeletePendingEmail)); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if errors.Is(err, docstore.ErrPreconditionFailed) {
			metrics.MigrationsTotal.WithLabelValues("conflict").Inc()
			return nil, ErrAlreadyConverted
		}
		if err != nil {
			metrics.MigrationsTotal.WithLabelValues("error").Inc()
			if len(chunks) > 1 {
				// Chunks anteriores ya commitearon: el guest sigue sin marcar,
				// re-ejecutar re-copia; el operador depura por migrated_from.
				log.Error("chunked migration failed mid-run; guest left unmarked, re-run and dedupe by provenance",
					logger.Int("committed_chunks", i), logger.Err(err))
			}
			return nil, err
		}
		metrics.MigrationChunksTotal.Inc()
	}

	metrics.MigrationsTotal.WithLabelValues("ok").Inc()
	metrics.MigratedLinksTotal.Add(float64(n))
	audit.Log(ctx, "guest.migrated", map[string]any{
		"guest_id":         req.GuestID,
		"user_id":          userID,
		"migrated_count":   n,
		"chunks":           len(chunks),
		"created_identity": req.NewIdentity != nil,
	})
	log.Info("guest migrated", logger.UserID(userID), logger.Count(n))

	return &Result{UserID: userID, MigratedAttendanceCount: n}, nil
}

// guestLinks retorna los AttendanceLinks del guest en orden estable.
func (e *Engine) guestLinks(ctx context.Context, guestID string) ([]types.AttendanceLink, error) {
	snaps, err := e.store.Query(ctx, docstore.CollectionAttendance, "owner_id", guestID)
	if err != nil {
		return nil, err
	}
	links := make([]types.AttendanceLink, 0, len(snaps))
	for _, s := range snaps {
		var l types.AttendanceLink
		if err := s.Decode(&l); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, nil
}

func chunkLinks(links []types.AttendanceLink, size int) [][]types.AttendanceLink {
	if len(links) == 0 {
		return nil
	}
	var out [][]types.AttendanceLink
	for start := 0; start < len(links); start += size {
		end := start + size
		if end > len(links) {
			end = len(links)
		}
		out = append(out, links[start:end])
	}
	return out
}
