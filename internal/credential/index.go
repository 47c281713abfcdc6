// Package credential mantiene el índice plano credential id -> user id y
// el ciclo de vida de las passkeys registradas.
//
// Invariante: la entrada del índice existe si y solo si existe el
// CredentialRecord bajo el user dueño. Ambos se escriben y borran en la
// misma transacción; ningún estado parcial es observable.
package credential

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/eventgate/internal/audit"
	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/metrics"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
)

// Errores del índice.
var (
	// ErrNotFound: la credencial no existe (o su índice era huérfano y fue
	// autocurado).
	ErrNotFound = errors.New("credential: not found")

	// ErrDuplicate: ya existe una credencial con ese id.
	ErrDuplicate = errors.New("credential: duplicate credential id")

	// ErrCounterRegression: el signature counter retrocedió; posible clon
	// del authenticator.
	ErrCounterRegression = errors.New("credential: signature counter regression")
)

// Index implementa las operaciones del credential index.
type Index struct {
	store docstore.Store
	now   func() time.Time
}

// NewIndex crea el índice sobre el docstore dado.
func NewIndex(s docstore.Store) *Index {
	return &Index{store: s, now: time.Now}
}

// Register escribe el CredentialRecord bajo el user y la entrada del índice
// plano en una única transacción atómica. Si cualquiera de las dos
// escrituras falla (p.ej. credential id duplicado) no queda nada persistido.
func (ix *Index) Register(ctx context.Context, userID string, cred *types.CredentialRecord) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("credential"), logger.Op("Register"))

	now := ix.now().UTC()
	cred.UserID = userID
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	entry := &types.CredentialIndexEntry{
		CredentialID: cred.ID,
		UserID:       userID,
		CreatedAt:    now,
	}

	err := ix.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		if err := tx.Create(docstore.CredentialPath(userID, cred.ID), cred); err != nil {
			return err
		}
		return tx.Create(docstore.CredentialIndexPath(cred.ID), entry)
	})
	if docstore.IsConflict(err) {
		metrics.CredentialOpsTotal.WithLabelValues("register", "duplicate").Inc()
		return ErrDuplicate
	}
	if err != nil {
		metrics.CredentialOpsTotal.WithLabelValues("register", "error").Inc()
		return err
	}

	metrics.CredentialOpsTotal.WithLabelValues("register", "ok").Inc()
	audit.Log(ctx, "credential.registered", map[string]any{
		"user_id":       userID,
		"credential_id": cred.ID,
	})
	log.Info("credential registered", logger.UserID(userID), logger.CredentialID(cred.ID))
	return nil
}

// Remove borra el CredentialRecord y la entrada del índice en una única
// transacción. Retorna cuántas credenciales le quedan al user después del
// borrado; la política de "no dejar al user sin credenciales" es del caller.
func (ix *Index) Remove(ctx context.Context, userID, credentialID string) (remaining int, err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("credential"), logger.Op("Remove"))

	snaps, err := ix.store.Query(ctx, docstore.UserCredentials(userID), "user_id", userID)
	if err != nil {
		return 0, err
	}
	found := false
	for _, s := range snaps {
		if s.Path == docstore.CredentialPath(userID, credentialID) {
			found = true
			break
		}
	}
	if !found {
		metrics.CredentialOpsTotal.WithLabelValues("remove", "not_found").Inc()
		return len(snaps), ErrNotFound
	}

	err = ix.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		var rec types.CredentialRecord
		if err := tx.Get(docstore.CredentialPath(userID, credentialID), &rec); err != nil {
			return err
		}
		if err := tx.Delete(docstore.CredentialPath(userID, credentialID)); err != nil {
			return err
		}
		return tx.Delete(docstore.CredentialIndexPath(credentialID))
	})
	if docstore.IsNotFound(err) {
		metrics.CredentialOpsTotal.WithLabelValues("remove", "not_found").Inc()
		return len(snaps), ErrNotFound
	}
	if err != nil {
		metrics.CredentialOpsTotal.WithLabelValues("remove", "error").Inc()
		return len(snaps), err
	}

	remaining = len(snaps) - 1
	metrics.CredentialOpsTotal.WithLabelValues("remove", "ok").Inc()
	audit.Log(ctx, "credential.removed", map[string]any{
		"user_id":       userID,
		"credential_id": credentialID,
		"remaining":     remaining,
	})
	if remaining == 0 {
		log.Warn("user has no remaining credentials", logger.UserID(userID))
	}
	return remaining, nil
}

// Lookup resuelve credential id -> CredentialRecord en O(1) vía el índice
// plano. Si la entrada apunta a un record inexistente (índice huérfano de un
// fallo parcial previo o tooling externo), borra la entrada y reporta
// ErrNotFound: self-healing en detección, nunca un error irrecuperable.
func (ix *Index) Lookup(ctx context.Context, credentialID string) (*types.CredentialRecord, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("credential"), logger.Op("Lookup"))

	var entry types.CredentialIndexEntry
	err := ix.store.Get(ctx, docstore.CredentialIndexPath(credentialID), &entry)
	if docstore.IsNotFound(err) {
		metrics.CredentialOpsTotal.WithLabelValues("lookup", "not_found").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec types.CredentialRecord
	err = ix.store.Get(ctx, docstore.CredentialPath(entry.UserID, credentialID), &rec)
	if docstore.IsNotFound(err) {
		// Índice huérfano: autocurar.
		if delErr := ix.store.Delete(ctx, docstore.CredentialIndexPath(credentialID)); delErr != nil {
			log.Warn("failed to delete orphaned index entry", logger.CredentialID(credentialID), logger.Err(delErr))
		} else {
			metrics.OrphanIndexHealedTotal.Inc()
			audit.Log(ctx, "credential.orphan_index_healed", map[string]any{
				"credential_id": credentialID,
				"user_id":       entry.UserID,
			})
			log.Warn("orphaned credential index entry healed", logger.CredentialID(credentialID), logger.UserID(entry.UserID))
		}
		metrics.CredentialOpsTotal.WithLabelValues("lookup", "orphan").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	metrics.CredentialOpsTotal.WithLabelValues("lookup", "ok").Inc()
	return &rec, nil
}

// UpdateSignCount registra el counter reportado por el authenticator tras
// una aserción exitosa. El counter es monotónico no decreciente: una
// regresión indica un posible clon y se rechaza sin actualizar.
func (ix *Index) UpdateSignCount(ctx context.Context, userID, credentialID string, count uint32) error {
	var regression bool
	err := ix.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		var rec types.CredentialRecord
		if err := tx.Get(docstore.CredentialPath(userID, credentialID), &rec); err != nil {
			return err
		}
		if count > 0 && count < rec.SignCount {
			regression = true
			return ErrCounterRegression
		}
		return tx.Update(docstore.CredentialPath(userID, credentialID), map[string]any{
			"sign_count":   count,
			"last_used_at": ix.now().UTC(),
		})
	})
	if regression {
		audit.Log(ctx, "credential.counter_regression", map[string]any{
			"user_id":       userID,
			"credential_id": credentialID,
			"reported":      count,
		})
		return ErrCounterRegression
	}
	if docstore.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
