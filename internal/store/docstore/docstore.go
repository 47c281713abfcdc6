// Package docstore define el contrato del document store transaccional.
//
// El core trata el backend como un KV de documentos direccionados por path
// ("guests/g1", "users/u1/credentials/c1") con queries de igualdad por
// colección y transacciones atómicas multi-documento con un tope fijo de
// escrituras por transacción.
package docstore

import (
	"context"
	"time"
)

// MaxTxWrites es el tope de escrituras por transacción atómica.
// Es una constante del backend (estilo Firestore/Datastore); superarlo
// produce ErrTxTooLarge antes de commitear nada.
const MaxTxWrites = 500

// Precondition condiciona un Update. La escritura falla con
// ErrPreconditionFailed sin aplicar nada si la condición no se cumple.
type Precondition struct {
	// FieldAbsent exige que el campo no exista o esté vacío en el documento.
	// Implementa "set field only if not already set" (escritura condicional).
	FieldAbsent string
}

// Tx expone las operaciones dentro de una transacción.
// Las escrituras son atómicas: o se aplican todas al commit o ninguna.
type Tx interface {
	// Get lee un documento dentro de la transacción. ErrNotFound si no existe.
	Get(path string, out any) error

	// Create escribe un documento nuevo. ErrConflict si el path ya existe.
	Create(path string, v any) error

	// Set escribe un documento (upsert).
	Set(path string, v any) error

	// Update mergea campos sobre un documento existente.
	// ErrNotFound si no existe; ErrPreconditionFailed si falla la precondición.
	Update(path string, fields map[string]any, pre ...Precondition) error

	// Delete elimina un documento. Borrar un path inexistente no es error.
	Delete(path string) error

	// Writes retorna cuántas escrituras acumula la transacción.
	Writes() int
}

// Snapshot es un documento leído por Query.
type Snapshot struct {
	Path string
	data map[string]any
}

// NewSnapshot construye un snapshot. Exportado para los adapters.
func NewSnapshot(path string, data map[string]any) Snapshot {
	return Snapshot{Path: path, data: data}
}

// Decode deserializa el documento en out.
func (s Snapshot) Decode(out any) error {
	return decodeMap(s.data, out)
}

// Store es la conexión al document store.
type Store interface {
	// Get lee un documento. ErrNotFound si no existe.
	Get(ctx context.Context, path string, out any) error

	// Set escribe un documento fuera de transacción (upsert).
	Set(ctx context.Context, path string, v any) error

	// Delete elimina un documento fuera de transacción.
	Delete(ctx context.Context, path string) error

	// Query retorna los documentos de una colección cuyo campo es igual al
	// valor dado. Solo igualdad: es todo lo que el core necesita.
	Query(ctx context.Context, collection, field, value string) ([]Snapshot, error)

	// RunTransaction ejecuta fn dentro de una transacción atómica.
	// Si fn retorna error la transacción se descarta completa.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close libera recursos.
	Close() error
}

// Timeout por defecto para operaciones del store cuando el caller no acota
// el contexto.
const DefaultTimeout = 10 * time.Second
