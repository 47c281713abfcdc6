package docstore

import "errors"

// Errores comunes del store.
var (
	// ErrNotFound indica que el documento no existe.
	ErrNotFound = errors.New("docstore: not found")

	// ErrConflict indica que un Create chocó con un documento existente.
	ErrConflict = errors.New("docstore: conflict")

	// ErrPreconditionFailed indica fallo de una escritura condicional.
	ErrPreconditionFailed = errors.New("docstore: precondition failed")

	// ErrTxTooLarge indica que la transacción supera MaxTxWrites.
	ErrTxTooLarge = errors.New("docstore: transaction exceeds write limit")
)

// IsNotFound helper para verificar si el error es por documento inexistente.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict helper para verificar conflictos de escritura.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
