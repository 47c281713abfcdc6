package docstore

import (
	"encoding/json"
	"fmt"
)

// EncodeDoc serializa un valor a su representación de documento
// (map JSON-compatible). Exportado para los adapters.
func EncodeDoc(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("docstore: encode: %w", err)
	}
	return m, nil
}

func decodeMap(m map[string]any, out any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	return nil
}

// DecodeDoc deserializa un documento en out. Exportado para los adapters.
func DecodeDoc(m map[string]any, out any) error {
	return decodeMap(m, out)
}

// FieldPresent reporta si un campo existe con valor no vacío en el documento.
// Usado por los adapters para evaluar Precondition.FieldAbsent.
func FieldPresent(doc map[string]any, field string) bool {
	v, ok := doc[field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}
