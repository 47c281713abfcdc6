// Package secretbox cifra payloads chicos con AES-256-GCM.
//
// El formato en el wire es base64url(nonce || ciphertext), apto para
// cookies. La clave la provee el caller; acá no hay estado global.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeyLength es el largo de clave requerido (AES-256).
const KeyLength = 32

const nonceSizeGCM = 12 // 96 bits, el recomendado para GCM

// ErrDecrypt: el ciphertext no se pudo abrir con esa clave (clave
// incorrecta, payload truncado o manipulado). Indistinguible a propósito.
var ErrDecrypt = errors.New("secretbox: cannot decrypt")

// Seal cifra plaintext y devuelve base64url(nonce || ciphertext).
func Seal(key, plaintext []byte) (string, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}

	out := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open descifra un payload producido por Seal. Cualquier fallo de decode,
// tamaño o autenticación GCM colapsa en ErrDecrypt.
func Open(key []byte, encoded string) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) <= nonceSizeGCM {
		return nil, ErrDecrypt
	}

	pt, err := aesgcm.Open(nil, raw[:nonceSizeGCM], raw[nonceSizeGCM:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, fmt.Errorf("secretbox: key must be %d bytes, got %d", KeyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}
	return cipher.NewGCM(block)
}
