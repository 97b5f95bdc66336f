// Package cryptox seals file contents on the client with a per-file data key.
//
// The blob layout matches what browser clients produce with WebCrypto:
//
//	iv (12 bytes) || AES-256-GCM ciphertext || tag (16 bytes)
//
// No additional authenticated data is used.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/secdrive/internal/common"
)

// NonceSize is the length of the IV prefix of every blob.
const NonceSize = 12

// Overhead is how much longer a blob is than its plaintext.
const Overhead = NonceSize + 16

var (
	ErrKeySize    = errors.New("data key must be 32 bytes")
	ErrShortBlob  = errors.New("encrypted blob is too short")
	ErrDecryption = errors.New("decryption failed")
)

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != common.DataKeySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptBlob seals plaintext under key with a fresh random IV and returns
// iv||ciphertext.
func EncryptBlob(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+aesgcm.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	return aesgcm.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// DecryptBlob opens a blob produced by EncryptBlob (or by a browser client
// using the same layout).
func DecryptBlob(blob, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < NonceSize+aesgcm.Overhead() {
		return nil, ErrShortBlob
	}

	plaintext, err := aesgcm.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}
