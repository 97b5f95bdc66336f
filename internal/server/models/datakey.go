package models

// DataKey is a per-file symmetric key in both of its forms. It is never
// persisted as a whole: only Ciphertext may be stored (inside a FileRecord).
type DataKey struct {
	// Plaintext is the raw AES-256 key. It must only travel in the response
	// that produced it and must never be logged.
	Plaintext []byte
	// Ciphertext is the KMS-wrapped key, bound to the owner's encryption context.
	Ciphertext []byte
	// KeyID identifies the KMS key that wrapped Ciphertext.
	KeyID string
}
