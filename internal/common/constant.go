// Package common contains shared constants and sentinel errors used across
// secdrive components.
package common

// AuthorizationHeaderName carries the bearer token when identity binding
// is enabled.
const AuthorizationHeaderName = "Authorization"

// EncryptionPurpose is bound into every data key's encryption context.
const EncryptionPurpose = "file_encryption"

// Encryption context keys understood by the key broker.
const (
	ContextKeyUserID  = "user_id"
	ContextKeyPurpose = "purpose"
)

// DefaultContentType is used when an upload does not declare one.
const DefaultContentType = "application/octet-stream"

// DataKeySize is the length in bytes of a generated data key (AES-256).
const DataKeySize = 32
