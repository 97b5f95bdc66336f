// Package models defines server-side data models persisted by the metadata
// store or passed between the key broker, object placement and coordinator.
package models

import "time"

// FileRecord describes one confirmed upload. The (client-side encrypted)
// bytes live in object storage under ObjectKey.
type FileRecord struct {
	// FileID is the primary key, assigned when the upload slot was issued.
	FileID string `dynamodbav:"file_id"`
	// UserID is the owner of the file.
	UserID string `dynamodbav:"user_id"`

	FileName    string `dynamodbav:"file_name"`
	FileSize    int64  `dynamodbav:"file_size"`
	ContentType string `dynamodbav:"content_type"`
	// Extension is derived from FileName (text after the last dot).
	Extension string `dynamodbav:"extension"`

	// ObjectKey is the object-storage key of the ciphertext blob.
	ObjectKey string `dynamodbav:"s3_key"`
	// EncryptedKey is the KMS ciphertext of the file's data key, if the client sent it.
	EncryptedKey []byte `dynamodbav:"encrypted_key,omitempty"`

	UploadedAt time.Time `dynamodbav:"upload_date"`
	// IsFolder is reserved for a future hierarchy and is always false.
	IsFolder bool `dynamodbav:"is_folder"`
}

// UploadSlot is a presigned PUT capability for one object key.
type UploadSlot struct {
	URL       string
	FileID    string
	ObjectKey string
	Bucket    string
	ExpiresAt time.Time
}
