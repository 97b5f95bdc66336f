package keybroker

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/dmitrijs2005/secdrive/internal/common"
)

const localBlobVersion byte = 1

// LocalKMS is an in-process stand-in for AWS KMS used in development. Data
// keys are sealed with XChaCha20-Poly1305 under a per-key-id wrapping key
// derived from the master secret; the encryption context is the AEAD
// additional data, so a context mismatch fails like it does in AWS.
//
// Blob layout: version | len(keyID) | keyID | nonce | sealed key.
type LocalKMS struct {
	master []byte
	rand   io.Reader
}

func NewLocalKMS(master []byte) (*LocalKMS, error) {
	if len(master) < 16 {
		return nil, errors.New("local kms master secret must be at least 16 bytes")
	}
	return &LocalKMS{master: append([]byte(nil), master...), rand: rand.Reader}, nil
}

func (l *LocalKMS) wrappingKey(keyID string) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, l.master, nil, []byte("secdrive/local-kms/"+keyID))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// canonicalContext serializes ctx with sorted keys.
func canonicalContext(ctx map[string]string) ([]byte, error) {
	if len(ctx) == 0 {
		return nil, nil
	}
	return json.Marshal(ctx)
}

func (l *LocalKMS) GenerateDataKey(ctx context.Context, in *kms.GenerateDataKeyInput, _ ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keyID := aws.ToString(in.KeyId)
	if keyID == "" {
		return nil, &types.NotFoundException{Message: aws.String("key id is required")}
	}
	if len(keyID) > 255 {
		return nil, &types.NotFoundException{Message: aws.String("key id too long")}
	}

	size := common.DataKeySize
	switch {
	case in.NumberOfBytes != nil:
		size = int(*in.NumberOfBytes)
	case in.KeySpec == types.DataKeySpecAes128:
		size = 16
	}

	plaintext := make([]byte, size)
	if _, err := io.ReadFull(l.rand, plaintext); err != nil {
		return nil, &types.KMSInternalException{Message: aws.String(err.Error())}
	}

	blob, err := l.seal(keyID, plaintext, in.EncryptionContext)
	if err != nil {
		common.WipeByteArray(plaintext)
		return nil, err
	}

	return &kms.GenerateDataKeyOutput{
		KeyId:          aws.String(keyID),
		Plaintext:      plaintext,
		CiphertextBlob: blob,
	}, nil
}

func (l *LocalKMS) Decrypt(ctx context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keyID, nonce, sealed, err := splitBlob(in.CiphertextBlob)
	if err != nil {
		return nil, err
	}
	if want := aws.ToString(in.KeyId); want != "" && want != keyID {
		return nil, &types.IncorrectKeyException{Message: aws.String("ciphertext was not encrypted under " + want)}
	}

	wk, err := l.wrappingKey(keyID)
	if err != nil {
		return nil, &types.KMSInternalException{Message: aws.String(err.Error())}
	}
	defer common.WipeByteArray(wk)

	aead, err := chacha20poly1305.NewX(wk)
	if err != nil {
		return nil, &types.KMSInternalException{Message: aws.String(err.Error())}
	}
	aad, err := canonicalContext(in.EncryptionContext)
	if err != nil {
		return nil, &types.KMSInternalException{Message: aws.String(err.Error())}
	}

	plaintext, err := aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, &types.InvalidCiphertextException{Message: aws.String("ciphertext or encryption context mismatch")}
	}

	return &kms.DecryptOutput{KeyId: aws.String(keyID), Plaintext: plaintext}, nil
}

func (l *LocalKMS) seal(keyID string, plaintext []byte, encCtx map[string]string) ([]byte, error) {
	wk, err := l.wrappingKey(keyID)
	if err != nil {
		return nil, &types.KMSInternalException{Message: aws.String(err.Error())}
	}
	defer common.WipeByteArray(wk)

	aead, err := chacha20poly1305.NewX(wk)
	if err != nil {
		return nil, &types.KMSInternalException{Message: aws.String(err.Error())}
	}
	aad, err := canonicalContext(encCtx)
	if err != nil {
		return nil, &types.KMSInternalException{Message: aws.String(err.Error())}
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(l.rand, nonce); err != nil {
		return nil, &types.KMSInternalException{Message: aws.String(err.Error())}
	}

	blob := make([]byte, 0, 2+len(keyID)+len(nonce)+len(plaintext)+aead.Overhead())
	blob = append(blob, localBlobVersion, byte(len(keyID)))
	blob = append(blob, keyID...)
	blob = append(blob, nonce...)
	return aead.Seal(blob, nonce, plaintext, aad), nil
}

func splitBlob(blob []byte) (keyID string, nonce, sealed []byte, err error) {
	invalid := func(reason string) error {
		return &types.InvalidCiphertextException{Message: aws.String(fmt.Sprintf("malformed ciphertext: %s", reason))}
	}

	if len(blob) < 2 {
		return "", nil, nil, invalid("too short")
	}
	if blob[0] != localBlobVersion {
		return "", nil, nil, invalid("unknown version")
	}
	n := int(blob[1])
	rest := blob[2:]
	if len(rest) < n+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", nil, nil, invalid("truncated")
	}
	keyID = string(rest[:n])
	rest = rest[n:]
	return keyID, rest[:chacha20poly1305.NonceSizeX], rest[chacha20poly1305.NonceSizeX:], nil
}
