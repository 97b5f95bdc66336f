// Package keybroker issues and unwraps per-user data keys through a KMS.
//
// Every key is bound to an encryption context of the owning user id and the
// fixed purpose "file_encryption", so a key generated for one user can never
// be decrypted on behalf of another. Plaintext keys are returned to the
// caller and never cached, logged or persisted here.
package keybroker

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/logging"
	"github.com/dmitrijs2005/secdrive/internal/server/metrics"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
)

// KMS is the subset of the AWS KMS API the broker needs. *kms.Client and
// *LocalKMS both satisfy it.
type KMS interface {
	GenerateDataKey(ctx context.Context, in *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, in *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

type Broker struct {
	kms     KMS
	keyID   string
	timeout time.Duration
	log     logging.Logger
}

func NewBroker(k KMS, keyID string, timeout time.Duration, log logging.Logger) *Broker {
	return &Broker{kms: k, keyID: keyID, timeout: timeout, log: log.With("module", "keybroker")}
}

// EncryptionContext returns the context every data key of userID is bound to.
func EncryptionContext(userID string) map[string]string {
	return map[string]string{
		common.ContextKeyUserID:  userID,
		common.ContextKeyPurpose: common.EncryptionPurpose,
	}
}

// GenerateDataKey asks the KMS for a fresh AES-256 key for userID. On any
// KMS failure no key is returned.
func (b *Broker) GenerateDataKey(ctx context.Context, userID string) (*models.DataKey, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", common.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	out, err := b.kms.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:             aws.String(b.keyID),
		KeySpec:           types.DataKeySpecAes256,
		EncryptionContext: EncryptionContext(userID),
	})
	if err != nil {
		return nil, b.fail(ctx, "generate", userID, err)
	}
	if len(out.Plaintext) != common.DataKeySize {
		common.WipeByteArray(out.Plaintext)
		return nil, b.fail(ctx, "generate", userID, fmt.Errorf("unexpected key length %d", len(out.Plaintext)))
	}

	metrics.KMSRequestsTotal.WithLabelValues("generate", metrics.ResultOK).Inc()
	b.log.Debug(ctx, "data key generated", "user_id", userID)

	return &models.DataKey{
		Plaintext:  out.Plaintext,
		Ciphertext: out.CiphertextBlob,
		KeyID:      aws.ToString(out.KeyId),
	}, nil
}

// DecryptDataKey unwraps encryptedKey under userID's context. A key that was
// generated for a different user is rejected by the KMS.
func (b *Broker) DecryptDataKey(ctx context.Context, userID string, encryptedKey []byte) (*models.DataKey, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", common.ErrValidation)
	}
	if len(encryptedKey) == 0 {
		return nil, fmt.Errorf("%w: encrypted_key is required", common.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	out, err := b.kms.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    encryptedKey,
		KeyId:             aws.String(b.keyID),
		EncryptionContext: EncryptionContext(userID),
	})
	if err != nil {
		return nil, b.fail(ctx, "decrypt", userID, err)
	}
	if len(out.Plaintext) != common.DataKeySize {
		common.WipeByteArray(out.Plaintext)
		return nil, b.fail(ctx, "decrypt", userID, fmt.Errorf("unexpected key length %d", len(out.Plaintext)))
	}

	metrics.KMSRequestsTotal.WithLabelValues("decrypt", metrics.ResultOK).Inc()

	return &models.DataKey{
		Plaintext:  out.Plaintext,
		Ciphertext: encryptedKey,
		KeyID:      aws.ToString(out.KeyId),
	}, nil
}

func (b *Broker) fail(ctx context.Context, op, userID string, err error) error {
	metrics.KMSRequestsTotal.WithLabelValues(op, metrics.ResultError).Inc()
	b.log.Error(ctx, "kms call failed", "operation", op, "user_id", userID, "error", err)
	return fmt.Errorf("%w: %s data key: %w", common.ErrKeyService, op, err)
}
