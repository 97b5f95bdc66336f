package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const envPrefix = "SECDRIVE_"

// parseEnv overlays SECDRIVE_* environment variables. Unset variables leave
// the current value alone.
func parseEnv(c *Config) error {
	strs := map[string]*string{
		"HTTP_ADDR":             &c.HTTPAddr,
		"LOG_LEVEL":             &c.LogLevel,
		"LOG_FORMAT":            &c.LogFormat,
		"STORE_BACKEND":         &c.StoreBackend,
		"DATABASE_DSN":          &c.DatabaseDSN,
		"DYNAMODB_FILES_TABLE":  &c.DynamoFilesTable,
		"DYNAMODB_USERS_TABLE":  &c.DynamoUsersTable,
		"DYNAMODB_USER_INDEX":   &c.DynamoUserIndex,
		"DYNAMODB_ENDPOINT":     &c.DynamoEndpoint,
		"AWS_REGION":            &c.AWSRegion,
		"AWS_ACCESS_KEY_ID":     &c.AWSAccessKeyID,
		"AWS_SECRET_ACCESS_KEY": &c.AWSSecretAccessKey,
		"S3_BUCKET":             &c.S3Bucket,
		"S3_BASE_ENDPOINT":      &c.S3BaseEndpoint,
		"KMS_PROVIDER":          &c.KMSProvider,
		"KMS_KEY_ID":            &c.KMSKeyID,
		"KMS_BASE_ENDPOINT":     &c.KMSBaseEndpoint,
		"LOCAL_KMS_MASTER_KEY":  &c.LocalKMSMasterKey,
		"SECRET_KEY":            &c.SecretKey,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"KMS_TIMEOUT":        &c.KMSTimeout,
		"S3_TIMEOUT":         &c.S3Timeout,
		"STORE_TIMEOUT":      &c.StoreTimeout,
		"HTTP_READ_TIMEOUT":  &c.HTTPReadTimeout,
		"HTTP_WRITE_TIMEOUT": &c.HTTPWriteTimeout,
		"HTTP_IDLE_TIMEOUT":  &c.HTTPIdleTimeout,
		"SHUTDOWN_TIMEOUT":   &c.ShutdownTimeout,
		"SLOT_EXPIRY":        &c.SlotExpiry,
		"TOKEN_TTL":          &c.TokenTTL,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: invalid duration %q (use 30s, 1h, 15m)", envPrefix, name, v)
		}
		*dst = d
	}

	bools := map[string]*bool{
		"S3_USE_PATH_STYLE": &c.S3UsePathStyle,
		"VERIFY_UPLOADS":    &c.VerifyUploads,
		"REQUIRE_TOKEN":     &c.RequireToken,
	}
	for name, dst := range bools {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: invalid boolean %q", envPrefix, name, v)
		}
		*dst = b
	}

	return nil
}
