package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/secdrive/internal/flagx"
	"github.com/dmitrijs2005/secdrive/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "5s" and integer nanoseconds are accepted.
//
// Keys missing from the file keep the value they had before parseJson ran.
type JsonConfig struct {
	HTTPAddr  string `json:"http_addr"`
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	StoreBackend     string `json:"store_backend"`
	DatabaseDSN      string `json:"database_dsn"`
	DynamoFilesTable string `json:"dynamodb_files_table"`
	DynamoUsersTable string `json:"dynamodb_users_table"`
	DynamoUserIndex  string `json:"dynamodb_user_index"`
	DynamoEndpoint   string `json:"dynamodb_endpoint"`

	AWSRegion          string `json:"aws_region"`
	AWSAccessKeyID     string `json:"aws_access_key_id"`
	AWSSecretAccessKey string `json:"aws_secret_access_key"`

	S3Bucket       string `json:"s3_bucket"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3UsePathStyle bool   `json:"s3_use_path_style"`

	KMSProvider       string `json:"kms_provider"`
	KMSKeyID          string `json:"kms_key_id"`
	KMSBaseEndpoint   string `json:"kms_base_endpoint"`
	LocalKMSMasterKey string `json:"local_kms_master_key"`

	KMSTimeout   timex.Duration `json:"kms_timeout"`
	S3Timeout    timex.Duration `json:"s3_timeout"`
	StoreTimeout timex.Duration `json:"store_timeout"`

	HTTPReadTimeout  timex.Duration `json:"http_read_timeout"`
	HTTPWriteTimeout timex.Duration `json:"http_write_timeout"`
	HTTPIdleTimeout  timex.Duration `json:"http_idle_timeout"`
	ShutdownTimeout  timex.Duration `json:"shutdown_timeout"`

	SlotExpiry    timex.Duration `json:"slot_expiry"`
	VerifyUploads bool           `json:"verify_uploads"`

	RequireToken bool           `json:"require_token"`
	SecretKey    string         `json:"secret_key"`
	TokenTTL     timex.Duration `json:"token_ttl"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:           c.HTTPAddr,
		LogLevel:           c.LogLevel,
		LogFormat:          c.LogFormat,
		StoreBackend:       c.StoreBackend,
		DatabaseDSN:        c.DatabaseDSN,
		DynamoFilesTable:   c.DynamoFilesTable,
		DynamoUsersTable:   c.DynamoUsersTable,
		DynamoUserIndex:    c.DynamoUserIndex,
		DynamoEndpoint:     c.DynamoEndpoint,
		AWSRegion:          c.AWSRegion,
		AWSAccessKeyID:     c.AWSAccessKeyID,
		AWSSecretAccessKey: c.AWSSecretAccessKey,
		S3Bucket:           c.S3Bucket,
		S3BaseEndpoint:     c.S3BaseEndpoint,
		S3UsePathStyle:     c.S3UsePathStyle,
		KMSProvider:        c.KMSProvider,
		KMSKeyID:           c.KMSKeyID,
		KMSBaseEndpoint:    c.KMSBaseEndpoint,
		LocalKMSMasterKey:  c.LocalKMSMasterKey,
		KMSTimeout:         timex.Duration{Duration: c.KMSTimeout},
		S3Timeout:          timex.Duration{Duration: c.S3Timeout},
		StoreTimeout:       timex.Duration{Duration: c.StoreTimeout},
		HTTPReadTimeout:    timex.Duration{Duration: c.HTTPReadTimeout},
		HTTPWriteTimeout:   timex.Duration{Duration: c.HTTPWriteTimeout},
		HTTPIdleTimeout:    timex.Duration{Duration: c.HTTPIdleTimeout},
		ShutdownTimeout:    timex.Duration{Duration: c.ShutdownTimeout},
		SlotExpiry:         timex.Duration{Duration: c.SlotExpiry},
		VerifyUploads:      c.VerifyUploads,
		RequireToken:       c.RequireToken,
		SecretKey:          c.SecretKey,
		TokenTTL:           timex.Duration{Duration: c.TokenTTL},
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.HTTPAddr = j.HTTPAddr
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
	c.StoreBackend = j.StoreBackend
	c.DatabaseDSN = j.DatabaseDSN
	c.DynamoFilesTable = j.DynamoFilesTable
	c.DynamoUsersTable = j.DynamoUsersTable
	c.DynamoUserIndex = j.DynamoUserIndex
	c.DynamoEndpoint = j.DynamoEndpoint
	c.AWSRegion = j.AWSRegion
	c.AWSAccessKeyID = j.AWSAccessKeyID
	c.AWSSecretAccessKey = j.AWSSecretAccessKey
	c.S3Bucket = j.S3Bucket
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.S3UsePathStyle = j.S3UsePathStyle
	c.KMSProvider = j.KMSProvider
	c.KMSKeyID = j.KMSKeyID
	c.KMSBaseEndpoint = j.KMSBaseEndpoint
	c.LocalKMSMasterKey = j.LocalKMSMasterKey
	c.KMSTimeout = j.KMSTimeout.Duration
	c.S3Timeout = j.S3Timeout.Duration
	c.StoreTimeout = j.StoreTimeout.Duration
	c.HTTPReadTimeout = j.HTTPReadTimeout.Duration
	c.HTTPWriteTimeout = j.HTTPWriteTimeout.Duration
	c.HTTPIdleTimeout = j.HTTPIdleTimeout.Duration
	c.ShutdownTimeout = j.ShutdownTimeout.Duration
	c.SlotExpiry = j.SlotExpiry.Duration
	c.VerifyUploads = j.VerifyUploads
	c.RequireToken = j.RequireToken
	c.SecretKey = j.SecretKey
	c.TokenTTL = j.TokenTTL.Duration
}

// parseJson overlays the file named by -c/-config (or $SECDRIVE_CONFIG) onto
// config. No file configured is not an error.
func parseJson(config *Config) error {
	path := flagx.ConfigFile()
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	j := toJson(config)
	if err := json.Unmarshal(file, j); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	j.apply(config)
	return nil
}
