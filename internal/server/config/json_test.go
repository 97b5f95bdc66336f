package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv("SECDRIVE_CONFIG", "")

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":            "www.example:9000",
		"store_backend":        "dynamodb",
		"dynamodb_files_table": "files",
		"s3_bucket":            "bucket",
		"s3_use_path_style":    true,
		"kms_provider":         "local",
		"kms_timeout":          "2s",
		"slot_expiry":          1800000000000,
		"verify_uploads":       true,
	})

	t.Run("loads from json, keeps absent keys", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg))

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, StoreDynamoDB, cfg.StoreBackend)
		assert.Equal(t, "files", cfg.DynamoFilesTable)
		assert.Equal(t, "secdrive_users", cfg.DynamoUsersTable)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.True(t, cfg.S3UsePathStyle)
		assert.Equal(t, KMSProviderLocal, cfg.KMSProvider)
		assert.Equal(t, 2*time.Second, cfg.KMSTimeout)
		assert.Equal(t, 30*time.Minute, cfg.SlotExpiry)
		assert.Equal(t, 5*time.Second, cfg.S3Timeout)
		assert.True(t, cfg.VerifyUploads)
	})

	t.Run("no config and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", S3Bucket: "s3bucket"}
		require.NoError(t, parseJson(cfg))

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "s3bucket", cfg.S3Bucket)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		assert.ErrorContains(t, parseJson(&Config{}), "parse config")
	})

	t.Run("missing file → error", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		assert.ErrorContains(t, parseJson(&Config{}), "read config")
	})
}
