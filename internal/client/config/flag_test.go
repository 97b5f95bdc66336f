package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"cli", "-a", "http://h:9090", "-u", "u1", "-t", "tok", "-o", "/tmp/dl", "-i", "10", "upload", "a.txt"},
			expected: &Config{
				ServerURL: "http://h:9090", UserID: "u1", Token: "tok", DownloadDir: "/tmp/dl",
				OnlineCheckInterval: 10 * time.Second,
			},
		},
		{name: "incorrect check interval", args: []string{"cli", "-i", "abc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}
			err := parseFlags(config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
