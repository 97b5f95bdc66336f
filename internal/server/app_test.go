package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/server/auth"
	"github.com/dmitrijs2005/secdrive/internal/server/config"
)

func devConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.StoreBackend = config.StoreMemory
	c.KMSProvider = config.KMSProviderLocal
	c.AWSAccessKeyID = "AKID"
	c.AWSSecretAccessKey = "SECRET"
	c.ShutdownTimeout = time.Second
	return c
}

func stubAWS(t *testing.T) *[]func(*awsconfig.LoadOptions) error {
	t.Helper()
	var got []func(*awsconfig.LoadOptions) error
	orig := loadDefaultAWSConfig
	loadDefaultAWSConfig = func(_ context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		got = opts
		return aws.Config{Region: "us-east-1"}, nil
	}
	origOut := logOutput
	logOutput = io.Discard
	t.Cleanup(func() {
		loadDefaultAWSConfig = orig
		logOutput = origOut
	})
	return &got
}

func TestNewApp_MemoryLocal(t *testing.T) {
	opts := stubAWS(t)

	app, err := NewApp(context.Background(), devConfig(t))
	require.NoError(t, err)
	require.NotNil(t, app.server)
	assert.Len(t, *opts, 2, "region and static credentials")
}

func TestNewApp_Errors(t *testing.T) {
	stubAWS(t)

	c := devConfig(t)
	c.LogLevel = "loud"
	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)

	c = devConfig(t)
	c.StoreBackend = "cassandra"
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "store init error")

	c = devConfig(t)
	c.LocalKMSMasterKey = "short"
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "kms init error")

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no profile")
	}
	_, err = NewApp(context.Background(), devConfig(t))
	assert.ErrorContains(t, err, "aws config error")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	stubAWS(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c := devConfig(t)
	c.HTTPAddr = addr
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestIssueToken(t *testing.T) {
	c := devConfig(t)
	c.SecretKey = "0123456789abcdef0123456789abcdef"
	c.IssueToken = "u1"

	var buf bytes.Buffer
	require.NoError(t, IssueToken(&buf, c))

	userID, err := auth.GetUserIDFromToken(strings.TrimSpace(buf.String()), []byte(c.SecretKey))
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	c.IssueToken = "u1/nested"
	assert.ErrorIs(t, IssueToken(io.Discard, c), common.ErrValidation)
}
