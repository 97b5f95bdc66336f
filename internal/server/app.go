// Package server assembles the secdrive backend: it selects the metadata
// store and KMS provider from configuration, builds the services and runs
// the HTTP API until the context is cancelled.
package server

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/dmitrijs2005/secdrive/internal/logging"
	"github.com/dmitrijs2005/secdrive/internal/server/auth"
	"github.com/dmitrijs2005/secdrive/internal/server/config"
	"github.com/dmitrijs2005/secdrive/internal/server/httpapi"
	"github.com/dmitrijs2005/secdrive/internal/server/keybroker"
	"github.com/dmitrijs2005/secdrive/internal/server/objects"
	"github.com/dmitrijs2005/secdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/secdrive/internal/server/services"
)

// loadDefaultAWSConfig is a seam for testing config.LoadDefaultConfig.
var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// logOutput is where the application logger writes.
var logOutput io.Writer = os.Stdout

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	server  *httpapi.Server
	closers []io.Closer
}

// NewApp wires every component from c. Nothing listens until Run.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logOutput, c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}

	awsCfg, err := app.loadAWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	if err := app.initRepositories(awsCfg); err != nil {
		app.Close()
		return nil, fmt.Errorf("store init error: %w", err)
	}

	kmsClient, err := app.newKMS(awsCfg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("kms init error: %w", err)
	}
	broker := keybroker.NewBroker(kmsClient, c.KMSKeyID, c.KMSTimeout, logger)

	s3Client, presigner := objects.NewS3Clients(awsCfg, c.S3BaseEndpoint, c.S3UsePathStyle)
	objs := objects.NewService(s3Client, presigner, objects.Options{
		Bucket:  c.S3Bucket,
		Expiry:  c.SlotExpiry,
		Timeout: c.S3Timeout,
	}, logger)

	fs := services.NewFileService(app.repos, objs, c, logger)
	us := services.NewUserService(app.repos, c, logger)

	ropts := httpapi.RouterOptions{Pinger: app.repos, Logger: logger}
	if c.RequireToken {
		ropts.SecretKey = []byte(c.SecretKey)
	}
	router := httpapi.NewRouter(httpapi.NewHandler(broker, fs, us, logger), ropts)

	app.server = httpapi.NewServer(c.HTTPAddr, router, httpapi.ServerOptions{
		ReadTimeout:     c.HTTPReadTimeout,
		WriteTimeout:    c.HTTPWriteTimeout,
		IdleTimeout:     c.HTTPIdleTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
	}, logger)

	return app, nil
}

func (app *App) loadAWSConfig(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if app.config.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(app.config.AWSRegion))
	}
	if app.config.AWSAccessKeyID != "" && app.config.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(app.config.AWSAccessKeyID, app.config.AWSSecretAccessKey, ""),
		))
	}
	return loadDefaultAWSConfig(ctx, opts...)
}

func (app *App) initRepositories(awsCfg aws.Config) error {
	c := app.config
	switch c.StoreBackend {
	case config.StorePostgres:
		pm, err := repomanager.OpenPostgres(c.DatabaseDSN)
		if err != nil {
			return err
		}
		app.repos = pm
		app.closers = append(app.closers, pm)
	case config.StoreDynamoDB:
		app.repos = repomanager.NewDynamoRepositoryManager(
			repomanager.NewDynamoClient(awsCfg, c.DynamoEndpoint),
			repomanager.DynamoTables{Files: c.DynamoFilesTable, Users: c.DynamoUsersTable, UserIndex: c.DynamoUserIndex},
		)
	case config.StoreMemory:
		app.logger.Warn(context.Background(), "using in-memory store, data will not survive a restart")
		app.repos = repomanager.NewInMemoryRepositoryManager()
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	return nil
}

func (app *App) newKMS(awsCfg aws.Config) (keybroker.KMS, error) {
	c := app.config
	switch c.KMSProvider {
	case config.KMSProviderAWS:
		return keybroker.NewAWSKMS(awsCfg, c.KMSBaseEndpoint), nil
	case config.KMSProviderLocal:
		app.logger.Warn(context.Background(), "using local KMS provider, not for production")
		return keybroker.NewLocalKMS([]byte(c.LocalKMSMasterKey))
	default:
		return nil, fmt.Errorf("unknown kms provider %q", c.KMSProvider)
	}
}

// Run applies migrations and serves the API until ctx is cancelled.
func (app *App) Run(ctx context.Context) error {
	defer app.Close()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreBackend, "kms", app.config.KMSProvider)

	if err := app.repos.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}

// Close releases store connections. It is safe to call more than once.
func (app *App) Close() {
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

// IssueToken writes a bearer token for c.IssueToken, signed with c.SecretKey
// and valid for c.TokenTTL.
func IssueToken(w io.Writer, c *config.Config) error {
	if err := objects.ValidateUserID(c.IssueToken); err != nil {
		return err
	}
	token, err := auth.GenerateToken(c.IssueToken, []byte(c.SecretKey), c.TokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
