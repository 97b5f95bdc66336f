package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/secdrive/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-m string   metadata store backend (postgres, dynamodb, memory)
//	-d string   PostgreSQL DSN
//	-b string   S3 bucket name
//	-g string   AWS region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-k string   KMS key id or alias
//	-p string   KMS provider (aws, local)
//	-s string   JWT HMAC secret key
//	-l string   log level
//	-t duration presigned URL expiry
//	-v bool     verify uploads before confirming
//	-r bool     require bearer tokens
//	-issue-token string   print a bearer token for this user id and exit
//	-token-ttl duration   lifetime of issued tokens
//
// The function first filters os.Args down to the flags it recognizes using
// flagx.FilterArgs, so -c/-config handled elsewhere does not collide.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-m", "-d", "-b", "-g", "-e", "-k", "-p", "-s", "-l", "-t", "-v", "-r",
		"-issue-token", "--issue-token", "-token-ttl", "--token-ttl",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.StoreBackend, "m", config.StoreBackend, "metadata store backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.KMSKeyID, "k", config.KMSKeyID, "KMS key id")
	fs.StringVar(&config.KMSProvider, "p", config.KMSProvider, "KMS provider")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.DurationVar(&config.SlotExpiry, "t", config.SlotExpiry, "presigned URL expiry")
	fs.BoolVar(&config.VerifyUploads, "v", config.VerifyUploads, "verify uploads before confirming")
	fs.BoolVar(&config.RequireToken, "r", config.RequireToken, "require bearer tokens")
	fs.StringVar(&config.IssueToken, "issue-token", config.IssueToken, "print a bearer token for this user id and exit")
	fs.DurationVar(&config.TokenTTL, "token-ttl", config.TokenTTL, "lifetime of issued tokens")

	return fs.Parse(args)
}
