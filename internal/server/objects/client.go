package objects

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
)

// NewS3Clients builds the long-lived S3 client and its presigner. endpoint
// overrides the service endpoint for S3-compatible stores such as MinIO,
// which usually also need path-style addressing.
func NewS3Clients(cfg aws.Config, endpoint string, usePathStyle bool) (*s3.Client, *s3.PresignClient) {
	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = usePathStyle
	})
	return client, newS3PresignClient(client)
}
