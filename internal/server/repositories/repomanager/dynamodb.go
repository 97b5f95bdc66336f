package repomanager

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/server/repositories/files"
	"github.com/dmitrijs2005/secdrive/internal/server/repositories/users"
)

// DynamoAPI covers every call made by the DynamoDB repositories plus the
// DescribeTable used for readiness.
type DynamoAPI interface {
	files.DynamoAPI
	users.DynamoAPI
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoTables names the tables and index used by the DynamoDB backend.
type DynamoTables struct {
	Files     string
	Users     string
	UserIndex string
}

// DynamoRepositoryManager expects its tables to be provisioned outside the
// service.
type DynamoRepositoryManager struct {
	client DynamoAPI
	tables DynamoTables
}

func NewDynamoRepositoryManager(client DynamoAPI, tables DynamoTables) *DynamoRepositoryManager {
	return &DynamoRepositoryManager{client: client, tables: tables}
}

func (m *DynamoRepositoryManager) Files() files.Repository {
	return files.NewDynamoRepository(m.client, m.tables.Files, m.tables.UserIndex)
}

func (m *DynamoRepositoryManager) Users() users.Repository {
	return users.NewDynamoRepository(m.client, m.tables.Users)
}

func (m *DynamoRepositoryManager) RunMigrations(context.Context) error {
	return nil
}

func (m *DynamoRepositoryManager) Ping(ctx context.Context) error {
	for _, table := range []string{m.tables.Files, m.tables.Users} {
		if _, err := m.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}); err != nil {
			return fmt.Errorf("%w: describe table %s: %w", common.ErrStore, table, err)
		}
	}
	return nil
}

// NewDynamoClient builds a DynamoDB client from a shared AWS config. A
// non-empty endpoint overrides the service endpoint (DynamoDB Local and
// similar).
func NewDynamoClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}
