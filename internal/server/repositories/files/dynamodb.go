package files

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
)

// DynamoAPI is the part of *dynamodb.Client used here.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoRepository stores one item per file keyed by file_id, with a global
// secondary index on user_id for listing.
type DynamoRepository struct {
	client    DynamoAPI
	table     string
	userIndex string
}

func NewDynamoRepository(client DynamoAPI, table, userIndex string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table, userIndex: userIndex}
}

func fileKey(fileID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"file_id": &types.AttributeValueMemberS{Value: fileID},
	}
}

func (r *DynamoRepository) Put(ctx context.Context, file *models.FileRecord) error {
	item, err := attributevalue.MarshalMap(file)
	if err != nil {
		return fmt.Errorf("%w: marshal file: %w", common.ErrStore, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(file_id) OR user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: file.UserID},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return common.ErrForbidden
		}
		return fmt.Errorf("%w: put item: %w", common.ErrStore, err)
	}
	return nil
}

func (r *DynamoRepository) Get(ctx context.Context, fileID string) (*models.FileRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            fileKey(fileID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get item: %w", common.ErrStore, err)
	}
	if len(out.Item) == 0 {
		return nil, common.ErrorNotFound
	}

	var f models.FileRecord
	if err := attributevalue.UnmarshalMap(out.Item, &f); err != nil {
		return nil, fmt.Errorf("%w: unmarshal file: %w", common.ErrStore, err)
	}
	return &f, nil
}

func (r *DynamoRepository) Delete(ctx context.Context, fileID string) error {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.table),
		Key:          fileKey(fileID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("%w: delete item: %w", common.ErrStore, err)
	}
	if len(out.Attributes) == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ListByOwner pages through the user index. Order is not guaranteed.
func (r *DynamoRepository) ListByOwner(ctx context.Context, userID string) ([]*models.FileRecord, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(r.userIndex),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	}

	result := []*models.FileRecord{}
	for {
		out, err := r.client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%w: query: %w", common.ErrStore, err)
		}

		var page []*models.FileRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("%w: unmarshal files: %w", common.ErrStore, err)
		}
		result = append(result, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return result, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
