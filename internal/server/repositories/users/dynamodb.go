package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

type DynamoRepository struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoRepository(client DynamoAPI, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table, now: time.Now}
}

func userKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
	}
}

func (r *DynamoRepository) Create(ctx context.Context, user *models.UserProfile) error {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("%w: marshal user: %w", common.ErrStore, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("%w: put item: %w", common.ErrStore, err)
	}
	return nil
}

func (r *DynamoRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       userKey(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get item: %w", common.ErrStore, err)
	}
	if len(out.Item) == 0 {
		return nil, common.ErrorNotFound
	}

	var u models.UserProfile
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("%w: unmarshal user: %w", common.ErrStore, err)
	}
	return &u, nil
}

// Update builds the SET clause from the allow-listed fields only, with fixed
// placeholder names; caller input never reaches the expression text.
func (r *DynamoRepository) Update(ctx context.Context, userID string, upd models.ProfileUpdate) error {
	sets := []string{"updated_at = :updated_at"}
	values := map[string]types.AttributeValue{
		":updated_at": &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339Nano)},
	}

	add := func(attr string, v *string) {
		if v == nil {
			return
		}
		sets = append(sets, attr+" = :"+attr)
		values[":"+attr] = &types.AttributeValueMemberS{Value: *v}
	}
	add("email", upd.Email)
	add("first_name", upd.FirstName)
	add("last_name", upd.LastName)

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       userKey(userID),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: update item: %w", common.ErrStore, err)
	}
	return nil
}
