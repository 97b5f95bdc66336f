package files

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	putIn    *dynamodb.PutItemInput
	putErr   error
	getOut   *dynamodb.GetItemOutput
	getErr   error
	delOut   *dynamodb.DeleteItemOutput
	delErr   error
	queryIns []*dynamodb.QueryInput
	pages    []*dynamodb.QueryOutput
	queryErr error
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putIn = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getOut, f.getErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, _ *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return f.delOut, f.delErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	cp := *in
	f.queryIns = append(f.queryIns, &cp)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := f.pages[0]
	f.pages = f.pages[1:]
	return out, nil
}

func TestDynamoRepository_Put(t *testing.T) {
	fake := &fakeDynamo{}
	r := NewDynamoRepository(fake, "secdrive_user_files", "user_id-index")

	require.NoError(t, r.Put(context.Background(), sampleFile()))
	require.NotNil(t, fake.putIn)
	assert.Equal(t, "secdrive_user_files", aws.ToString(fake.putIn.TableName))
	assert.Contains(t, aws.ToString(fake.putIn.ConditionExpression), "attribute_not_exists(file_id)")
	assert.Equal(t, &types.AttributeValueMemberS{Value: "u1/f1_a.txt"}, fake.putIn.Item["s3_key"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "u1"}, fake.putIn.ExpressionAttributeValues[":uid"])
}

func TestDynamoRepository_PutErrors(t *testing.T) {
	fake := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{Message: aws.String("owner")}}
	r := NewDynamoRepository(fake, "t", "i")
	assert.ErrorIs(t, r.Put(context.Background(), sampleFile()), common.ErrForbidden)

	fake.putErr = errors.New("throttled")
	assert.ErrorIs(t, r.Put(context.Background(), sampleFile()), common.ErrStore)
}

func TestDynamoRepository_Get(t *testing.T) {
	item, err := attributevalue.MarshalMap(sampleFile())
	require.NoError(t, err)

	fake := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	r := NewDynamoRepository(fake, "t", "i")

	got, err := r.Get(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, sampleFile(), got)

	fake.getOut = &dynamodb.GetItemOutput{}
	_, err = r.Get(context.Background(), "f1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	fake.getErr = errors.New("down")
	_, err = r.Get(context.Background(), "f1")
	assert.ErrorIs(t, err, common.ErrStore)
}

func TestDynamoRepository_Delete(t *testing.T) {
	fake := &fakeDynamo{delOut: &dynamodb.DeleteItemOutput{
		Attributes: map[string]types.AttributeValue{"file_id": &types.AttributeValueMemberS{Value: "f1"}},
	}}
	r := NewDynamoRepository(fake, "t", "i")
	require.NoError(t, r.Delete(context.Background(), "f1"))

	fake.delOut = &dynamodb.DeleteItemOutput{}
	assert.ErrorIs(t, r.Delete(context.Background(), "f1"), common.ErrorNotFound)

	fake.delErr = errors.New("down")
	assert.ErrorIs(t, r.Delete(context.Background(), "f1"), common.ErrStore)
}

func TestDynamoRepository_ListByOwnerPages(t *testing.T) {
	first, err := attributevalue.MarshalMap(sampleFile())
	require.NoError(t, err)
	second := sampleFile()
	second.FileID = "f2"
	secondItem, err := attributevalue.MarshalMap(second)
	require.NoError(t, err)

	cursor := map[string]types.AttributeValue{"file_id": &types.AttributeValueMemberS{Value: "f1"}}
	fake := &fakeDynamo{pages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{first}, LastEvaluatedKey: cursor},
		{Items: []map[string]types.AttributeValue{secondItem}},
	}}
	r := NewDynamoRepository(fake, "t", "user_id-index")

	got, err := r.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "f1", got[0].FileID)
	assert.Equal(t, "f2", got[1].FileID)

	require.Len(t, fake.queryIns, 2)
	assert.Equal(t, "user_id-index", aws.ToString(fake.queryIns[0].IndexName))
	assert.Nil(t, fake.queryIns[0].ExclusiveStartKey)
	assert.Equal(t, cursor, fake.queryIns[1].ExclusiveStartKey)
}

func TestDynamoRepository_ListByOwnerError(t *testing.T) {
	r := NewDynamoRepository(&fakeDynamo{queryErr: errors.New("down")}, "t", "i")
	_, err := r.ListByOwner(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrStore)
}
