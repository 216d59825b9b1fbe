package dynamodb

import (
	"context"
	"strings"
	"testing"

	apperrors "photopedia-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubClient captures inputs and plays back canned outputs so the
// table layer can be exercised without a live DynamoDB.
type stubClient struct {
	putFn    func(*awsdynamodb.PutItemInput) (*awsdynamodb.PutItemOutput, error)
	getFn    func(*awsdynamodb.GetItemInput) (*awsdynamodb.GetItemOutput, error)
	queryFn  func(*awsdynamodb.QueryInput) (*awsdynamodb.QueryOutput, error)
	updateFn func(*awsdynamodb.UpdateItemInput) (*awsdynamodb.UpdateItemOutput, error)
	deleteFn func(*awsdynamodb.DeleteItemInput) (*awsdynamodb.DeleteItemOutput, error)
	scanFn   func(*awsdynamodb.ScanInput) (*awsdynamodb.ScanOutput, error)
	txFn     func(*awsdynamodb.TransactWriteItemsInput) (*awsdynamodb.TransactWriteItemsOutput, error)
}

func (s *stubClient) PutItem(ctx context.Context, in *awsdynamodb.PutItemInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error) {
	return s.putFn(in)
}

func (s *stubClient) GetItem(ctx context.Context, in *awsdynamodb.GetItemInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error) {
	return s.getFn(in)
}

func (s *stubClient) Query(ctx context.Context, in *awsdynamodb.QueryInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error) {
	return s.queryFn(in)
}

func (s *stubClient) UpdateItem(ctx context.Context, in *awsdynamodb.UpdateItemInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.UpdateItemOutput, error) {
	return s.updateFn(in)
}

func (s *stubClient) DeleteItem(ctx context.Context, in *awsdynamodb.DeleteItemInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteItemOutput, error) {
	return s.deleteFn(in)
}

func (s *stubClient) Scan(ctx context.Context, in *awsdynamodb.ScanInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error) {
	return s.scanFn(in)
}

func (s *stubClient) TransactWriteItems(ctx context.Context, in *awsdynamodb.TransactWriteItemsInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.TransactWriteItemsOutput, error) {
	return s.txFn(in)
}

func newTestTable(client *stubClient) *Table {
	return NewTable(client, "test-table", zap.NewNop())
}

func TestPutConditionalConflict(t *testing.T) {
	var captured *awsdynamodb.PutItemInput
	client := &stubClient{
		putFn: func(in *awsdynamodb.PutItemInput) (*awsdynamodb.PutItemOutput, error) {
			captured = in
			return nil, &types.ConditionalCheckFailedException{}
		},
	}
	table := newTestTable(client)

	cond := expression.AttributeNotExists(expression.Name("PK"))
	err := table.Put(context.Background(), primaryKey("USER#1", "PROFILE"), &cond)

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	require.NotNil(t, captured.ConditionExpression)
	assert.Contains(t, *captured.ConditionExpression, "attribute_not_exists")
}

func TestPutAllBuildsTransaction(t *testing.T) {
	var captured *awsdynamodb.TransactWriteItemsInput
	client := &stubClient{
		txFn: func(in *awsdynamodb.TransactWriteItemsInput) (*awsdynamodb.TransactWriteItemsOutput, error) {
			captured = in
			return &awsdynamodb.TransactWriteItemsOutput{}, nil
		},
	}
	table := newTestTable(client)

	cond := expression.AttributeNotExists(expression.Name("PK"))
	err := table.PutAll(context.Background(),
		TransactPut{Item: primaryKey("USER#1", "PROFILE"), Condition: &cond},
		TransactPut{Item: primaryKey("EMAIL#a@b.com", "CLAIM"), Condition: &cond},
	)
	require.NoError(t, err)

	require.Len(t, captured.TransactItems, 2)
	for _, write := range captured.TransactItems {
		require.NotNil(t, write.Put)
		assert.Equal(t, "test-table", *write.Put.TableName)
		require.NotNil(t, write.Put.ConditionExpression)
		assert.Contains(t, *write.Put.ConditionExpression, "attribute_not_exists")
	}
}

func TestPutAllConditionFailureIsConflict(t *testing.T) {
	client := &stubClient{
		txFn: func(in *awsdynamodb.TransactWriteItemsInput) (*awsdynamodb.TransactWriteItemsOutput, error) {
			return nil, &types.TransactionCanceledException{
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("None")},
					{Code: aws.String("ConditionalCheckFailed")},
				},
			}
		},
	}
	table := newTestTable(client)

	cond := expression.AttributeNotExists(expression.Name("PK"))
	err := table.PutAll(context.Background(),
		TransactPut{Item: primaryKey("USER#1", "PROFILE"), Condition: &cond},
		TransactPut{Item: primaryKey("EMAIL#a@b.com", "CLAIM"), Condition: &cond},
	)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestGetMissingItemReturnsNil(t *testing.T) {
	client := &stubClient{
		getFn: func(in *awsdynamodb.GetItemInput) (*awsdynamodb.GetItemOutput, error) {
			return &awsdynamodb.GetItemOutput{}, nil
		},
	}
	table := newTestTable(client)

	item, err := table.Get(context.Background(), "USER#1", "PROFILE")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestQueryBuildsKeyCondition(t *testing.T) {
	var captured *awsdynamodb.QueryInput
	client := &stubClient{
		queryFn: func(in *awsdynamodb.QueryInput) (*awsdynamodb.QueryOutput, error) {
			captured = in
			return &awsdynamodb.QueryOutput{}, nil
		},
	}
	table := newTestTable(client)

	_, _, err := table.Query(context.Background(), QueryInput{
		Index:          "GSI1",
		PartitionName:  "GSI1PK",
		PartitionValue: "PHOTOGRAPHER#p1",
		SortName:       "GSI1SK",
		SortPrefix:     "EVENT#",
		Limit:          25,
		Reverse:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, "GSI1", *captured.IndexName)
	assert.Equal(t, int32(25), *captured.Limit)
	assert.False(t, *captured.ScanIndexForward)
	assert.Contains(t, *captured.KeyConditionExpression, "begins_with")

	var values []string
	for _, v := range captured.ExpressionAttributeValues {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			values = append(values, s.Value)
		}
	}
	assert.Contains(t, values, "PHOTOGRAPHER#p1")
	assert.Contains(t, values, "EVENT#")
}

func TestQueryCursorRoundTrip(t *testing.T) {
	lastKey := Item{
		"PK": &types.AttributeValueMemberS{Value: "EVENT#e1"},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}

	var captured *awsdynamodb.QueryInput
	client := &stubClient{
		queryFn: func(in *awsdynamodb.QueryInput) (*awsdynamodb.QueryOutput, error) {
			captured = in
			return &awsdynamodb.QueryOutput{LastEvaluatedKey: lastKey}, nil
		},
	}
	table := newTestTable(client)

	_, cursor, err := table.Query(context.Background(), QueryInput{
		PartitionName:  "PK",
		PartitionValue: "EVENT#e1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, cursor)

	_, _, err = table.Query(context.Background(), QueryInput{
		PartitionName:  "PK",
		PartitionValue: "EVENT#e1",
		Cursor:         cursor,
	})
	require.NoError(t, err)

	start, ok := captured.ExclusiveStartKey["PK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "EVENT#e1", start.Value)
}

func TestQueryRejectsMalformedCursor(t *testing.T) {
	client := &stubClient{
		queryFn: func(in *awsdynamodb.QueryInput) (*awsdynamodb.QueryOutput, error) {
			t.Fatal("query should not reach the client")
			return nil, nil
		},
	}
	table := newTestTable(client)

	_, _, err := table.Query(context.Background(), QueryInput{
		PartitionName:  "PK",
		PartitionValue: "EVENT#e1",
		Cursor:         "not base64 json!!!",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestUpdateItemBuildsSetAndAdd(t *testing.T) {
	var captured *awsdynamodb.UpdateItemInput
	client := &stubClient{
		updateFn: func(in *awsdynamodb.UpdateItemInput) (*awsdynamodb.UpdateItemOutput, error) {
			captured = in
			return &awsdynamodb.UpdateItemOutput{
				Attributes: Item{"PK": &types.AttributeValueMemberS{Value: "EVENT#e1"}},
			}, nil
		},
	}
	table := newTestTable(client)

	item, err := table.UpdateItem(context.Background(), "EVENT#e1", "METADATA", Update{
		Set: map[string]any{"updatedAt": "2026-01-01T00:00:00Z"},
		Add: map[string]int64{"stats.totalViews": 1},
	})
	require.NoError(t, err)
	require.NotNil(t, item)

	expr := *captured.UpdateExpression
	assert.Contains(t, expr, "SET")
	assert.Contains(t, expr, "ADD")
	assert.Equal(t, types.ReturnValueAllNew, captured.ReturnValues)
	assert.Contains(t, *captured.ConditionExpression, "attribute_exists")

	// The nested counter path must be addressed segment by segment,
	// not as one literal attribute name.
	var aliased []string
	for _, name := range captured.ExpressionAttributeNames {
		aliased = append(aliased, name)
	}
	assert.Contains(t, aliased, "stats")
	assert.Contains(t, aliased, "totalViews")
	assert.NotContains(t, strings.Join(aliased, " "), "stats.totalViews")
}

func TestUpdateItemMissingKeyReturnsNil(t *testing.T) {
	client := &stubClient{
		updateFn: func(in *awsdynamodb.UpdateItemInput) (*awsdynamodb.UpdateItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{}
		},
	}
	table := newTestTable(client)

	item, err := table.UpdateItem(context.Background(), "EVENT#missing", "METADATA", Update{
		Set: map[string]any{"status": "active"},
	})
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestWrapTimeout(t *testing.T) {
	client := &stubClient{
		getFn: func(in *awsdynamodb.GetItemInput) (*awsdynamodb.GetItemOutput, error) {
			return nil, context.DeadlineExceeded
		},
	}
	table := newTestTable(client)

	_, err := table.Get(context.Background(), "USER#1", "PROFILE")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout))
}

func TestScanAllFollowsPagination(t *testing.T) {
	page := 0
	client := &stubClient{
		scanFn: func(in *awsdynamodb.ScanInput) (*awsdynamodb.ScanOutput, error) {
			page++
			if page == 1 {
				return &awsdynamodb.ScanOutput{
					Items:            []Item{{"PK": &types.AttributeValueMemberS{Value: "USER#1"}}},
					LastEvaluatedKey: Item{"PK": &types.AttributeValueMemberS{Value: "USER#1"}},
				}, nil
			}
			return &awsdynamodb.ScanOutput{
				Items: []Item{{"PK": &types.AttributeValueMemberS{Value: "USER#2"}}},
			}, nil
		},
	}
	table := newTestTable(client)

	items, err := table.ScanAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, page)
}
