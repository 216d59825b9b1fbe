package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "photopedia-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Client is the subset of the DynamoDB API the table layer needs.
// Injecting the interface instead of *dynamodb.Client keeps the layer
// testable without a live table.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Item is a raw DynamoDB item as stored.
type Item = map[string]types.AttributeValue

// Table wraps one DynamoDB table addressed by a PK/SK composite key,
// with secondary indexes projected as extra attributes on each item.
type Table struct {
	client Client
	name   string
	logger *zap.Logger
}

// NewTable creates a table wrapper.
func NewTable(client Client, name string, logger *zap.Logger) *Table {
	return &Table{
		client: client,
		name:   name,
		logger: logger,
	}
}

// Name returns the underlying table name.
func (t *Table) Name() string { return t.name }

// Put writes an item. When condition is non-nil the write only happens
// if the condition holds; a failed condition surfaces as Conflict.
func (t *Table) Put(ctx context.Context, item Item, condition *expression.ConditionBuilder) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	}

	if condition != nil {
		expr, err := expression.NewBuilder().WithCondition(*condition).Build()
		if err != nil {
			return apperrors.NewStorageError("put", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if _, err := t.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperrors.NewConflictError("item already exists")
		}
		return t.wrap("put", err)
	}
	return nil
}

// TransactPut is one conditional write inside an all-or-nothing batch.
type TransactPut struct {
	Item      Item
	Condition *expression.ConditionBuilder
}

// PutAll writes the items in a single transaction. A failed condition
// on any item cancels the whole batch and surfaces as Conflict.
func (t *Table) PutAll(ctx context.Context, puts ...TransactPut) error {
	writes := make([]types.TransactWriteItem, 0, len(puts))
	for _, p := range puts {
		put := &types.Put{
			TableName: aws.String(t.name),
			Item:      p.Item,
		}
		if p.Condition != nil {
			expr, err := expression.NewBuilder().WithCondition(*p.Condition).Build()
			if err != nil {
				return apperrors.NewStorageError("transact put", err)
			}
			put.ConditionExpression = expr.Condition()
			put.ExpressionAttributeNames = expr.Names()
			put.ExpressionAttributeValues = expr.Values()
		}
		writes = append(writes, types.TransactWriteItem{Put: put})
	}

	_, err := t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return apperrors.NewConflictError("item already exists")
				}
			}
		}
		return t.wrap("transact put", err)
	}
	return nil
}

// Get fetches one item by its full primary key; returns nil when no
// record exists at the key.
func (t *Table) Get(ctx context.Context, pk, sk string) (Item, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.name),
		Key:       primaryKey(pk, sk),
	})
	if err != nil {
		return nil, t.wrap("get", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

// QueryInput describes one partition query, optionally through a
// secondary index and narrowed by a sort-key prefix.
type QueryInput struct {
	// Index is the GSI name; empty means the primary key.
	Index string
	// PartitionName/PartitionValue address the partition.
	PartitionName  string
	PartitionValue string
	// SortName/SortPrefix apply a begins_with condition when set.
	SortName   string
	SortPrefix string
	// Filter is applied server-side after the key condition.
	Filter *expression.ConditionBuilder
	// Limit caps the page size; zero means no explicit limit.
	Limit int32
	// Cursor resumes a previous page.
	Cursor string
	// Reverse walks the sort key descending (most recent first).
	Reverse bool
}

// Query runs a partition query and returns one page plus an opaque
// continuation cursor; an empty cursor means end of results.
func (t *Table) Query(ctx context.Context, in QueryInput) ([]Item, string, error) {
	keyCond := expression.Key(in.PartitionName).Equal(expression.Value(in.PartitionValue))
	if in.SortPrefix != "" {
		keyCond = keyCond.And(expression.Key(in.SortName).BeginsWith(in.SortPrefix))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if in.Filter != nil {
		builder = builder.WithFilter(*in.Filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, "", apperrors.NewStorageError("query", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.name),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!in.Reverse),
	}
	if in.Index != "" {
		input.IndexName = aws.String(in.Index)
	}
	if in.Limit > 0 {
		input.Limit = aws.Int32(in.Limit)
	}
	if in.Cursor != "" {
		startKey, err := decodeCursor(in.Cursor)
		if err != nil {
			return nil, "", apperrors.NewValidationError("invalid pagination cursor")
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := t.client.Query(ctx, input)
	if err != nil {
		return nil, "", t.wrap("query", err)
	}

	nextCursor, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", apperrors.NewStorageError("query", err)
	}
	return out.Items, nextCursor, nil
}

// Update describes one item mutation. Set replaces named attribute
// paths; Add atomically adds deltas to numeric paths (never implemented
// as read-then-write); Remove clears attribute paths. Paths may be
// nested, e.g. "stats.totalViews".
type Update struct {
	Set    map[string]any
	Add    map[string]int64
	Remove []string
}

// UpdateItem applies an update to an existing item and returns the new
// attribute set. A missing item surfaces as nil, nil.
func (t *Table) UpdateItem(ctx context.Context, pk, sk string, u Update) (Item, error) {
	if len(u.Set) == 0 && len(u.Add) == 0 && len(u.Remove) == 0 {
		return t.Get(ctx, pk, sk)
	}

	var upd expression.UpdateBuilder
	for path, value := range u.Set {
		upd = upd.Set(expression.Name(path), expression.Value(value))
	}
	for path, delta := range u.Add {
		upd = upd.Add(expression.Name(path), expression.Value(delta))
	}
	for _, path := range u.Remove {
		upd = upd.Remove(expression.Name(path))
	}

	// Guard against upserting a phantom record at a missing key.
	cond := expression.AttributeExists(expression.Name("PK"))

	expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
	if err != nil {
		return nil, apperrors.NewStorageError("update", err)
	}

	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       primaryKey(pk, sk),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, nil
		}
		return nil, t.wrap("update", err)
	}
	return out.Attributes, nil
}

// Delete removes one item by its full primary key.
func (t *Table) Delete(ctx context.Context, pk, sk string) error {
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.name),
		Key:       primaryKey(pk, sk),
	})
	if err != nil {
		return t.wrap("delete", err)
	}
	return nil
}

// ScanAll walks the whole table, following pagination. This is the
// explicitly slow path, allowed only where no secondary index exists.
func (t *Table) ScanAll(ctx context.Context, filter *expression.ConditionBuilder) ([]Item, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(t.name),
	}
	if filter != nil {
		expr, err := expression.NewBuilder().WithFilter(*filter).Build()
		if err != nil {
			return nil, apperrors.NewStorageError("scan", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	var items []Item
	for {
		out, err := t.client.Scan(ctx, input)
		if err != nil {
			return nil, t.wrap("scan", err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return items, nil
}

// wrap converts storage-boundary failures into typed errors; a caller
// seeing one must not assume partial writes succeeded.
func (t *Table) wrap(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewTimeoutError(operation)
	}
	t.logger.Error("dynamodb operation failed",
		zap.String("table", t.name),
		zap.String("operation", operation),
		zap.Error(err),
	)
	return apperrors.NewStorageError(operation, err)
}

func primaryKey(pk, sk string) Item {
	return Item{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// Cursors are the last evaluated key flattened to plain values and
// base64-encoded, opaque to callers.
func encodeCursor(lastKey Item) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}
	plain := map[string]any{}
	if err := attributevalue.UnmarshalMap(lastKey, &plain); err != nil {
		return "", fmt.Errorf("failed to flatten last key: %w", err)
	}
	raw, err := json.Marshal(plain)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(cursor string) (Item, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}
	plain := map[string]any{}
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}
	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild start key: %w", err)
	}
	return key, nil
}
