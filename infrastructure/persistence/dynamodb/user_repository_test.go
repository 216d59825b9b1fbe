package dynamodb

import (
	"context"
	"testing"

	"photopedia-backend/domain/core/entities"
	apperrors "photopedia-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserCreateWritesEmailClaimTransactionally(t *testing.T) {
	var captured *awsdynamodb.TransactWriteItemsInput
	client := &stubClient{
		// The email-index pre-check finds nothing.
		queryFn: func(in *awsdynamodb.QueryInput) (*awsdynamodb.QueryOutput, error) {
			return &awsdynamodb.QueryOutput{}, nil
		},
		txFn: func(in *awsdynamodb.TransactWriteItemsInput) (*awsdynamodb.TransactWriteItemsOutput, error) {
			captured = in
			return &awsdynamodb.TransactWriteItemsOutput{}, nil
		},
	}
	repo := NewUserRepository(newTestTable(client), zap.NewNop())

	user := entities.NewUser("ana@example.com", "auth|ana", entities.RolePhotographer, "Ana", "Silva", "")
	require.NoError(t, repo.Create(context.Background(), user))

	require.NotNil(t, captured)
	require.Len(t, captured.TransactItems, 2)

	var pks []string
	for _, write := range captured.TransactItems {
		require.NotNil(t, write.Put)
		require.NotNil(t, write.Put.ConditionExpression)
		assert.Contains(t, *write.Put.ConditionExpression, "attribute_not_exists")

		pk, ok := write.Put.Item["PK"].(*types.AttributeValueMemberS)
		require.True(t, ok)
		pks = append(pks, pk.Value)
	}
	assert.Contains(t, pks, userPK(user.UserID))
	assert.Contains(t, pks, emailClaimPK("ana@example.com"))
}

func TestUserCreateRacingDuplicateEmailConflicts(t *testing.T) {
	client := &stubClient{
		// The pre-check misses the concurrent writer; the claim record's
		// condition is what rejects the duplicate.
		queryFn: func(in *awsdynamodb.QueryInput) (*awsdynamodb.QueryOutput, error) {
			return &awsdynamodb.QueryOutput{}, nil
		},
		txFn: func(in *awsdynamodb.TransactWriteItemsInput) (*awsdynamodb.TransactWriteItemsOutput, error) {
			return nil, &types.TransactionCanceledException{
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("None")},
					{Code: aws.String("ConditionalCheckFailed")},
				},
			}
		},
	}
	repo := NewUserRepository(newTestTable(client), zap.NewNop())

	user := entities.NewUser("ana@example.com", "auth|ana", entities.RolePhotographer, "Ana", "Silva", "")
	err := repo.Create(context.Background(), user)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}
