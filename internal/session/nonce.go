package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/jun/coursecast/internal/model"
)

// DynamoDBClient is the subset of *dynamodb.Client methods used by NonceManager.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// NonceManager keeps pending OAuth states in DynamoDB, one item per user.
// expires_at doubles as the table TTL attribute.
type NonceManager struct {
	client      DynamoDBClient
	tableName   string
	ttlDuration time.Duration
	now         func() time.Time
}

// NewNonceManager creates a new NonceManager.
func NewNonceManager(client DynamoDBClient, tableName string) *NonceManager {
	return &NonceManager{
		client:      client,
		tableName:   tableName,
		ttlDuration: DefaultTTL,
		now:         time.Now,
	}
}

func (m *NonceManager) Issue(ctx context.Context, userID string) (string, error) {
	nonce := model.OAuthNonce{
		UserID:    userID,
		State:     uuid.NewString(),
		ExpiresAt: m.now().Add(m.ttlDuration).Unix(),
	}

	item, err := attributevalue.MarshalMap(nonce)
	if err != nil {
		return "", fmt.Errorf("failed to marshal nonce: %w", err)
	}

	_, err = m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(m.tableName),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	return nonce.State, nil
}

// Consume deletes the item and validates the value it held, so a state
// can never be checked twice.
func (m *NonceManager) Consume(ctx context.Context, userID, state string) error {
	out, err := m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(m.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("failed to consume nonce: %w", err)
	}
	if len(out.Attributes) == 0 {
		return ErrNonceNotFound
	}

	var nonce model.OAuthNonce
	if err := attributevalue.UnmarshalMap(out.Attributes, &nonce); err != nil {
		return fmt.Errorf("failed to unmarshal nonce: %w", err)
	}
	return verify(nonce.State, state, nonce.ExpiresAt, m.now().Unix())
}
