package token

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jun/coursecast/internal/crypto"
	"github.com/jun/coursecast/internal/model"
)

// DynamoDBClient is the subset of *dynamodb.Client methods used by DynamoBackend.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoBackend stores tokens in DynamoDB, keyed by user_id.
// Token values are encrypted before they leave the process.
type DynamoBackend struct {
	client    DynamoDBClient
	tableName string
	encryptor crypto.Encryptor
}

// NewDynamoBackend creates a new DynamoBackend.
func NewDynamoBackend(client DynamoDBClient, tableName string, encryptor crypto.Encryptor) *DynamoBackend {
	return &DynamoBackend{
		client:    client,
		tableName: tableName,
		encryptor: encryptor,
	}
}

func (d *DynamoBackend) key(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
	}
}

func (d *DynamoBackend) Get(ctx context.Context, userID string) (*model.AccessToken, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.key(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get token from DynamoDB: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var stored model.StoredToken
	if err := attributevalue.UnmarshalMap(out.Item, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored token: %w", err)
	}

	value, err := d.encryptor.Decrypt(ctx, stored.EncryptedValue)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	return &model.AccessToken{
		Value:     value,
		ExpiresAt: time.UnixMilli(stored.ExpiresAtMs),
	}, nil
}

func (d *DynamoBackend) Put(ctx context.Context, userID string, tok model.AccessToken) error {
	encrypted, err := d.encryptor.Encrypt(ctx, tok.Value)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	item, err := attributevalue.MarshalMap(model.StoredToken{
		UserID:         userID,
		EncryptedValue: encrypted,
		ExpiresAtMs:    tok.ExpiresAt.UnixMilli(),
		UpdatedAt:      time.Now(),
		TTL:            tok.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal stored token: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save token to DynamoDB: %w", err)
	}
	return nil
}

func (d *DynamoBackend) Delete(ctx context.Context, userID string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.key(userID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete token from DynamoDB: %w", err)
	}
	return nil
}
