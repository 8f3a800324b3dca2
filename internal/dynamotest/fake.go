// Package dynamotest provides an in-memory stand-in for the DynamoDB item
// operations used by the stores in this module.
package dynamotest

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client keeps items of a single-key table in memory. It understands
// "attribute_not_exists(<key>)" conditions on PutItem and plain
// "SET a = :x, b = :y" update expressions.
type Client struct {
	keyName string
	items   map[string]map[string]types.AttributeValue
	mu      sync.Mutex

	// Err, when set, is returned by every call.
	Err error
}

// New creates a Client for a table whose hash key is the string attribute keyName.
func New(keyName string) *Client {
	return &Client{
		keyName: keyName,
		items:   make(map[string]map[string]types.AttributeValue),
	}
}

func (c *Client) keyOf(item map[string]types.AttributeValue) (string, error) {
	v, ok := item[c.keyName].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("missing string key attribute %q", c.keyName)
	}
	return v.Value, nil
}

func (c *Client) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	k, err := c.keyOf(in.Key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: c.items[k]}, nil
}

func (c *Client) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	k, err := c.keyOf(in.Item)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cond := aws.ToString(in.ConditionExpression); cond != "" {
		if cond != "attribute_not_exists("+c.keyName+")" {
			return nil, fmt.Errorf("unsupported condition %q", cond)
		}
		if _, exists := c.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	c.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (c *Client) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	k, err := c.keyOf(in.Key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.items[k]
	delete(c.items, k)

	out := &dynamodb.DeleteItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

func (c *Client) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	k, err := c.keyOf(in.Key)
	if err != nil {
		return nil, err
	}

	expr := strings.TrimSpace(aws.ToString(in.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return nil, fmt.Errorf("unsupported update expression %q", expr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[k]
	if !ok {
		if aws.ToString(in.ConditionExpression) == "attribute_exists("+c.keyName+")" {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
		item = maps.Clone(in.Key)
	} else {
		item = maps.Clone(item)
	}

	for _, assign := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		name, placeholder, found := strings.Cut(assign, "=")
		if !found {
			return nil, fmt.Errorf("unsupported assignment %q", assign)
		}
		name, placeholder = strings.TrimSpace(name), strings.TrimSpace(placeholder)
		if alias, ok := in.ExpressionAttributeNames[name]; ok {
			name = alias
		}
		v, ok := in.ExpressionAttributeValues[placeholder]
		if !ok {
			return nil, fmt.Errorf("missing value for %s", placeholder)
		}
		item[name] = v
	}
	c.items[k] = item

	out := &dynamodb.UpdateItemOutput{}
	if in.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = item
	}
	return out, nil
}

// Item returns the raw stored item for key, or nil.
func (c *Client) Item(key string) map[string]types.AttributeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key]
}

// Len returns the number of stored items.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
