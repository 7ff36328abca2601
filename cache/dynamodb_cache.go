package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ammiranda/category_service/models"
)

const tableName = "CategoryCache"

// DynamoDBAPI defines the interface for DynamoDB operations
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Item is the stored record. Data holds the forest as JSON, since the
// nested children would otherwise exceed DynamoDB's nesting depth.
type Item struct {
	Key       string `dynamodbav:"key"`
	Data      string `dynamodbav:"data"`
	Timestamp int64  `dynamodbav:"timestamp"`
	TTL       int64  `dynamodbav:"ttl"`
}

// DynamoDBCache implements Provider using DynamoDB
type DynamoDBCache struct {
	client DynamoDBAPI
	ttl    time.Duration
	now    func() time.Time
}

// NewDynamoDBCache creates a DynamoDB cache provider from the default AWS
// configuration
func NewDynamoDBCache(ctx context.Context) (*DynamoDBCache, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewDynamoDBCacheWithClient(dynamodb.NewFromConfig(cfg)), nil
}

// NewDynamoDBCacheWithClient creates a new DynamoDB cache provider with a custom client
func NewDynamoDBCacheWithClient(client DynamoDBAPI) *DynamoDBCache {
	return &DynamoDBCache{
		client: client,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

func itemKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: forestKey},
	}
}

// Initialize creates the DynamoDB table if it doesn't exist
func (c *DynamoDBCache) Initialize(ctx context.Context) error {
	_, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return err
	}

	_, err = c.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("key"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("key"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

// GetForest retrieves the forest from DynamoDB if available and unexpired
func (c *DynamoDBCache) GetForest(ctx context.Context) ([]*models.Category, bool) {
	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       itemKey(),
	})
	if err != nil || result.Item == nil {
		return nil, false
	}

	var item Item
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false
	}

	if c.now().Unix() > item.TTL {
		if err := c.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "error deleting expired cache item", "error", err)
		}
		return nil, false
	}

	var forest []*models.Category
	if err := json.Unmarshal([]byte(item.Data), &forest); err != nil {
		return nil, false
	}
	return forest, true
}

// SetForest stores the forest in DynamoDB
func (c *DynamoDBCache) SetForest(ctx context.Context, forest []*models.Category) {
	data, err := json.Marshal(forest)
	if err != nil {
		return
	}
	now := c.now()
	av, err := attributevalue.MarshalMap(Item{
		Key:       forestKey,
		Data:      string(data),
		Timestamp: now.Unix(),
		TTL:       now.Add(c.ttl).Unix(),
	})
	if err != nil {
		return
	}

	if _, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	}); err != nil {
		// A stale entry must not outlive a failed write.
		if err := c.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "error invalidating cache after put failure", "error", err)
		}
	}
}

// Invalidate removes the forest from DynamoDB
func (c *DynamoDBCache) Invalidate(ctx context.Context) error {
	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       itemKey(),
	})
	return err
}

// SetTTL sets the cache time-to-live duration
func (c *DynamoDBCache) SetTTL(ttl time.Duration) {
	c.ttl = ttl
}
