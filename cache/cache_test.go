package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammiranda/category_service/config"
	"github.com/ammiranda/category_service/models"
	"github.com/ammiranda/category_service/nestedset"
)

// mockDynamoDBClient keeps whole items per table in memory.
type mockDynamoDBClient struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
}

func newMockDynamoDBClient() *mockDynamoDBClient {
	return &mockDynamoDBClient{tables: make(map[string]map[string]map[string]types.AttributeValue)}
}

func (m *mockDynamoDBClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[*params.TableName]; !ok {
		m.tables[*params.TableName] = make(map[string]map[string]types.AttributeValue)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

func (m *mockDynamoDBClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[*params.TableName]; !ok {
		return nil, &types.ResourceNotFoundException{}
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func key(av map[string]types.AttributeValue) string {
	return av["key"].(*types.AttributeValueMemberS).Value
}

func (m *mockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: m.tables[*params.TableName][key(params.Key)]}, nil
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[*params.TableName][key(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables[*params.TableName], key(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func sampleForest() []*models.Category {
	return []*models.Category{
		{
			ID: 1, Name: "Root", Slug: "root", Left: 1, Right: 4,
			Children: []*models.Category{
				{ID: 2, Name: "Child", Slug: "child", ParentID: nestedset.Int64(1), Left: 2, Right: 3, Depth: 1, Children: []*models.Category{}},
			},
		},
	}
}

func testProvider(t *testing.T, p Provider) {
	t.Helper()
	ctx := context.Background()

	_, found := p.GetForest(ctx)
	assert.False(t, found, "empty cache should miss")

	forest := sampleForest()
	p.SetForest(ctx, forest)
	got, found := p.GetForest(ctx)
	require.True(t, found)
	assert.Equal(t, forest, got)

	require.NoError(t, p.Invalidate(ctx))
	_, found = p.GetForest(ctx)
	assert.False(t, found, "invalidated cache should miss")

	p.SetTTL(time.Millisecond)
	p.SetForest(ctx, forest)
	time.Sleep(1100 * time.Millisecond)
	_, found = p.GetForest(ctx)
	assert.False(t, found, "expired entry should miss")
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Initialize(context.Background()))
	testProvider(t, c)
}

func TestDynamoDBCache(t *testing.T) {
	client := newMockDynamoDBClient()
	c := NewDynamoDBCacheWithClient(client)
	require.NoError(t, c.Initialize(context.Background()))
	assert.Contains(t, client.tables, tableName, "Initialize should create the table")
	testProvider(t, c)
}

func TestDynamoDBCacheExpiryDeletesItem(t *testing.T) {
	ctx := context.Background()
	client := newMockDynamoDBClient()
	c := NewDynamoDBCacheWithClient(client)
	require.NoError(t, c.Initialize(ctx))

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	c.SetForest(ctx, sampleForest())

	now = now.Add(DefaultTTL + time.Second)
	_, found := c.GetForest(ctx)
	assert.False(t, found)
	assert.Empty(t, client.tables[tableName], "expired item should be deleted")
}

func TestMockCacheRecordsOperations(t *testing.T) {
	ctx := context.Background()
	c := NewMockCache()
	require.NoError(t, c.Initialize(ctx))

	_, found := c.GetForest(ctx)
	assert.False(t, found)
	c.SetForest(ctx, sampleForest())
	forest, found := c.GetForest(ctx)
	require.True(t, found)
	assert.Len(t, forest, len(sampleForest()))
	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, c.Cached())

	assert.Equal(t, []string{OpMiss, OpSet, OpHit, OpInvalidate}, c.Ops())
	assert.Equal(t, 1, c.Count(OpSet))

	c.SetTTL(time.Minute)
	assert.Equal(t, time.Minute, c.TTL())

	c.Reset()
	assert.Empty(t, c.Ops())
}

func TestMockCacheInvalidateFailureKeepsForest(t *testing.T) {
	ctx := context.Background()
	c := NewMockCache()
	c.InvalidateErr = ErrCacheUnavailable

	c.SetForest(ctx, sampleForest())
	assert.ErrorIs(t, c.Invalidate(ctx), ErrCacheUnavailable)
	assert.True(t, c.Cached())
}

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	var c NoopCache
	c.SetForest(ctx, sampleForest())
	_, found := c.GetForest(ctx)
	assert.False(t, found)
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()
	env := config.NewEnvProvider("CACHETEST_")

	cfg := config.DefaultServiceConfig()
	p, err := NewProvider(ctx, cfg, env)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, p)

	cfg.CacheDriver = "none"
	p, err = NewProvider(ctx, cfg, env)
	require.NoError(t, err)
	assert.IsType(t, NoopCache{}, p)

	cfg.CacheDriver = "memcached"
	_, err = NewProvider(ctx, cfg, env)
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	env := config.NewEnvProvider("")
	if _, err := env.GetString(ctx, "REDIS_HOST"); err != nil {
		t.Skip("REDIS_HOST not set")
	}

	c, err := NewRedisCache(ctx, env)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Initialize(ctx))
	testProvider(t, c)
}
