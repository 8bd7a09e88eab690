package s3

import (
	"context"
	"io"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/songrec/blobstore"
)

// mockDDBClient is an in-memory DynamoDB mock for testing.
type mockDDBClient struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue // base_uri:version -> item
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value
	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}
	version := func(item map[string]types.AttributeValue) uint64 {
		v, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return v
	}
	slices.SortFunc(items, func(a, b map[string]types.AttributeValue) int {
		return int(version(b)) - int(version(a))
	})
	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func TestPointerStore(t *testing.T) {
	ctx := context.Background()
	inner := blobstore.NewMemoryStore()
	store := NewPointerStore(inner, newMockDDBClient(), "songrec-catalog", "s3://bucket/songrec")

	t.Run("NoCurrent", func(t *testing.T) {
		_, err := store.Open(ctx, CurrentName)
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("CommitAndResolve", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, CurrentName, []byte("manifests/v1.json\n")))
		v, err := store.Commit(ctx, "manifests/v2.json")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v)

		got, err := blobstore.ReadAll(ctx, store, CurrentName)
		require.NoError(t, err)
		assert.Equal(t, "manifests/v2.json", string(got))
	})

	t.Run("DelegatesOtherNames", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "manifests/v2.json", []byte("{}")))
		b, err := inner.Open(ctx, "manifests/v2.json")
		require.NoError(t, err)
		defer b.Close()

		rc, err := b.ReadRange(ctx, 0, b.Size())
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
	})
}

func TestPointerStore_ConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store := NewPointerStore(blobstore.NewMemoryStore(), ddb, "t", "s3://bucket/songrec")

	// Simulate a publisher that committed version 1 between our read and write.
	_, err := store.Commit(ctx, "a.json")
	require.NoError(t, err)

	racing := &racingDDB{mockDDBClient: ddb}
	store.ddb = racing
	_, err = store.Commit(ctx, "b.json")
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

// racingDDB reports a stale version on Query, like a reader that lost a race.
type racingDDB struct {
	*mockDDBClient
}

func (r *racingDDB) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}
