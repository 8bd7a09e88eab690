package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/songrec/blobstore"
)

// CurrentName is the blob name PointerStore resolves through DynamoDB.
const CurrentName = "CURRENT"

// ErrConcurrentModification is returned when another publisher committed the
// same version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// DDBClient is the subset of the DynamoDB API PointerStore uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ DDBClient = (*dynamodb.Client)(nil)

// PointerStore keeps the CURRENT pointer of an artifact store in DynamoDB.
//
// S3 has no compare-and-swap, so publishing a new catalog version by
// overwriting a CURRENT object could race. Instead every publish appends a
// row with the next version number under a conditional write, and CURRENT
// resolves to the manifest name of the highest version. All other names are
// served by the wrapped store.
//
// Table schema:
//   - Partition key: base_uri (string), the artifact location
//   - Sort key: version (number), monotonically increasing
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name songrec-catalog \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type PointerStore struct {
	blobstore.BlobStore
	ddb       DDBClient
	tableName string
	baseURI   string
}

// NewPointerStore wraps store. baseURI identifies the artifact location,
// e.g. "s3://bucket/songrec".
func NewPointerStore(store blobstore.BlobStore, ddb DDBClient, tableName, baseURI string) *PointerStore {
	return &PointerStore{
		BlobStore: store,
		ddb:       ddb,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Open resolves CURRENT from DynamoDB and delegates every other name.
func (s *PointerStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != CurrentName {
		return s.BlobStore.Open(ctx, name)
	}
	version, manifest, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return blobstore.NewBytesBlob([]byte(manifest)), nil
}

// Put commits CURRENT through DynamoDB and delegates every other name.
func (s *PointerStore) Put(ctx context.Context, name string, data []byte) error {
	if name != CurrentName {
		return s.BlobStore.Put(ctx, name, data)
	}
	_, err := s.Commit(ctx, strings.TrimSpace(string(data)))
	return err
}

// Current returns the latest committed version and manifest name.
// Version 0 means nothing has been committed yet.
func (s *PointerStore) Current(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to query DynamoDB: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in DynamoDB")
	}
	manifestAttr, ok := item["manifest"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid manifest attribute in DynamoDB")
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse version: %w", err)
	}
	return version, manifestAttr.Value, nil
}

// Commit points CURRENT at manifest and returns the new version.
func (s *PointerStore) Commit(ctx context.Context, manifest string) (uint64, error) {
	current, _, err := s.Current(ctx)
	if err != nil {
		return 0, err
	}
	next := current + 1

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"manifest": &types.AttributeValueMemberS{Value: manifest},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentModification
		}
		return 0, fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}
	return next, nil
}
