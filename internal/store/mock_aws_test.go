package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// mockDynamo is a small in-memory stand-in for the orders table. It keeps
// items keyed by the "id" attribute and answers index queries with a linear
// scan, which is plenty for unit tests.
type mockDynamo struct {
	mu          sync.Mutex
	items       map[string]map[string]types.AttributeValue
	putErr      error
	putCalls    int
	queryCalls  int
	updateCalls int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putErr != nil {
		return nil, m.putErr
	}
	idAttr, ok := params.Item["id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("put item without id")
	}
	m.items[idAttr.Value] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	attr := params.ExpressionAttributeNames["#k"]
	wantAttr, ok := params.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS)
	if attr == "" || !ok {
		return nil, errors.New("unexpected query shape")
	}
	for _, item := range m.items {
		v, ok := item[attr].(*types.AttributeValueMemberS)
		if ok && v.Value == wantAttr.Value {
			return &dyn.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil
		}
	}
	return &dyn.QueryOutput{}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	idAttr, ok := params.Key["id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("update without id key")
	}
	item, ok := m.items[idAttr.Value]
	if !ok {
		return nil, errors.New("item not found")
	}
	if v, ok := params.ExpressionAttributeValues[":status"]; ok {
		item["status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":lu"]; ok {
		item["last_updated"] = v
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

// statusOf returns the stored status cell for the single-item case.
func (m *mockDynamo) statusOf(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ""
	}
	if v, ok := item["status"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// mockS3 stores one versioned object per key and enforces the IfMatch /
// IfNoneMatch preconditions the ledger relies on. staleReads hands out the
// previous generation to simulate a concurrent writer sneaking in between
// the read and the conditional rewrite.
type mockObject struct {
	data []byte
	etag string
}

type mockS3 struct {
	mu         sync.Mutex
	objects    map[string]mockObject
	previous   map[string]mockObject
	generation int
	staleReads int
	getErr     error
	putErr     error
	putCalls   int
}

func newMockS3() *mockS3 {
	return &mockS3{
		objects:  map[string]mockObject{},
		previous: map[string]mockObject{},
	}
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	obj, ok := m.objects[*params.Key]
	if m.staleReads > 0 {
		m.staleReads--
		obj, ok = m.previous[*params.Key]
	}
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(obj.data)),
		ETag: &obj.etag,
	}, nil
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putErr != nil {
		return nil, m.putErr
	}

	current, exists := m.objects[*params.Key]
	if params.IfMatch != nil && (!exists || current.etag != *params.IfMatch) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed"}
	}
	if params.IfNoneMatch != nil && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed"}
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if exists {
		m.previous[*params.Key] = current
	}
	m.generation++
	m.objects[*params.Key] = mockObject{
		data: data,
		etag: fmt.Sprintf(`"v%d"`, m.generation),
	}
	return &s3.PutObjectOutput{}, nil
}
