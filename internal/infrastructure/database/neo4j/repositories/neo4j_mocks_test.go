package repositories

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"

	infraNeo4j "github.com/turtacn/HyperBlend/internal/infrastructure/database/neo4j"
)

// MockExecutor runs every unit of work against one MockTransaction.
type MockExecutor struct {
	mock.Mock
	Tx *MockTransaction
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{Tx: new(MockTransaction)}
}

func (m *MockExecutor) ExecuteRead(_ context.Context, work infraNeo4j.TransactionWork) (any, error) {
	return work(m.Tx)
}

func (m *MockExecutor) ExecuteWrite(_ context.Context, work infraNeo4j.TransactionWork) (any, error) {
	return work(m.Tx)
}

func (m *MockExecutor) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockTransaction answers Run with a result chosen by cypher fragment. A
// registered func(map[string]any) infraNeo4j.Result is invoked per call so
// that every call gets a fresh cursor.
type MockTransaction struct {
	mock.Mock
}

func (m *MockTransaction) Run(ctx context.Context, cypher string, params map[string]any) (infraNeo4j.Result, error) {
	args := m.Called(ctx, cypher, params)
	if fn, ok := args.Get(0).(func(map[string]any) infraNeo4j.Result); ok {
		return fn(params), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(infraNeo4j.Result), args.Error(1)
}

// OnCypher registers a response for any statement containing fragment.
func (m *MockTransaction) OnCypher(fragment string, fn func(params map[string]any) infraNeo4j.Result) *mock.Call {
	return m.On("Run", mock.Anything, mock.MatchedBy(func(c string) bool {
		return strings.Contains(c, fragment)
	}), mock.Anything).Return(fn, nil)
}

// MockResult iterates over fixed records.
type MockResult struct {
	Records []*neo4j.Record
	Current int
}

func Rows(records ...*neo4j.Record) *MockResult { return &MockResult{Records: records} }

func (m *MockResult) Next(context.Context) bool {
	if m.Current < len(m.Records) {
		m.Current++
		return true
	}
	return false
}

func (m *MockResult) Record() *neo4j.Record {
	if m.Current == 0 || m.Current > len(m.Records) {
		return nil
	}
	return m.Records[m.Current-1]
}

func (m *MockResult) Err() error { return nil }

func (m *MockResult) Consume(context.Context) (neo4j.ResultSummary, error) { return nil, nil }

// NewRecord builds a record from alternating key/value pairs.
func NewRecord(kv ...any) *neo4j.Record {
	rec := &neo4j.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Keys = append(rec.Keys, kv[i].(string))
		rec.Values = append(rec.Values, kv[i+1])
	}
	return rec
}

// NodeRecord is the projection used by the entity repository.
func NodeRecord(eid string, props map[string]any, refs ...map[string]any) *neo4j.Record {
	list := make([]any, 0, len(refs))
	for _, r := range refs {
		list = append(list, r)
	}
	return NewRecord("props", props, "eid", eid, "refs", list)
}
