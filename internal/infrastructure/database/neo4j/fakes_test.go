package neo4j

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type fakeResult struct {
	records []*neo4j.Record
	pos     int
	err     error
}

func (r *fakeResult) Next(context.Context) bool {
	if r.pos < len(r.records) {
		r.pos++
		return true
	}
	return false
}

func (r *fakeResult) Record() *neo4j.Record { return r.records[r.pos-1] }
func (r *fakeResult) Err() error            { return r.err }
func (r *fakeResult) Consume(context.Context) (neo4j.ResultSummary, error) {
	return nil, r.err
}

type fakeRun struct {
	cypher string
	params map[string]any
}

// fakeTx answers each statement with the first result whose key is a
// substring of the cypher text.
type fakeTx struct {
	runs    []fakeRun
	results map[string]*fakeResult
	failOn  string
}

func (t *fakeTx) Run(_ context.Context, cypher string, params map[string]any) (Result, error) {
	t.runs = append(t.runs, fakeRun{cypher: cypher, params: params})
	if t.failOn != "" && strings.Contains(cypher, t.failOn) {
		return nil, errors.New("neo4j: statement failed")
	}
	for key, res := range t.results {
		if strings.Contains(cypher, key) {
			return res, nil
		}
	}
	return &fakeResult{}, nil
}

type fakeExecutor struct{ tx *fakeTx }

func (e *fakeExecutor) ExecuteRead(_ context.Context, work TransactionWork) (any, error) {
	return work(e.tx)
}

func (e *fakeExecutor) ExecuteWrite(_ context.Context, work TransactionWork) (any, error) {
	return work(e.tx)
}

func record(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}
