package opensearch

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/MetaboScope/internal/testutil"
)

// fakeAPI records requests and answers with canned JSON responses.
type fakeAPI struct {
	mu         sync.Mutex
	pingErr    error
	exists     bool
	created    map[string][]byte
	deleted    []string
	bulkBodies [][]byte
	bulkJSON   string
	bulkErr    error
	searchBody []byte
	searchJSON string
	searchErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{created: make(map[string][]byte), bulkJSON: `{"errors":false,"items":[]}`}
}

func (f *fakeAPI) Ping(context.Context) error { return f.pingErr }

func (f *fakeAPI) IndexExists(_ context.Context, index string) (bool, error) {
	if _, ok := f.created[index]; ok {
		return true, nil
	}
	return f.exists, nil
}

func (f *fakeAPI) CreateIndex(_ context.Context, index string, body []byte) error {
	f.created[index] = body
	return nil
}

func (f *fakeAPI) DeleteIndex(_ context.Context, index string) error {
	f.deleted = append(f.deleted, index)
	return nil
}

func (f *fakeAPI) Bulk(_ context.Context, body []byte, _ string) (*opensearchapi.BulkResp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkBodies = append(f.bulkBodies, body)
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	var resp opensearchapi.BulkResp
	if err := json.Unmarshal([]byte(f.bulkJSON), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *fakeAPI) Search(_ context.Context, _ string, body []byte) (*opensearchapi.SearchResp, error) {
	f.searchBody = body
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var resp opensearchapi.SearchResp
	if err := json.Unmarshal([]byte(f.searchJSON), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func newTestClient(api searchAPI) (*Client, *testutil.MockLogger) {
	log := testutil.NewMockLogger()
	return newClientWithAPI(api, ClientConfig{Addresses: []string{"http://localhost:9200"}}, log), log
}
