package neo4j

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/testutil"
	apperrors "github.com/turtacn/MetaboScope/pkg/errors"
)

type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) internalSession {
	return m.Called(ctx, config).Get(0).(internalSession)
}

func (m *MockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockSession struct {
	mock.Mock
	tx *fakeTx
}

func (m *MockSession) ExecuteRead(_ context.Context, work TransactionWork) (any, error) {
	return work(m.tx)
}

func (m *MockSession) ExecuteWrite(_ context.Context, work TransactionWork) (any, error) {
	return work(m.tx)
}

func (m *MockSession) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestDriver_HealthCheck(t *testing.T) {
	md := new(MockDriver)
	d := &Driver{driver: md, logger: testutil.NewMockLogger()}

	session := &MockSession{tx: &fakeTx{results: map[string]*fakeResult{
		"RETURN 1": {records: []*neo4j.Record{record([]string{"health"}, int64(1))}},
	}}}
	md.On("VerifyConnectivity", mock.Anything).Return(nil)
	md.On("NewSession", mock.Anything, neo4j.SessionConfig{DatabaseName: "neo4j", AccessMode: neo4j.AccessModeRead}).Return(session)
	session.On("Close", mock.Anything).Return(nil)

	require.NoError(t, d.HealthCheck(context.Background()))
	md.AssertExpectations(t)
	session.AssertExpectations(t)
}

func TestDriver_HealthCheckUnreachable(t *testing.T) {
	md := new(MockDriver)
	d := &Driver{driver: md, logger: testutil.NewMockLogger()}
	md.On("VerifyConnectivity", mock.Anything).Return(errors.New("connection refused"))

	err := d.HealthCheck(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatabaseError))
	md.AssertNotCalled(t, "NewSession", mock.Anything, mock.Anything)
}

func TestDriver_ExecuteWriteWrapsErrors(t *testing.T) {
	md := new(MockDriver)
	log := testutil.NewMockLogger()
	d := &Driver{driver: md, cfg: Neo4jConfig{Database: "graphs"}, logger: log}

	session := &MockSession{tx: &fakeTx{failOn: "MERGE"}}
	md.On("NewSession", mock.Anything, neo4j.SessionConfig{DatabaseName: "graphs", AccessMode: neo4j.AccessModeWrite}).Return(session)
	session.On("Close", mock.Anything).Return(nil)

	_, err := d.ExecuteWrite(context.Background(), func(tx Transaction) (any, error) {
		return nil, run(context.Background(), tx, "MERGE (n)", nil)
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatabaseError))
	assert.True(t, log.HasMessage("error", "neo4j write transaction failed"))
}

func TestDriver_CloseOnce(t *testing.T) {
	md := new(MockDriver)
	d := &Driver{driver: md, logger: testutil.NewMockLogger()}
	md.On("Close", mock.Anything).Return(nil).Once()

	assert.NoError(t, d.Close())
	assert.NoError(t, d.Close())
	md.AssertNumberOfCalls(t, "Close", 1)
}

func TestExtractSingleRecord_NotFound(t *testing.T) {
	_, err := ExtractSingleRecord(context.Background(), &fakeResult{}, func(r *neo4j.Record) (any, error) {
		return r.Values[0], nil
	})
	assert.True(t, apperrors.IsNotFound(err))
}
