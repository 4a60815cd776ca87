package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/postgres"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

var snapshotColumns = []string{"id", "session_id", "name", "payload", "created_at"}

type SnapshotRepoTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo *SnapshotRepository
}

func (s *SnapshotRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	log := logging.NewNopLogger()
	s.repo = NewSnapshotRepository(postgres.NewConnectionWithDB(s.db, log), log)
}

func (s *SnapshotRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func sampleRecord() *explorer.SnapshotRecord {
	return &explorer.SnapshotRecord{
		ID:        "snap-1",
		SessionID: "sess-1",
		Name:      "mitochondria",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Snapshot: explorer.Snapshot{
			Version: explorer.SnapshotVersion,
			Settings: explorer.Settings{
				Filter:     true,
				Selections: []metabolic.Selection{{Attribute: metabolic.AttributeCompartments, Value: "m"}},
			},
		},
	}
}

func (s *SnapshotRepoTestSuite) payload(rec *explorer.SnapshotRecord) []byte {
	data, err := json.Marshal(rec.Snapshot)
	s.Require().NoError(err)
	return data
}

func (s *SnapshotRepoTestSuite) TestSave_Success() {
	rec := sampleRecord()
	s.mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(rec.ID, rec.SessionID, rec.Name, explorer.SnapshotVersion, sqlmock.AnyArg(), rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Save(context.Background(), rec))
}

func (s *SnapshotRepoTestSuite) TestSave_DefaultsCreatedAt() {
	rec := sampleRecord()
	rec.CreatedAt = time.Time{}
	s.mock.ExpectExec("INSERT INTO snapshots").WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Save(context.Background(), rec))
	s.False(rec.CreatedAt.IsZero())
}

func (s *SnapshotRepoTestSuite) TestSave_RequiresIDs() {
	err := s.repo.Save(context.Background(), &explorer.SnapshotRecord{ID: "x"})
	s.True(apperrors.IsCode(err, apperrors.CodeInvalidParam))
}

func (s *SnapshotRepoTestSuite) TestSave_DBError() {
	s.mock.ExpectExec("INSERT INTO snapshots").WillReturnError(errors.New("connection reset"))

	err := s.repo.Save(context.Background(), sampleRecord())
	s.True(apperrors.IsCode(err, apperrors.CodeDatabaseError))
}

func (s *SnapshotRepoTestSuite) TestGet_Found() {
	rec := sampleRecord()
	s.mock.ExpectQuery("SELECT .* FROM snapshots WHERE id =").
		WithArgs(rec.ID).
		WillReturnRows(sqlmock.NewRows(snapshotColumns).
			AddRow(rec.ID, rec.SessionID, rec.Name, s.payload(rec), rec.CreatedAt))

	got, err := s.repo.Get(context.Background(), rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.Name, got.Name)
	s.Equal(rec.Snapshot.Settings.Selections, got.Snapshot.Settings.Selections)
	s.Equal(explorer.SnapshotVersion, got.Snapshot.Version)
}

func (s *SnapshotRepoTestSuite) TestGet_NotFound() {
	s.mock.ExpectQuery("SELECT .* FROM snapshots WHERE id =").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(snapshotColumns))

	_, err := s.repo.Get(context.Background(), "missing")
	s.True(apperrors.IsCode(err, apperrors.CodeSnapshotNotFound))
}

func (s *SnapshotRepoTestSuite) TestGet_CorruptPayload() {
	s.mock.ExpectQuery("SELECT .* FROM snapshots WHERE id =").
		WillReturnRows(sqlmock.NewRows(snapshotColumns).
			AddRow("snap-1", "sess-1", "", []byte("{"), time.Now()))

	_, err := s.repo.Get(context.Background(), "snap-1")
	s.True(apperrors.IsCode(err, apperrors.ErrCodeSnapshotIncomplete))
}

func (s *SnapshotRepoTestSuite) TestList_DefaultLimitAndOrder() {
	first, second := sampleRecord(), sampleRecord()
	second.ID, second.Name = "snap-0", "baseline"
	s.mock.ExpectQuery("SELECT .* FROM snapshots WHERE session_id =").
		WithArgs("sess-1", defaultListLimit).
		WillReturnRows(sqlmock.NewRows(snapshotColumns).
			AddRow(first.ID, first.SessionID, first.Name, s.payload(first), first.CreatedAt).
			AddRow(second.ID, second.SessionID, second.Name, s.payload(second), second.CreatedAt.Add(-time.Hour)))

	out, err := s.repo.List(context.Background(), "sess-1", 0)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal("snap-1", out[0].ID)
	s.Equal("baseline", out[1].Name)
}

func (s *SnapshotRepoTestSuite) TestList_CapsLimit() {
	s.mock.ExpectQuery("SELECT .* FROM snapshots").
		WithArgs("sess-1", maxListLimit).
		WillReturnRows(sqlmock.NewRows(snapshotColumns))

	out, err := s.repo.List(context.Background(), "sess-1", 10_000)
	s.Require().NoError(err)
	s.Empty(out)
}

func (s *SnapshotRepoTestSuite) TestDelete() {
	s.mock.ExpectExec("DELETE FROM snapshots").WithArgs("snap-1").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("DELETE FROM snapshots").WithArgs("snap-1").WillReturnResult(sqlmock.NewResult(0, 0))

	s.NoError(s.repo.Delete(context.Background(), "snap-1"))
	s.True(apperrors.IsNotFound(s.repo.Delete(context.Background(), "snap-1")))
}

func (s *SnapshotRepoTestSuite) TestMetrics_NotFoundIsNotAnError() {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	s.Require().NoError(err)
	s.repo.WithMetrics(prometheus.NewAppMetrics(collector))

	s.mock.ExpectExec("DELETE FROM snapshots").WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec("DELETE FROM snapshots").WillReturnError(errors.New("boom"))
	_ = s.repo.Delete(context.Background(), "a")
	_ = s.repo.Delete(context.Background(), "b")

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()
	s.Contains(body, `test_db_query_duration_seconds_count{db="postgres",operation="delete_snapshot"} 2`)
	s.Contains(body, `test_errors_total{component="postgres",error_type="query_error"} 1`)
}

func TestSnapshotRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SnapshotRepoTestSuite))
}
