package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elo-edu/secretaria-api/internal/models"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func testDocument() (*models.Document, map[string]interface{}) {
	doc := &models.Document{
		ID:       "DOC-ABC-12345",
		Kind:     models.KindMatriculationCertificate,
		Status:   models.StatusSigned,
		Student:  models.StudentIdentitySnapshot{ID: "s1", Name: "Maria Souza"},
		IssuedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	payload := map[string]interface{}{
		"id":     doc.ID,
		"kind":   string(doc.Kind),
		"status": string(doc.Status),
	}
	return doc, payload
}

func TestDocumentRepositoryPut(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	doc, payload := testDocument()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs(models.PartitionDeclarations, doc.ID, string(doc.Kind), string(doc.Status), "s1", doc.IssuedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Put(context.Background(), models.PartitionDeclarations, doc.ID, doc, payload))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryPutDuplicateCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	doc, payload := testDocument()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Put(context.Background(), models.PartitionDeclarations, doc.ID, doc, payload)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateCode))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryGetFansOutAcrossPartitions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	doc, _ := testDocument()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	// Misses in transcripts, hits in declarations; later partitions are
	// never queried.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT partition, code, kind, status, student_id, issued_at, payload")).
		WithArgs(models.PartitionTranscripts, doc.ID).
		WillReturnRows(sqlmock.NewRows([]string{"partition"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT partition, code, kind, status, student_id, issued_at, payload")).
		WithArgs(models.PartitionDeclarations, doc.ID).
		WillReturnRows(sqlmock.NewRows([]string{"partition", "code", "kind", "status", "student_id", "issued_at", "payload"}).
			AddRow(models.PartitionDeclarations, doc.ID, string(doc.Kind), string(doc.Status), "s1", doc.IssuedAt, raw))

	found, partition, err := repo.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartitionDeclarations, partition)
	assert.Equal(t, doc.ID, found.ID)
	assert.Equal(t, models.StatusSigned, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryGetUnknownCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	for _, partition := range models.Partitions {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT partition, code, kind, status, student_id, issued_at, payload")).
			WithArgs(partition, "DOC-NOPE-AAAAA").
			WillReturnRows(sqlmock.NewRows([]string{"partition"}))
	}

	_, _, err := repo.Get(context.Background(), "DOC-NOPE-AAAAA")
	assert.True(t, appErrors.Is(err, appErrors.ErrDocumentNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	doc, payload := testDocument()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), models.PartitionDeclarations, doc.ID, doc, payload)
	assert.True(t, appErrors.Is(err, appErrors.ErrDocumentNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT partition, COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"partition", "count"}).
			AddRow(models.PartitionTranscripts, 3).
			AddRow(models.PartitionDeclarations, 5))
	mock.ExpectQuery(regexp.QuoteMeta("TO_CHAR(issued_at, 'YYYY-MM')")).
		WillReturnRows(sqlmock.NewRows([]string{"month", "count"}).
			AddRow("2025-02", 4).
			AddRow("2025-03", 4))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), stats.TotalDocuments)
	assert.Equal(t, int64(3), stats.ByPartition[models.PartitionTranscripts])
	assert.Equal(t, int64(4), stats.ByMonth["2025-03"])
	require.NoError(t, mock.ExpectationsWereMet())
}
