package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/elo-edu/secretaria-api/internal/models"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

const pqUniqueViolation = "23505"

// DocumentRepository persists issued documents in named partitions keyed by
// verification code. The code carries a unique constraint, which is the
// atomic collision check issuance relies on.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

type documentRow struct {
	Partition string    `db:"partition"`
	Code      string    `db:"code"`
	Kind      string    `db:"kind"`
	Status    string    `db:"status"`
	StudentID string    `db:"student_id"`
	IssuedAt  time.Time `db:"issued_at"`
	Payload   []byte    `db:"payload"`
}

// Put inserts a new document payload. A duplicate verification code surfaces
// as ErrDuplicateCode so the caller can regenerate and retry.
func (r *DocumentRepository) Put(ctx context.Context, partition, code string, doc *models.Document, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", code, err)
	}

	const query = `
		INSERT INTO documents (partition, code, kind, status, student_id, issued_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query, partition, code, string(doc.Kind), string(doc.Status), doc.Student.ID, doc.IssuedAt, raw)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return appErrors.ErrDuplicateCode
		}
		return fmt.Errorf("insert document %s: %w", code, err)
	}
	return nil
}

// Update replaces the stored payload and status for an existing document.
func (r *DocumentRepository) Update(ctx context.Context, partition, code string, doc *models.Document, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", code, err)
	}

	const query = `
		UPDATE documents SET status = $1, payload = $2, updated_at = NOW()
		WHERE partition = $3 AND code = $4`

	res, err := r.db.ExecContext(ctx, query, string(doc.Status), raw, partition, code)
	if err != nil {
		return fmt.Errorf("update document %s: %w", code, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return appErrors.ErrDocumentNotFound
	}
	return nil
}

// Get looks a code up across every partition in the fixed fan-out order,
// since the code alone does not indicate where the document lives.
func (r *DocumentRepository) Get(ctx context.Context, code string) (*models.Document, string, error) {
	const query = `
		SELECT partition, code, kind, status, student_id, issued_at, payload
		FROM documents WHERE partition = $1 AND code = $2`

	for _, partition := range models.Partitions {
		var row documentRow
		err := r.db.GetContext(ctx, &row, query, partition, code)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, "", fmt.Errorf("get document %s: %w", code, err)
		}
		doc, err := decodeDocument(row.Payload)
		if err != nil {
			return nil, "", err
		}
		return doc, partition, nil
	}
	return nil, "", appErrors.ErrDocumentNotFound
}

// List returns documents, newest first, optionally scoped to one partition.
func (r *DocumentRepository) List(ctx context.Context, partition string, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []documentRow
	var err error
	if partition != "" {
		const query = `
			SELECT partition, code, kind, status, student_id, issued_at, payload
			FROM documents WHERE partition = $1
			ORDER BY issued_at DESC LIMIT $2`
		err = r.db.SelectContext(ctx, &rows, query, partition, limit)
	} else {
		const query = `
			SELECT partition, code, kind, status, student_id, issued_at, payload
			FROM documents
			ORDER BY issued_at DESC LIMIT $1`
		err = r.db.SelectContext(ctx, &rows, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]models.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeDocument(row.Payload)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// Stats aggregates totals per partition and per issuance month.
func (r *DocumentRepository) Stats(ctx context.Context) (*models.DocumentStats, error) {
	stats := &models.DocumentStats{
		ByPartition: make(map[string]int64),
		ByMonth:     make(map[string]int64),
	}

	type partitionCount struct {
		Partition string `db:"partition"`
		Count     int64  `db:"count"`
	}
	var partitions []partitionCount
	const partitionQuery = `SELECT partition, COUNT(*) AS count FROM documents GROUP BY partition`
	if err := r.db.SelectContext(ctx, &partitions, partitionQuery); err != nil {
		return nil, fmt.Errorf("document stats by partition: %w", err)
	}
	for _, pc := range partitions {
		stats.ByPartition[pc.Partition] = pc.Count
		stats.TotalDocuments += pc.Count
	}

	type monthCount struct {
		Month string `db:"month"`
		Count int64  `db:"count"`
	}
	var months []monthCount
	const monthQuery = `SELECT TO_CHAR(issued_at, 'YYYY-MM') AS month, COUNT(*) AS count FROM documents GROUP BY 1`
	if err := r.db.SelectContext(ctx, &months, monthQuery); err != nil {
		return nil, fmt.Errorf("document stats by month: %w", err)
	}
	for _, mc := range months {
		stats.ByMonth[mc.Month] = mc.Count
	}

	return stats, nil
}

func decodeDocument(payload []byte) (*models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode document payload: %w", err)
	}
	return &doc, nil
}
