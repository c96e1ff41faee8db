package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/elo-edu/secretaria-api/internal/models"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

// StudentRepository reads student identity and enrollment data.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetByID loads one student row.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `
		SELECT id, name, cpf, rg, birth_date, birth_place, father_name, mother_name,
		       registration, grade_level, class_group, shift, enrolled_at, active
		FROM students WHERE id = $1`

	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("get student %s: %w", id, err)
	}
	return &student, nil
}

// DisciplineRepository resolves discipline display names.
type DisciplineRepository struct {
	db *sqlx.DB
}

// NewDisciplineRepository constructs the repository.
func NewDisciplineRepository(db *sqlx.DB) *DisciplineRepository {
	return &DisciplineRepository{db: db}
}

// ResolveName returns the discipline name, falling back to the id itself when
// the discipline is unknown.
func (r *DisciplineRepository) ResolveName(ctx context.Context, id string) (string, error) {
	const query = `SELECT name FROM disciplines WHERE id = $1`

	var name string
	if err := r.db.GetContext(ctx, &name, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id, nil
		}
		return "", fmt.Errorf("resolve discipline %s: %w", id, err)
	}
	return name, nil
}

// InstitutionRepository stores the single institution profile used for
// snapshots. The profile is kept as one JSONB row so the schema tracks the
// snapshot shape without migrations.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository constructs the repository.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// DefaultInstitutionProfile is used until the secretary configures the real
// profile.
func DefaultInstitutionProfile() models.InstitutionSnapshot {
	return models.InstitutionSnapshot{
		Name:  "Escola ELO",
		TaxID: "00.000.000/0001-00",
		Address: models.InstitutionAddress{
			Street:  "Rua da Escola, 123",
			City:    "Sao Paulo",
			State:   "SP",
			ZipCode: "00000-000",
		},
		Phone: "(11) 0000-0000",
		Email: "secretaria@escola.com.br",
		Signer: models.SignerIdentity{
			Name: "Diretor(a)",
			CPF:  "000.000.000-00",
			Role: "Diretor(a) Escolar",
		},
		Certificate: models.CertificateMetadata{
			Serial:     "123456789",
			Issuer:     "AC-TESTE",
			Type:       "A1",
			ValidUntil: "2025-12-31",
		},
	}
}

// GetProfile returns the configured profile, or the documented default when
// none has been stored yet.
func (r *InstitutionRepository) GetProfile(ctx context.Context) (*models.InstitutionSnapshot, error) {
	const query = `SELECT payload FROM institution_profile WHERE id = 1`

	var raw []byte
	if err := r.db.GetContext(ctx, &raw, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			profile := DefaultInstitutionProfile()
			return &profile, nil
		}
		return nil, fmt.Errorf("get institution profile: %w", err)
	}

	var profile models.InstitutionSnapshot
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode institution profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile upserts the institution profile.
func (r *InstitutionRepository) SaveProfile(ctx context.Context, profile *models.InstitutionSnapshot) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal institution profile: %w", err)
	}

	const query = `
		INSERT INTO institution_profile (id, payload, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, raw); err != nil {
		return fmt.Errorf("save institution profile: %w", err)
	}
	return nil
}
