package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

func TestStudentRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "cpf", "rg", "birth_date", "birth_place", "father_name", "mother_name", "registration", "grade_level", "class_group", "shift", "enrolled_at", "active"}).
		AddRow("s1", "Maria Souza", "111.222.333-44", "12.345.678-9", "2010-05-20", "Sao Paulo", "Jose", "Ana", "2025-001", "9º Ano", "A", "Manhã", nil, true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, cpf, rg")).
		WithArgs("s1").
		WillReturnRows(rows)

	student, err := repo.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", student.Name)
	assert.True(t, student.Active)

	snapshot := student.Snapshot()
	assert.Equal(t, "s1", snapshot.ID)
	assert.Equal(t, "111.222.333-44", snapshot.CPF)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryGetByIDUnknown(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, cpf, rg")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrStudentNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDisciplineRepositoryResolveNameFallsBackToID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDisciplineRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM disciplines")).
		WithArgs("mat").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	name, err := repo.ResolveName(context.Background(), "mat")
	require.NoError(t, err)
	assert.Equal(t, "mat", name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstitutionRepositoryGetProfileDefault(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewInstitutionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM institution_profile")).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	profile, err := repo.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Escola ELO", profile.Name)
	assert.Equal(t, "AC-TESTE", profile.Certificate.Issuer)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstitutionRepositoryGetProfileStored(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	stored := DefaultInstitutionProfile()
	stored.Name = "Escola ELO II"
	raw, err := json.Marshal(stored)
	require.NoError(t, err)

	repo := NewInstitutionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM institution_profile")).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(raw))

	profile, err := repo.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Escola ELO II", profile.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstitutionRepositorySaveProfile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewInstitutionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO institution_profile")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	profile := DefaultInstitutionProfile()
	require.NoError(t, repo.SaveProfile(context.Background(), &profile))
	require.NoError(t, mock.ExpectationsWereMet())
}
