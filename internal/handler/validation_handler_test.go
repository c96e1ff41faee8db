package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elo-edu/secretaria-api/internal/models"
	"github.com/elo-edu/secretaria-api/internal/service"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

type fakeDocumentFinder struct {
	docs map[string]*models.Document
}

func (f *fakeDocumentFinder) Get(ctx context.Context, code string) (*models.Document, string, error) {
	doc, ok := f.docs[code]
	if !ok {
		return nil, "", appErrors.ErrDocumentNotFound
	}
	copied := *doc
	return &copied, copied.Kind.Partition(), nil
}

type validationEnvelope struct {
	Data struct {
		Valid  bool   `json:"valid"`
		Reason string `json:"reason"`
	} `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func buildValidationRouter(finder *fakeDocumentFinder, signer *service.SignerService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation := service.NewValidationService(finder, signer, nil, nil, nil, 0, nil, nil)
	router := gin.New()
	router.GET("/validacao/:code", NewValidationHandler(validation).Validate)
	return router
}

func issueSignedDocument(t *testing.T, signer *service.SignerService) *models.Document {
	t.Helper()
	builder := service.NewBuilderService(nil, nil, nil)
	draft, err := builder.Build(models.KindMatriculationCertificate,
		models.StudentIdentitySnapshot{ID: "s1", Name: "Maria Souza"},
		models.InstitutionSnapshot{Name: "Escola ELO"},
		models.MatriculationBody{Registration: "2025-001", SchoolYear: 2025, Situation: "Ativo"},
		"")
	require.NoError(t, err)
	signed, err := signer.Sign(draft, models.SignerIdentity{Name: "Diretora"})
	require.NoError(t, err)
	return signed
}

func TestValidationHandlerValidDocument(t *testing.T) {
	builder := service.NewBuilderService(nil, nil, nil)
	signer := service.NewSignerService(builder, func() time.Time { return time.Now() }, nil)
	doc := issueSignedDocument(t, signer)
	router := buildValidationRouter(&fakeDocumentFinder{docs: map[string]*models.Document{doc.ID: doc}}, signer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/validacao/"+doc.ID, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope validationEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Valid)
	assert.Empty(t, envelope.Data.Reason)
}

func TestValidationHandlerUnknownCodeIsNegativeVerdict(t *testing.T) {
	builder := service.NewBuilderService(nil, nil, nil)
	signer := service.NewSignerService(builder, nil, nil)
	router := buildValidationRouter(&fakeDocumentFinder{docs: map[string]*models.Document{}}, signer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/validacao/DOC-NOPE-AAAAA", nil))

	// The public page always answers 200 with a structured verdict.
	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope validationEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Valid)
	assert.Equal(t, "not_found", envelope.Data.Reason)
}

func TestValidationHandlerTamperedDocument(t *testing.T) {
	builder := service.NewBuilderService(nil, nil, nil)
	signer := service.NewSignerService(builder, nil, nil)
	doc := issueSignedDocument(t, signer)
	doc.Observations = "alterado"
	router := buildValidationRouter(&fakeDocumentFinder{docs: map[string]*models.Document{doc.ID: doc}}, signer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/validacao/"+doc.ID, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope validationEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Valid)
	assert.Equal(t, "integrity_mismatch", envelope.Data.Reason)
}
