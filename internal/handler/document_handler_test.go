package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elo-edu/secretaria-api/internal/models"
	"github.com/elo-edu/secretaria-api/internal/service"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

const testBaseURL = "https://secretaria.escola.example/api/v1"

func TestDocumentHandlerIssueRejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(nil, nil, nil, testBaseURL)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Issue(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandlerIssueRequiresKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(nil, nil, nil, testBaseURL)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{"student_id":"s1"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Issue(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandlerCancelRequiresReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(nil, nil, nil, testBaseURL)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/documents/DOC-X-YYYYY/cancel", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Cancel(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeDocumentStore struct {
	docs map[string]*models.Document
}

func (f *fakeDocumentStore) Put(ctx context.Context, partition, code string, doc *models.Document, payload map[string]interface{}) error {
	return nil
}

func (f *fakeDocumentStore) Update(ctx context.Context, partition, code string, doc *models.Document, payload map[string]interface{}) error {
	return nil
}

func (f *fakeDocumentStore) Get(ctx context.Context, code string) (*models.Document, string, error) {
	doc, ok := f.docs[code]
	if !ok {
		return nil, "", appErrors.ErrDocumentNotFound
	}
	copied := *doc
	return &copied, copied.Kind.Partition(), nil
}

func (f *fakeDocumentStore) List(ctx context.Context, partition string, limit int) ([]models.Document, error) {
	return nil, nil
}

func (f *fakeDocumentStore) Stats(ctx context.Context) (*models.DocumentStats, error) {
	return &models.DocumentStats{}, nil
}

func TestDocumentHandlerDownloadURLIsAbsolute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	builder := service.NewBuilderService(nil, nil, nil)
	signer := service.NewSignerService(builder, nil, nil)
	doc := issueSignedDocument(t, signer)
	secretary := service.NewSecretaryService(service.SecretaryServiceConfig{},
		nil, nil, nil, &fakeDocumentStore{docs: map[string]*models.Document{doc.ID: doc}},
		nil, nil, nil, nil, nil, nil, nil, nil, nil)
	tokens := service.NewDownloadTokenService("segredo-de-teste", time.Hour, nil)
	handler := NewDocumentHandler(secretary, tokens, nil, testBaseURL)

	router := gin.New()
	router.GET("/documents/:code/download-url", handler.DownloadURL)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/"+doc.ID+"/download-url", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data struct {
			URL       string    `json:"url"`
			ExpiresAt time.Time `json:"expires_at"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	// Printable links must be absolute, not host-relative.
	prefix := testBaseURL + "/documents/download?token="
	require.True(t, strings.HasPrefix(envelope.Data.URL, prefix))

	code, err := tokens.Parse(strings.TrimPrefix(envelope.Data.URL, prefix))
	require.NoError(t, err)
	assert.Equal(t, doc.ID, code)
}
