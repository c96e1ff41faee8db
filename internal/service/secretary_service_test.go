package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elo-edu/secretaria-api/internal/dto"
	"github.com/elo-edu/secretaria-api/internal/models"
	"github.com/elo-edu/secretaria-api/internal/repository"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

type mockStudentReader struct {
	students map[string]models.Student
}

func (m *mockStudentReader) GetByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, appErrors.ErrStudentNotFound
}

type mockAcademicReader struct {
	grades     []models.GradeEntry
	attendance []models.AttendanceEntry
}

func (m *mockAcademicReader) ListGrades(ctx context.Context, studentID string) ([]models.GradeEntry, error) {
	return m.grades, nil
}

func (m *mockAcademicReader) ListAttendance(ctx context.Context, studentID string) ([]models.AttendanceEntry, error) {
	return m.attendance, nil
}

type mockInstitutionStore struct {
	profile *models.InstitutionSnapshot
	saved   []models.InstitutionSnapshot
}

func (m *mockInstitutionStore) GetProfile(ctx context.Context) (*models.InstitutionSnapshot, error) {
	if m.profile == nil {
		return nil, appErrors.ErrInternal
	}
	copied := *m.profile
	return &copied, nil
}

func (m *mockInstitutionStore) SaveProfile(ctx context.Context, profile *models.InstitutionSnapshot) error {
	m.saved = append(m.saved, *profile)
	m.profile = profile
	return nil
}

type storedDoc struct {
	doc       models.Document
	partition string
}

type mockDocumentStore struct {
	docs           map[string]storedDoc
	failDuplicates int
	puts           int
}

func (m *mockDocumentStore) Put(ctx context.Context, partition, code string, doc *models.Document, payload map[string]interface{}) error {
	m.puts++
	if m.failDuplicates > 0 {
		m.failDuplicates--
		return appErrors.ErrDuplicateCode
	}
	if _, ok := m.docs[code]; ok {
		return appErrors.ErrDuplicateCode
	}
	if m.docs == nil {
		m.docs = make(map[string]storedDoc)
	}
	m.docs[code] = storedDoc{doc: *doc, partition: partition}
	return nil
}

func (m *mockDocumentStore) Update(ctx context.Context, partition, code string, doc *models.Document, payload map[string]interface{}) error {
	if _, ok := m.docs[code]; !ok {
		return appErrors.ErrDocumentNotFound
	}
	m.docs[code] = storedDoc{doc: *doc, partition: partition}
	return nil
}

func (m *mockDocumentStore) Get(ctx context.Context, code string) (*models.Document, string, error) {
	stored, ok := m.docs[code]
	if !ok {
		return nil, "", appErrors.ErrDocumentNotFound
	}
	copied := stored.doc
	return &copied, stored.partition, nil
}

func (m *mockDocumentStore) List(ctx context.Context, partition string, limit int) ([]models.Document, error) {
	var out []models.Document
	for _, stored := range m.docs {
		if partition != "" && stored.partition != partition {
			continue
		}
		out = append(out, stored.doc)
	}
	return out, nil
}

func (m *mockDocumentStore) Stats(ctx context.Context) (*models.DocumentStats, error) {
	stats := &models.DocumentStats{ByPartition: map[string]int64{}, ByMonth: map[string]int64{}}
	for _, stored := range m.docs {
		stats.TotalDocuments++
		stats.ByPartition[stored.partition]++
	}
	return stats, nil
}

type mockQRAttacher struct {
	baseURL string
}

func (m *mockQRAttacher) ValidationURL(code string) string {
	return m.baseURL + "/validacao/" + code
}

func (m *mockQRAttacher) EncodeDataURL(code string) (string, error) {
	return "data:image/png;base64,QR-" + code, nil
}

type mockCacheStore struct {
	entries map[string]interface{}
	deleted []string
}

func (m *mockCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	// Always miss; decoding into dest is covered by the repository tests.
	return appErrors.ErrCacheMiss
}

func (m *mockCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string]interface{})
	}
	m.entries[key] = value
	return nil
}

func (m *mockCacheStore) Delete(ctx context.Context, keys ...string) {
	m.deleted = append(m.deleted, keys...)
}

type mockIssueMetrics struct {
	issued []string
	hits   int
	misses int
}

func (m *mockIssueMetrics) ObserveIssued(kind string) { m.issued = append(m.issued, kind) }

func (m *mockIssueMetrics) ObserveCache(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func testInstitution() *models.InstitutionSnapshot {
	return &models.InstitutionSnapshot{
		Name:   "Escola ELO",
		TaxID:  "00.000.000/0001-00",
		Signer: models.SignerIdentity{Name: "Diretora", Role: "Diretora"},
		Certificate: models.CertificateMetadata{
			Serial:     "123456789",
			Issuer:     "AC-TESTE",
			Type:       "A1",
			ValidUntil: "2025-12-31",
		},
	}
}

type secretaryFixture struct {
	svc       *SecretaryService
	students  *mockStudentReader
	academics *mockAcademicReader
	docs      *mockDocumentStore
	cache     *mockCacheStore
	audit     *mockAuditLogger
	metrics   *mockIssueMetrics
	inst      *mockInstitutionStore
}

func newSecretaryFixture(t *testing.T) *secretaryFixture {
	t.Helper()
	students := &mockStudentReader{students: map[string]models.Student{
		"s1": {ID: "s1", Name: "Maria Souza", Registration: "2025-001", GradeLevel: "9º Ano", ClassGroup: "A", Shift: "Manhã", Active: true},
		"s2": {ID: "s2", Name: "João Lima", Registration: "2025-002", Active: true},
		"s3": {ID: "s3", Name: "Ana Castro", Registration: "2025-003", Active: true},
	}}
	academics := &mockAcademicReader{
		grades: append(
			gradeRows("s1", "mat", 2023, 8, 9, 6, 7),
			append(gradeRows("s1", "por", 2024, 9, 9, 9, 9), gradeRows("s2", "mat", 2024, 3, 3, 3, 3)...)...),
		attendance: append(
			attendanceRows("s1", "mat", 2023, 20, 18),
			attendanceRows("s1", "por", 2024, 20, 20)...),
	}
	docs := &mockDocumentStore{docs: map[string]storedDoc{}}
	cache := &mockCacheStore{}
	audit := &mockAuditLogger{}
	metrics := &mockIssueMetrics{}
	inst := &mockInstitutionStore{profile: testInstitution()}

	builder := NewBuilderService(nil, nil, nil)
	signer := NewSignerService(builder, nil, nil)
	history := NewHistoryService(&mockDisciplineResolver{}, models.OutcomePolicy{}, nil)

	svc := NewSecretaryService(
		SecretaryServiceConfig{CodeMaxAttempts: 3},
		students, academics, inst, docs, history, builder, signer,
		&mockQRAttacher{baseURL: "https://escola.example"}, nil,
		cache, audit, metrics, nil)
	return &secretaryFixture{svc: svc, students: students, academics: academics, docs: docs, cache: cache, audit: audit, metrics: metrics, inst: inst}
}

func TestSecretaryServiceIssueTranscript(t *testing.T) {
	f := newSecretaryFixture(t)

	doc, err := f.svc.IssueTranscript(context.Background(), &dto.IssueDocumentRequest{
		Kind:      string(models.KindTranscript),
		StudentID: "s1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusSigned, doc.Status)
	assert.NotNil(t, doc.Signature)
	assert.NotEmpty(t, doc.QRCode)
	assert.Equal(t, models.LegalNotice, doc.LegalNotice)
	assert.Equal(t, "Maria Souza", doc.Student.Name)

	body, ok := doc.Body.(models.TranscriptBody)
	require.True(t, ok)
	require.Len(t, body.Years, 2)
	assert.Equal(t, 2023, body.Years[0].Year)
	assert.Equal(t, 2024, body.Years[1].Year)
	assert.Equal(t, 2, body.Summary.TotalYears)
	assert.Equal(t, 2, body.Summary.TotalDisciplines)
	assert.Equal(t, 8.25, body.Summary.OverallAverage)
	assert.Equal(t, 95.0, body.Summary.OverallAttendance)

	stored, ok := f.docs.docs[doc.ID]
	require.True(t, ok)
	assert.Equal(t, models.PartitionTranscripts, stored.partition)
	assert.Equal(t, []string{models.AuditActionDocumentIssued}, f.audit.actions)
	assert.Equal(t, []string{string(models.KindTranscript)}, f.metrics.issued)
}

func TestSecretaryServiceIssueRetriesOnDuplicateCode(t *testing.T) {
	f := newSecretaryFixture(t)
	f.docs.failDuplicates = 2

	doc, err := f.svc.IssueMatriculationCertificate(context.Background(), &dto.IssueDocumentRequest{
		Kind:      string(models.KindMatriculationCertificate),
		StudentID: "s1",
		Purpose:   "comprovação de matrícula",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, f.docs.puts)
	assert.Equal(t, models.StatusSigned, doc.Status)
}

func TestSecretaryServiceIssueExhaustsCodeAttempts(t *testing.T) {
	f := newSecretaryFixture(t)
	f.docs.failDuplicates = 10

	_, err := f.svc.IssueMatriculationCertificate(context.Background(), &dto.IssueDocumentRequest{
		Kind:      string(models.KindMatriculationCertificate),
		StudentID: "s1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrGenerationExhausted))
	assert.Equal(t, 3, f.docs.puts)
}

func TestSecretaryServiceIssueUnknownStudent(t *testing.T) {
	f := newSecretaryFixture(t)

	_, err := f.svc.IssueTranscript(context.Background(), &dto.IssueDocumentRequest{
		Kind:      string(models.KindTranscript),
		StudentID: "ghost",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrStudentNotFound))
}

func TestSecretaryServiceIssueDispatch(t *testing.T) {
	f := newSecretaryFixture(t)

	doc, err := f.svc.Issue(context.Background(), &dto.IssueDocumentRequest{
		Kind:        string(models.KindAttendanceCertificate),
		StudentID:   "s1",
		PeriodStart: "2024-02-01",
		PeriodEnd:   "2024-11-30",
	})
	require.NoError(t, err)
	body, ok := doc.Body.(models.AttendanceBody)
	require.True(t, ok)
	assert.Equal(t, 95.0, body.AttendancePercent)

	_, err = f.svc.Issue(context.Background(), &dto.IssueDocumentRequest{Kind: "diploma"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidKind))
}

func TestSecretaryServiceIssueResultsMinutes(t *testing.T) {
	f := newSecretaryFixture(t)

	doc, err := f.svc.IssueResultsMinutes(context.Background(), &dto.IssueDocumentRequest{
		Kind:       string(models.KindResultsMinutes),
		Year:       2024,
		StudentIDs: []string{"s1", "s2", "s3"},
	})
	require.NoError(t, err)

	// Institution-level document: no student snapshot.
	assert.Empty(t, doc.Student.ID)

	body, ok := doc.Body.(models.ResultsMinutesBody)
	require.True(t, ok)
	require.Len(t, body.Entries, 3)
	assert.Equal(t, models.YearApproved, body.Entries[0].Outcome)
	assert.Equal(t, models.YearApprovedWithDependency, body.Entries[1].Outcome)
	assert.Equal(t, 1, body.Entries[1].Failing)
	// No rows for the year never certifies approval.
	assert.Equal(t, models.YearNoRecords, body.Entries[2].Outcome)
	assert.Equal(t, 0, body.Entries[2].Failing)

	stored := f.docs.docs[doc.ID]
	assert.Equal(t, models.PartitionCertificates, stored.partition)
}

func TestSecretaryServiceCancelAndReissue(t *testing.T) {
	f := newSecretaryFixture(t)

	doc, err := f.svc.IssueMatriculationCertificate(context.Background(), &dto.IssueDocumentRequest{
		Kind:      string(models.KindMatriculationCertificate),
		StudentID: "s1",
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), doc.ID, "dados incorretos")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Cancellation)
	assert.Contains(t, f.cache.deleted, repository.ValidationKey(doc.ID))
	assert.Contains(t, f.audit.actions, models.AuditActionDocumentCancelled)

	// Cancelling twice is an invalid transition.
	_, err = f.svc.Cancel(context.Background(), doc.ID, "de novo")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	reissued, err := f.svc.Reissue(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.NotEqual(t, doc.ID, reissued.ID)
	assert.Equal(t, models.StatusSigned, reissued.Status)
	require.NotNil(t, reissued.Reissue)
	assert.Equal(t, doc.ID, reissued.Reissue.OriginalCode)
	assert.NotEmpty(t, reissued.QRCode)
	assert.Contains(t, f.audit.actions, models.AuditActionDocumentReissued)

	// Both documents now exist independently.
	assert.Len(t, f.docs.docs, 2)
	assert.Equal(t, models.StatusCancelled, f.docs.docs[doc.ID].doc.Status)
}

func TestSecretaryServiceListRejectsUnknownPartition(t *testing.T) {
	f := newSecretaryFixture(t)

	_, err := f.svc.List(context.Background(), "diplomas", 10)
	require.Error(t, err)

	_, err = f.svc.List(context.Background(), models.PartitionDeclarations, 10)
	require.NoError(t, err)
}

func TestSecretaryServiceConfigureInstitution(t *testing.T) {
	f := newSecretaryFixture(t)

	profile := testInstitution()
	profile.Name = "Escola ELO II"
	require.NoError(t, f.svc.ConfigureInstitution(context.Background(), profile))

	assert.Len(t, f.inst.saved, 1)
	assert.Contains(t, f.cache.deleted, repository.InstitutionKey)
	assert.Contains(t, f.audit.actions, models.AuditActionInstitutionUpdated)

	doc, err := f.svc.IssueMatriculationCertificate(context.Background(), &dto.IssueDocumentRequest{
		Kind:      string(models.KindMatriculationCertificate),
		StudentID: "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Escola ELO II", doc.Institution.Name)
}
