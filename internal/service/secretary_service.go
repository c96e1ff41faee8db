package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/elo-edu/secretaria-api/internal/dto"
	"github.com/elo-edu/secretaria-api/internal/models"
	"github.com/elo-edu/secretaria-api/internal/repository"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
	"github.com/elo-edu/secretaria-api/pkg/sanitize"
)

const institutionCacheTTL = 10 * time.Minute

type studentReader interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
}

type academicReader interface {
	ListGrades(ctx context.Context, studentID string) ([]models.GradeEntry, error)
	ListAttendance(ctx context.Context, studentID string) ([]models.AttendanceEntry, error)
}

type institutionStore interface {
	GetProfile(ctx context.Context) (*models.InstitutionSnapshot, error)
	SaveProfile(ctx context.Context, profile *models.InstitutionSnapshot) error
}

type documentStore interface {
	Put(ctx context.Context, partition, code string, doc *models.Document, payload map[string]interface{}) error
	Update(ctx context.Context, partition, code string, doc *models.Document, payload map[string]interface{}) error
	Get(ctx context.Context, code string) (*models.Document, string, error)
	List(ctx context.Context, partition string, limit int) ([]models.Document, error)
	Stats(ctx context.Context) (*models.DocumentStats, error)
}

type historyAggregator interface {
	Aggregate(ctx context.Context, studentID string, grades []models.GradeEntry, attendance []models.AttendanceEntry, yearsFilter []int) ([]models.YearResult, error)
}

type documentBuilder interface {
	Build(kind models.DocumentKind, student models.StudentIdentitySnapshot, institution models.InstitutionSnapshot, body interface{}, observations string) (*models.Document, error)
}

type documentSigner interface {
	Sign(doc *models.Document, signer models.SignerIdentity) (*models.Document, error)
	Cancel(doc *models.Document, reason string) (*models.Document, error)
	Reissue(original *models.Document) (*models.Document, error)
}

type qrAttacher interface {
	ValidationURL(code string) string
	EncodeDataURL(code string) (string, error)
}

type documentRenderer interface {
	Render(doc *models.Document) ([]byte, error)
}

type documentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

type issueMetrics interface {
	ObserveIssued(kind string)
	ObserveCache(hit bool)
}

// SecretaryServiceConfig tunes issuance behaviour.
type SecretaryServiceConfig struct {
	CodeMaxAttempts int
}

// SecretaryService orchestrates issuance, lifecycle and listing of secretary
// documents. Each Issue* method assembles a kind-specific body, then the
// shared pipeline builds, signs, sanitizes and persists it.
type SecretaryService struct {
	cfg         SecretaryServiceConfig
	students    studentReader
	academics   academicReader
	institution institutionStore
	documents   documentStore
	history     historyAggregator
	builder     documentBuilder
	signer      documentSigner
	qr          qrAttacher
	renderer    documentRenderer
	cache       documentCache
	audit       auditLogger
	metrics     issueMetrics
	logger      *zap.Logger
}

func NewSecretaryService(
	cfg SecretaryServiceConfig,
	students studentReader,
	academics academicReader,
	institution institutionStore,
	documents documentStore,
	history historyAggregator,
	builder documentBuilder,
	signer documentSigner,
	qr qrAttacher,
	renderer documentRenderer,
	cache documentCache,
	audit auditLogger,
	metrics issueMetrics,
	logger *zap.Logger,
) *SecretaryService {
	if cfg.CodeMaxAttempts <= 0 {
		cfg.CodeMaxAttempts = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecretaryService{
		cfg:         cfg,
		students:    students,
		academics:   academics,
		institution: institution,
		documents:   documents,
		history:     history,
		builder:     builder,
		signer:      signer,
		qr:          qr,
		renderer:    renderer,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		logger:      logger,
	}
}

// Issue dispatches on the requested kind.
func (s *SecretaryService) Issue(ctx context.Context, req *dto.IssueDocumentRequest) (*models.Document, error) {
	kind := models.DocumentKind(req.Kind)
	switch kind {
	case models.KindTranscript:
		return s.IssueTranscript(ctx, req)
	case models.KindMatriculationCertificate:
		return s.IssueMatriculationCertificate(ctx, req)
	case models.KindCompletionCertificate:
		return s.IssueCompletionCertificate(ctx, req)
	case models.KindAttendanceCertificate:
		return s.IssueAttendanceCertificate(ctx, req)
	case models.KindCompletionDeclaration:
		return s.IssueCompletionDeclaration(ctx, req)
	case models.KindTransferGuide:
		return s.IssueTransferGuide(ctx, req)
	case models.KindResultsMinutes:
		return s.IssueResultsMinutes(ctx, req)
	default:
		return nil, appErrors.ErrInvalidKind
	}
}

// IssueTranscript aggregates the student's full academic history into a
// signed transcript.
func (s *SecretaryService) IssueTranscript(ctx context.Context, req *dto.IssueDocumentRequest) (*models.Document, error) {
	student, years, err := s.academicHistory(ctx, req.StudentID, req.Years)
	if err != nil {
		return nil, err
	}
	body := models.TranscriptBody{
		Years:   years,
		Summary: summarizeYears(years),
	}
	return s.issue(ctx, models.KindTranscript, student.Snapshot(), body, req.Observations, map[string]interface{}{
		"student_id": student.ID,
		"years":      len(years),
	})
}

// IssueMatriculationCertificate declares an active enrollment.
func (s *SecretaryService) IssueMatriculationCertificate(ctx context.Context, req *dto.IssueDocumentRequest) (*models.Document, error) {
	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	body := models.MatriculationBody{
		Registration: student.Registration,
		GradeLevel:   student.GradeLevel,
		ClassGroup:   student.ClassGroup,
		Shift:        student.Shift,
		SchoolYear:   time.Now().UTC().Year(),
		Situation:    enrollmentSituation(student),
		Purpose:      req.Purpose,
	}
	return s.issue(ctx, models.KindMatriculationCertificate, student.Snapshot(), body, req.Observations, map[string]interface{}{
		"student_id": student.ID,
	})
}

// IssueCompletionCertificate certifies a concluded education level.
func (s *SecretaryService) IssueCompletionCertificate(ctx context.Context, req *dto.IssueDocumentRequest) (*models.Document, error) {
	return s.issueCompletion(ctx, models.KindCompletionCertificate, req)
}

// IssueCompletionDeclaration is the declaratory counterpart of the
// completion certificate.
func (s *SecretaryService) IssueCompletionDeclaration(ctx context.Context, req *dto.IssueDocumentRequest) (*models.Document, error) {
	return s.issueCompletion(ctx, models.KindCompletionDeclaration, req)
}

func (s *SecretaryService) issueCompletion(ctx context.Context, kind models.DocumentKind, req *dto.IssueDocumentRequest) (*models.Document, error) {
	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	body := models.CompletionBody{
		EducationLevel: req.EducationLevel,
		SchoolYear:     now.Year(),
		GradeLevel:     student.GradeLevel,
		ClassGroup:     student.ClassGroup,
		CompletedAt:    now.Format("2006-01-02"),
		Result:         "Aprovado",
		Purpose:        req.Purpose,
	}
	return s.issue(ctx, kind, student.Snapshot(), body, req.Observations, map[string]interface{}{
		"student_id":      student.ID,
		"education_level": req.EducationLevel,
	})
}

// IssueAttendanceCertificate declares the student's overall attendance for a
// stated period.
func (s *SecretaryService) IssueAttendanceCertificate(ctx context.Context, req *dto.IssueDocumentRequest) (*models.Document, error) {
	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	attendance, err := s.academics.ListAttendance(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	body := models.AttendanceBody{
		PeriodStart:       req.PeriodStart,
		PeriodEnd:         req.PeriodEnd,
		AttendancePercent: overallAttendance(req.StudentID, attendance),
		Purpose:           req.Purpose,
	}
	return s.issue(ctx, models.KindAttendanceCertificate, student.Snapshot(), body, req.Observations, map[string]interface{}{
		"student_id": student.ID,
	})
}

// IssueTransferGuide packages the full history for a receiving school.
func (s *SecretaryService) IssueTransferGuide(ctx context.Context, req *dto.IssueDocumentRequest) (*models.Document, error) {
	student, years, err := s.academicHistory(ctx, req.StudentID, req.Years)
	if err != nil {
		return nil, err
	}
	institution, err := s.institutionProfile(ctx)
	if err != nil {
		return nil, err
	}
	body := models.TransferBody{
		OriginSchool:      institution.Name,
		DestinationSchool: req.DestinationSchool,
		Reason:            req.Reason,
		CurrentGradeLevel: student.GradeLevel,
		CurrentClassGroup: student.ClassGroup,
		Years:             years,
	}
	return s.issue(ctx, models.KindTransferGuide, student.Snapshot(), body, req.Observations, map[string]interface{}{
		"student_id":  student.ID,
		"destination": req.DestinationSchool,
	})
}

// IssueResultsMinutes tallies a whole class's year outcomes into one
// institution-level document. The student snapshot stays empty.
func (s *SecretaryService) IssueResultsMinutes(ctx context.Context, req *dto.IssueDocumentRequest) (*models.Document, error) {
	if req.Year == 0 || len(req.StudentIDs) == 0 {
		return nil, appErrors.ErrInvalidBody
	}
	entries := make([]models.ResultsMinutesEntry, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		student, years, err := s.academicHistory(ctx, id, []int{req.Year})
		if err != nil {
			return nil, err
		}
		entry := models.ResultsMinutesEntry{
			StudentID:   student.ID,
			StudentName: student.Name,
			Outcome:     models.YearNoRecords,
		}
		for _, year := range years {
			if year.Year == req.Year {
				entry.Outcome = year.Outcome
				entry.Failing = year.FailingDisciplines
			}
		}
		entries = append(entries, entry)
	}
	body := models.ResultsMinutesBody{Year: req.Year, Entries: entries}
	return s.issue(ctx, models.KindResultsMinutes, models.StudentIdentitySnapshot{}, body, req.Observations, map[string]interface{}{
		"year":     req.Year,
		"students": len(entries),
	})
}

// issue is the shared pipeline: build a draft, sign it, attach the QR
// render artifact, sanitize and persist. Verification-code collisions are
// retried with a fresh code up to CodeMaxAttempts.
func (s *SecretaryService) issue(ctx context.Context, kind models.DocumentKind, student models.StudentIdentitySnapshot, body interface{}, observations string, auditPayload map[string]interface{}) (*models.Document, error) {
	institution, err := s.institutionProfile(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.CodeMaxAttempts; attempt++ {
		draft, err := s.builder.Build(kind, student, *institution, body, observations)
		if err != nil {
			return nil, err
		}
		signed, err := s.signer.Sign(draft, institution.Signer)
		if err != nil {
			return nil, err
		}
		s.attachQR(signed)

		payload, err := sanitize.Document(signed)
		if err != nil {
			return nil, appErrors.Wrap(err, "DOCUMENT_ENCODE_FAILED", 500, "failed to encode document")
		}
		err = s.documents.Put(ctx, kind.Partition(), signed.ID, signed, payload)
		if err == nil {
			s.emit(ctx, models.AuditActionDocumentIssued, signed.ID, withKind(auditPayload, kind))
			if s.metrics != nil {
				s.metrics.ObserveIssued(string(kind))
			}
			s.logger.Info("document issued",
				zap.String("code", signed.ID),
				zap.String("kind", string(kind)))
			return signed, nil
		}
		if !appErrors.Is(err, appErrors.ErrDuplicateCode) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("verification code collision, retrying",
			zap.String("code", signed.ID),
			zap.Int("attempt", attempt))
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrGenerationExhausted.Code, appErrors.ErrGenerationExhausted.Status, appErrors.ErrGenerationExhausted.Message)
}

// Cancel moves a signed document to its terminal cancelled state. The body
// and signature stay untouched so the integrity digest remains verifiable.
func (s *SecretaryService) Cancel(ctx context.Context, code, reason string) (*models.Document, error) {
	doc, partition, err := s.documents.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.signer.Cancel(doc, reason)
	if err != nil {
		return nil, err
	}
	payload, err := sanitize.Document(cancelled)
	if err != nil {
		return nil, appErrors.Wrap(err, "DOCUMENT_ENCODE_FAILED", 500, "failed to encode document")
	}
	if err := s.documents.Update(ctx, partition, code, cancelled, payload); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, repository.ValidationKey(code))
	}
	s.emit(ctx, models.AuditActionDocumentCancelled, code, map[string]interface{}{
		"kind":   string(cancelled.Kind),
		"reason": reason,
	})
	s.logger.Info("document cancelled", zap.String("code", code))
	return cancelled, nil
}

// Reissue creates and signs a replacement document linked back to the
// original. The original document is left as it stands.
func (s *SecretaryService) Reissue(ctx context.Context, code string) (*models.Document, error) {
	original, _, err := s.documents.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.CodeMaxAttempts; attempt++ {
		reissued, err := s.signer.Reissue(original)
		if err != nil {
			return nil, err
		}
		s.attachQR(reissued)

		payload, err := sanitize.Document(reissued)
		if err != nil {
			return nil, appErrors.Wrap(err, "DOCUMENT_ENCODE_FAILED", 500, "failed to encode document")
		}
		err = s.documents.Put(ctx, reissued.Kind.Partition(), reissued.ID, reissued, payload)
		if err == nil {
			s.emit(ctx, models.AuditActionDocumentReissued, reissued.ID, map[string]interface{}{
				"kind":          string(reissued.Kind),
				"original_code": code,
			})
			s.logger.Info("document reissued",
				zap.String("code", reissued.ID),
				zap.String("original_code", code))
			return reissued, nil
		}
		if !appErrors.Is(err, appErrors.ErrDuplicateCode) {
			return nil, err
		}
		lastErr = err
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrGenerationExhausted.Code, appErrors.ErrGenerationExhausted.Status, appErrors.ErrGenerationExhausted.Message)
}

// GetDocument loads a document by verification code, with the body decoded
// back into its typed form.
func (s *SecretaryService) GetDocument(ctx context.Context, code string) (*models.Document, error) {
	doc, _, err := s.documents.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := models.NormalizeBody(doc); err != nil {
		return nil, appErrors.Wrap(err, "DOCUMENT_DECODE_FAILED", 500, "failed to decode document body")
	}
	return doc, nil
}

// List returns recent documents, optionally scoped to one partition.
func (s *SecretaryService) List(ctx context.Context, partition string, limit int) ([]models.Document, error) {
	if partition != "" && !validPartition(partition) {
		return nil, appErrors.New("INVALID_PARTITION", 400, fmt.Sprintf("unknown partition %q", partition))
	}
	docs, err := s.documents.List(ctx, partition, limit)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if err := models.NormalizeBody(&docs[i]); err != nil {
			s.logger.Warn("failed to decode document body", zap.String("code", docs[i].ID), zap.Error(err))
		}
	}
	return docs, nil
}

// Stats summarizes issued documents for the dashboard.
func (s *SecretaryService) Stats(ctx context.Context) (*models.DocumentStats, error) {
	return s.documents.Stats(ctx)
}

// Render produces the printable PDF for a document.
func (s *SecretaryService) Render(ctx context.Context, code string) ([]byte, error) {
	doc, err := s.GetDocument(ctx, code)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, "DOCUMENT_RENDER_FAILED", 500, "failed to render document")
	}
	return data, nil
}

// ValidationURL exposes the public verification link for a code.
func (s *SecretaryService) ValidationURL(code string) string {
	if s.qr == nil {
		return ""
	}
	return s.qr.ValidationURL(code)
}

// ConfigureInstitution replaces the stored institution profile used as the
// snapshot source for all future documents.
func (s *SecretaryService) ConfigureInstitution(ctx context.Context, profile *models.InstitutionSnapshot) error {
	if err := s.institution.SaveProfile(ctx, profile); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, repository.InstitutionKey)
	}
	s.emit(ctx, models.AuditActionInstitutionUpdated, "", map[string]interface{}{
		"name":   profile.Name,
		"tax_id": profile.TaxID,
	})
	return nil
}

// InstitutionProfile returns the current profile, read through the cache.
func (s *SecretaryService) InstitutionProfile(ctx context.Context) (*models.InstitutionSnapshot, error) {
	return s.institutionProfile(ctx)
}

func (s *SecretaryService) institutionProfile(ctx context.Context) (*models.InstitutionSnapshot, error) {
	if s.cache != nil {
		var cached models.InstitutionSnapshot
		if err := s.cache.Get(ctx, repository.InstitutionKey, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.ObserveCache(true)
			}
			return &cached, nil
		}
		if s.metrics != nil {
			s.metrics.ObserveCache(false)
		}
	}
	profile, err := s.institution.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.InstitutionKey, profile, institutionCacheTTL); err != nil {
			s.logger.Warn("failed to cache institution profile", zap.Error(err))
		}
	}
	return profile, nil
}

func (s *SecretaryService) academicHistory(ctx context.Context, studentID string, years []int) (*models.Student, []models.YearResult, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	grades, err := s.academics.ListGrades(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	attendance, err := s.academics.ListAttendance(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.history.Aggregate(ctx, studentID, grades, attendance, years)
	if err != nil {
		return nil, nil, err
	}
	return student, results, nil
}

func (s *SecretaryService) attachQR(doc *models.Document) {
	if s.qr == nil {
		return
	}
	dataURL, err := s.qr.EncodeDataURL(doc.ID)
	if err != nil {
		// The QR is a render artifact only; issuance proceeds without it.
		s.logger.Warn("failed to encode validation QR", zap.String("code", doc.ID), zap.Error(err))
		return
	}
	doc.QRCode = dataURL
}

func (s *SecretaryService) emit(ctx context.Context, action, code string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, action, code, payload); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("action", action),
			zap.Error(err))
	}
}

func withKind(payload map[string]interface{}, kind models.DocumentKind) map[string]interface{} {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["kind"] = string(kind)
	return payload
}

func validPartition(partition string) bool {
	for _, p := range models.Partitions {
		if p == partition {
			return true
		}
	}
	return false
}

func enrollmentSituation(student *models.Student) string {
	if student.Active {
		return "Ativo"
	}
	return "Inativo"
}

func summarizeYears(years []models.YearResult) models.TranscriptSummary {
	summary := models.TranscriptSummary{TotalYears: len(years), OverallAttendance: 100.0}
	var avgSum float64
	var lessons, attended int
	for _, year := range years {
		summary.TotalDisciplines += year.TotalDisciplines
		for _, d := range year.Disciplines {
			avgSum += d.Average
			lessons += d.TotalLessons
			attended += d.AttendedLessons
		}
	}
	if summary.TotalDisciplines > 0 {
		summary.OverallAverage = round2(avgSum / float64(summary.TotalDisciplines))
	}
	if lessons > 0 {
		summary.OverallAttendance = round1(float64(attended) / float64(lessons) * 100.0)
	}
	return summary
}

func overallAttendance(studentID string, rows []models.AttendanceEntry) float64 {
	var lessons, attended int
	for _, row := range rows {
		if row.StudentID != studentID {
			continue
		}
		lessons++
		if row.Present {
			attended++
		}
	}
	if lessons == 0 {
		return 100.0
	}
	return round1(float64(attended) / float64(lessons) * 100.0)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
