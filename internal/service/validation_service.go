package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/elo-edu/secretaria-api/internal/models"
	"github.com/elo-edu/secretaria-api/internal/repository"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

// ValidationReason explains a failed validation. Reasons are business data,
// not errors; lookups never raise for unknown codes.
type ValidationReason string

const (
	ReasonNotFound          ValidationReason = "not_found"
	ReasonIntegrityMismatch ValidationReason = "integrity_mismatch"
	ReasonCancelled         ValidationReason = "cancelled"
)

// ValidationResult is the structured verdict returned for every code.
type ValidationResult struct {
	Valid       bool             `json:"valid"`
	Reason      ValidationReason `json:"reason,omitempty"`
	Document    *models.Document `json:"document,omitempty"`
	ValidatedAt time.Time        `json:"validated_at"`
}

type documentFinder interface {
	Get(ctx context.Context, code string) (*models.Document, string, error)
}

type auditLogger interface {
	Log(ctx context.Context, action, code string, payload map[string]interface{}) error
}

type digestComputer interface {
	ComputeDigest(doc *models.Document) (string, error)
}

type lookupCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type validationMetrics interface {
	ObserveValidation(outcome string)
}

// ValidationService re-validates issued documents by verification code. A
// successful validation never changes stored document state.
//
// The cache only short-circuits the partition fan-out lookup: the digest is
// recomputed and the audit event emitted on every call, cache hit or not.
type ValidationService struct {
	documents documentFinder
	signer    digestComputer
	audit     auditLogger
	cache     lookupCache
	metrics   validationMetrics
	cacheTTL  time.Duration
	clock     func() time.Time
	logger    *zap.Logger
}

// NewValidationService constructs the service. cache and metrics may be nil.
func NewValidationService(documents documentFinder, signer digestComputer, audit auditLogger, cache lookupCache, metrics validationMetrics, cacheTTL time.Duration, clock func() time.Time, logger *zap.Logger) *ValidationService {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationService{
		documents: documents,
		signer:    signer,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		clock:     clock,
		logger:    logger,
	}
}

// Validate looks the code up across all partitions, recomputes the digest
// and reports validity. Infrastructure failures are returned as errors;
// everything else is a structured result.
func (s *ValidationService) Validate(ctx context.Context, code string) (*ValidationResult, error) {
	now := s.clock().UTC()

	doc, hit := s.cachedLookup(ctx, code)
	if !hit {
		var err error
		doc, _, err = s.documents.Get(ctx, code)
		if err != nil {
			if appErrors.Is(err, appErrors.ErrDocumentNotFound) {
				result := &ValidationResult{Valid: false, Reason: ReasonNotFound, ValidatedAt: now}
				s.emit(ctx, models.AuditActionValidationFailed, code, map[string]interface{}{
					"reason": string(ReasonNotFound),
				})
				s.observe(string(ReasonNotFound))
				return result, nil
			}
			return nil, err
		}
	}

	result := &ValidationResult{Document: doc, ValidatedAt: now}

	digest, err := s.signer.ComputeDigest(doc)
	if err != nil {
		return nil, err
	}

	switch {
	case doc.Signature == nil || doc.Signature.Digest != digest:
		result.Reason = ReasonIntegrityMismatch
	case doc.Status == models.StatusCancelled:
		result.Reason = ReasonCancelled
	case doc.Status == models.StatusSigned:
		result.Valid = true
	default:
		// Draft/pending documents are not externally visible by contract,
		// but an incomplete row still must not validate.
		result.Reason = ReasonIntegrityMismatch
	}

	if result.Valid {
		s.emit(ctx, models.AuditActionDocumentValidated, code, map[string]interface{}{
			"kind":    string(doc.Kind),
			"student": doc.Student.Name,
			"valid":   true,
		})
		s.observe("valid")
		if !hit {
			s.store(ctx, code, doc)
		}
	} else {
		s.emit(ctx, models.AuditActionValidationFailed, code, map[string]interface{}{
			"kind":   string(doc.Kind),
			"reason": string(result.Reason),
		})
		s.observe(string(result.Reason))
	}

	return result, nil
}

// cachedLookup returns the cached copy of a previously validated document.
// Only the fan-out lookup is cached; the caller still runs the full digest
// and status checks against the copy. Cancellation invalidates the entry.
func (s *ValidationService) cachedLookup(ctx context.Context, code string) (*models.Document, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	var doc models.Document
	if err := s.cache.Get(ctx, repository.ValidationKey(code), &doc); err != nil {
		return nil, false
	}
	if err := models.NormalizeBody(&doc); err != nil {
		return nil, false
	}
	return &doc, true
}

func (s *ValidationService) store(ctx context.Context, code string, doc *models.Document) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, repository.ValidationKey(code), doc, s.cacheTTL); err != nil {
		s.logger.Warn("validation cache store failed", zap.String("code", code), zap.Error(err))
	}
}

// Audit events are fire-and-forget: a failing audit collaborator must not
// turn a validation verdict into an error.
func (s *ValidationService) emit(ctx context.Context, action, code string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, action, code, payload); err != nil {
		s.logger.Warn("audit log failed", zap.String("action", action), zap.String("code", code), zap.Error(err))
	}
}

func (s *ValidationService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveValidation(outcome)
	}
}
