package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/elo-edu/secretaria-api/internal/models"
	"github.com/elo-edu/secretaria-api/pkg/canonical"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

// SignatureAlgorithm labels the digest primitive attached to signatures.
const SignatureAlgorithm = "SHA-256"

type codeIssuer interface {
	NewCode() string
}

// SignerService computes content digests and drives the document status
// state machine. Every operation returns a modified copy; the input document
// is never mutated.
type SignerService struct {
	codes  codeIssuer
	clock  func() time.Time
	logger *zap.Logger
}

// NewSignerService constructs the signer.
func NewSignerService(codes codeIssuer, clock func() time.Time, logger *zap.Logger) *SignerService {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignerService{codes: codes, clock: clock, logger: logger}
}

// digestContent is the fixed canonical subset the digest covers. Volatile
// render artifacts (the QR image) and the signature block itself stay out so
// attaching them never invalidates an issued document.
type digestContent struct {
	Student      models.StudentIdentitySnapshot `json:"student"`
	Institution  models.InstitutionSnapshot     `json:"institution"`
	Kind         models.DocumentKind            `json:"kind"`
	Body         interface{}                    `json:"body"`
	Observations string                         `json:"observations,omitempty"`
	LegalNotice  string                         `json:"legal_notice"`
	IssuedAt     time.Time                      `json:"issued_at"`
}

// ComputeDigest returns the deterministic SHA-256 digest over the in-scope
// field subset, recursively key-sorted before hashing.
func (s *SignerService) ComputeDigest(doc *models.Document) (string, error) {
	content := digestContent{
		Student:      doc.Student,
		Institution:  doc.Institution,
		Kind:         doc.Kind,
		Body:         doc.Body,
		Observations: doc.Observations,
		LegalNotice:  doc.LegalNotice,
		IssuedAt:     doc.IssuedAt,
	}
	return canonical.Digest(content)
}

// Sign attaches a signature and moves the document to signed. Signing is not
// idempotent: a document that is already signed or cancelled is rejected.
func (s *SignerService) Sign(doc *models.Document, signer models.SignerIdentity) (*models.Document, error) {
	if doc.Status != models.StatusDraft && doc.Status != models.StatusPendingSignature {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot sign document in status "+string(doc.Status))
	}

	digest, err := s.ComputeDigest(doc)
	if err != nil {
		return nil, err
	}

	signed := *doc
	signed.Status = models.StatusSigned
	signed.Signature = &models.Signature{
		Digest:      digest,
		Algorithm:   SignatureAlgorithm,
		Signer:      signer,
		SignedAt:    s.clock().UTC(),
		Certificate: doc.Institution.Certificate,
	}
	return &signed, nil
}

// Cancel moves a signed document to the terminal cancelled status.
func (s *SignerService) Cancel(doc *models.Document, reason string) (*models.Document, error) {
	if doc.Status != models.StatusSigned {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot cancel document in status "+string(doc.Status))
	}

	cancelled := *doc
	cancelled.Status = models.StatusCancelled
	cancelled.Cancellation = &models.CancellationRecord{
		CancelledAt: s.clock().UTC(),
		Reason:      reason,
	}
	return &cancelled, nil
}

// Reissue clones a signed or cancelled document into a brand-new signed
// document with a fresh code and a link back to the original. The original
// is left untouched.
func (s *SignerService) Reissue(original *models.Document) (*models.Document, error) {
	if original.Status != models.StatusSigned && original.Status != models.StatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot reissue document in status "+string(original.Status))
	}

	now := s.clock().UTC()
	draft := &models.Document{
		ID:           s.codes.NewCode(),
		Kind:         original.Kind,
		Status:       models.StatusDraft,
		Student:      original.Student,
		Institution:  original.Institution,
		Body:         original.Body,
		Observations: original.Observations,
		LegalNotice:  original.LegalNotice,
		IssuedAt:     now,
		Reissue: &models.ReissueLink{
			OriginalCode: original.ID,
			ReissuedAt:   now,
		},
	}

	return s.Sign(draft, original.Institution.Signer)
}
