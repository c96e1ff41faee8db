package dto

import (
	"time"

	"github.com/elo-edu/secretaria-api/internal/models"
)

// IssueDocumentRequest is the single issuance payload; Kind selects which of
// the optional fields apply.
type IssueDocumentRequest struct {
	Kind         string `json:"kind" binding:"required" validate:"required"`
	StudentID    string `json:"student_id" validate:"omitempty,max=64"`
	Observations string `json:"observations" validate:"omitempty,max=2000"`

	// Transcript and transfer guide.
	Years []int `json:"years,omitempty"`

	// Declarations.
	Purpose string `json:"purpose,omitempty" validate:"omitempty,max=200"`

	// Completion certificate / declaration.
	EducationLevel string `json:"education_level,omitempty" validate:"omitempty,max=100"`

	// Attendance certificate.
	PeriodStart string `json:"period_start,omitempty" validate:"omitempty,max=40"`
	PeriodEnd   string `json:"period_end,omitempty" validate:"omitempty,max=40"`

	// Transfer guide.
	DestinationSchool string `json:"destination_school,omitempty" validate:"omitempty,max=200"`
	Reason            string `json:"reason,omitempty" validate:"omitempty,max=500"`

	// Results minutes.
	Year       int      `json:"year,omitempty"`
	StudentIDs []string `json:"student_ids,omitempty"`
}

// CancelDocumentRequest carries the mandatory cancellation reason.
type CancelDocumentRequest struct {
	Reason string `json:"reason" binding:"required" validate:"required,max=500"`
}

// ListDocumentsQuery scopes document listings.
type ListDocumentsQuery struct {
	Partition string `form:"partition"`
	Limit     int    `form:"limit"`
}

// DocumentResponse is the issued document echoed back to operators.
type DocumentResponse struct {
	Document      *models.Document `json:"document"`
	ValidationURL string           `json:"validation_url"`
}

// DownloadURLResponse carries a signed PDF download link.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InstitutionProfileRequest replaces the stored institution profile.
type InstitutionProfileRequest struct {
	Name        string                     `json:"name" binding:"required" validate:"required,max=200"`
	TaxID       string                     `json:"tax_id" binding:"required" validate:"required,max=32"`
	INEPCode    string                     `json:"inep_code" validate:"omitempty,max=16"`
	Address     models.InstitutionAddress  `json:"address"`
	Phone       string                     `json:"phone" validate:"omitempty,max=32"`
	Email       string                     `json:"email" validate:"omitempty,email"`
	Signer      models.SignerIdentity      `json:"signer"`
	Certificate models.CertificateMetadata `json:"certificate"`
}

// Snapshot converts the request into the stored snapshot form.
func (r *InstitutionProfileRequest) Snapshot() models.InstitutionSnapshot {
	return models.InstitutionSnapshot{
		Name:        r.Name,
		TaxID:       r.TaxID,
		INEPCode:    r.INEPCode,
		Address:     r.Address,
		Phone:       r.Phone,
		Email:       r.Email,
		Signer:      r.Signer,
		Certificate: r.Certificate,
	}
}
