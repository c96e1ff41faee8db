package models

import "time"

// AuditAction constants represent secretary actions to be logged. The names
// match the legacy audit trail so existing dashboards keep working.
const (
	AuditActionDocumentIssued     = "DIGITAL_SECRETARY_DOCUMENT_GENERATED"
	AuditActionDocumentCancelled  = "DIGITAL_SECRETARY_DOCUMENT_CANCELLED"
	AuditActionDocumentReissued   = "DIGITAL_SECRETARY_DOCUMENT_REISSUED"
	AuditActionDocumentValidated  = "DIGITAL_SECRETARY_DOCUMENT_VALIDATED"
	AuditActionValidationFailed   = "DIGITAL_SECRETARY_VALIDATION_FAILED"
	AuditActionInstitutionUpdated = "DIGITAL_SECRETARY_INSTITUTION_CONFIGURED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	Resource  string    `db:"resource" json:"resource"`
	Code      *string   `db:"code" json:"code,omitempty"`
	Payload   []byte    `db:"payload" json:"payload,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Student is the identity/profile row backing identity snapshots.
type Student struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	CPF          string     `db:"cpf" json:"cpf"`
	RG           string     `db:"rg" json:"rg"`
	BirthDate    string     `db:"birth_date" json:"birth_date"`
	BirthPlace   string     `db:"birth_place" json:"birth_place"`
	FatherName   string     `db:"father_name" json:"father_name"`
	MotherName   string     `db:"mother_name" json:"mother_name"`
	Registration string     `db:"registration" json:"registration"`
	GradeLevel   string     `db:"grade_level" json:"grade_level"`
	ClassGroup   string     `db:"class_group" json:"class_group"`
	Shift        string     `db:"shift" json:"shift"`
	EnrolledAt   *time.Time `db:"enrolled_at" json:"enrolled_at,omitempty"`
	Active       bool       `db:"active" json:"active"`
}

// Snapshot freezes the identity fields copied into documents.
func (s *Student) Snapshot() StudentIdentitySnapshot {
	return StudentIdentitySnapshot{
		ID:           s.ID,
		Name:         s.Name,
		CPF:          s.CPF,
		RG:           s.RG,
		BirthDate:    s.BirthDate,
		BirthPlace:   s.BirthPlace,
		FatherName:   s.FatherName,
		MotherName:   s.MotherName,
		Registration: s.Registration,
		GradeLevel:   s.GradeLevel,
		ClassGroup:   s.ClassGroup,
		Shift:        s.Shift,
	}
}

// OperatorClaims are the JWT claims carried by secretary operators.
type OperatorClaims struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}
