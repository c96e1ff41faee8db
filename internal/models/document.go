package models

import "time"

// DocumentKind identifies the legal document category. The string values are
// the wire contract consumed by the validation page and the PDF renderer.
type DocumentKind string

const (
	KindTranscript               DocumentKind = "transcript"
	KindMatriculationCertificate DocumentKind = "matriculation_certificate"
	KindCompletionCertificate    DocumentKind = "completion_certificate"
	KindAttendanceCertificate    DocumentKind = "attendance_certificate"
	KindTransferGuide            DocumentKind = "transfer_guide"
	KindCompletionDeclaration    DocumentKind = "completion_declaration"
	KindResultsMinutes           DocumentKind = "results_minutes"
)

// DocumentKinds lists every recognized kind.
var DocumentKinds = []DocumentKind{
	KindTranscript,
	KindMatriculationCertificate,
	KindCompletionCertificate,
	KindAttendanceCertificate,
	KindTransferGuide,
	KindCompletionDeclaration,
	KindResultsMinutes,
}

// Valid reports whether k is a recognized DocumentKind.
func (k DocumentKind) Valid() bool {
	for _, known := range DocumentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Document partitions. Codes alone do not indicate the partition, so lookups
// fan out across all of them.
const (
	PartitionTranscripts  = "transcripts"
	PartitionDeclarations = "declarations"
	PartitionCertificates = "certificates"
	PartitionTransfers    = "transfers"
)

// Partitions is the fixed fan-out order for code lookups.
var Partitions = []string{
	PartitionTranscripts,
	PartitionDeclarations,
	PartitionCertificates,
	PartitionTransfers,
}

// Partition returns the storage partition documents of this kind live in.
func (k DocumentKind) Partition() string {
	switch k {
	case KindTranscript:
		return PartitionTranscripts
	case KindMatriculationCertificate, KindAttendanceCertificate, KindCompletionDeclaration:
		return PartitionDeclarations
	case KindCompletionCertificate, KindResultsMinutes:
		return PartitionCertificates
	case KindTransferGuide:
		return PartitionTransfers
	default:
		return ""
	}
}

// DocumentStatus tracks the issuance lifecycle. Transitions are monotonic and
// cancelled is terminal; "validated" is a query outcome, never stored.
type DocumentStatus string

const (
	StatusDraft            DocumentStatus = "draft"
	StatusPendingSignature DocumentStatus = "pending_signature"
	StatusSigned           DocumentStatus = "signed"
	StatusCancelled        DocumentStatus = "cancelled"
)

// StudentIdentitySnapshot is the student identity frozen at issuance time. It
// is never re-fetched once the document exists.
type StudentIdentitySnapshot struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CPF          string `json:"cpf,omitempty"`
	RG           string `json:"rg,omitempty"`
	BirthDate    string `json:"birth_date,omitempty"`
	BirthPlace   string `json:"birth_place,omitempty"`
	FatherName   string `json:"father_name,omitempty"`
	MotherName   string `json:"mother_name,omitempty"`
	Registration string `json:"registration,omitempty"`
	GradeLevel   string `json:"grade_level,omitempty"`
	ClassGroup   string `json:"class_group,omitempty"`
	Shift        string `json:"shift,omitempty"`
}

// InstitutionAddress is part of the institution snapshot.
type InstitutionAddress struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// SignerIdentity identifies who signs documents on behalf of the institution.
type SignerIdentity struct {
	Name string `json:"name"`
	CPF  string `json:"cpf,omitempty"`
	Role string `json:"role,omitempty"`
}

// CertificateMetadata describes the (simulated) digital certificate used when
// signing.
type CertificateMetadata struct {
	Serial     string `json:"serial"`
	Issuer     string `json:"issuer"`
	Type       string `json:"type,omitempty"`
	ValidFrom  string `json:"valid_from,omitempty"`
	ValidUntil string `json:"valid_until"`
}

// InstitutionSnapshot is the issuing institution frozen at issuance time.
type InstitutionSnapshot struct {
	Name        string              `json:"name"`
	TaxID       string              `json:"tax_id"`
	INEPCode    string              `json:"inep_code,omitempty"`
	Address     InstitutionAddress  `json:"address"`
	Phone       string              `json:"phone,omitempty"`
	Email       string              `json:"email,omitempty"`
	Signer      SignerIdentity      `json:"signer"`
	Certificate CertificateMetadata `json:"certificate"`
}

// Signature is attached when a document transitions to signed.
type Signature struct {
	Digest      string              `json:"digest"`
	Algorithm   string              `json:"algorithm"`
	Signer      SignerIdentity      `json:"signer"`
	SignedAt    time.Time           `json:"signed_at"`
	Certificate CertificateMetadata `json:"certificate"`
}

// CancellationRecord marks a terminal cancellation.
type CancellationRecord struct {
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason"`
}

// ReissueLink points a reissued document back at its original.
type ReissueLink struct {
	OriginalCode string    `json:"original_code"`
	ReissuedAt   time.Time `json:"reissued_at"`
}

// Document is the immutable envelope the secretary issues. ID doubles as the
// public verification code.
type Document struct {
	ID           string                  `json:"id"`
	Kind         DocumentKind            `json:"kind"`
	Status       DocumentStatus          `json:"status"`
	Student      StudentIdentitySnapshot `json:"student"`
	Institution  InstitutionSnapshot     `json:"institution"`
	Body         interface{}             `json:"body"`
	Observations string                  `json:"observations,omitempty"`
	LegalNotice  string                  `json:"legal_notice"`
	IssuedAt     time.Time               `json:"issued_at"`
	Signature    *Signature              `json:"signature,omitempty"`
	Cancellation *CancellationRecord     `json:"cancellation,omitempty"`
	Reissue      *ReissueLink            `json:"reissue,omitempty"`
	// QRCode is a render artifact (base64 PNG). It is excluded from the
	// integrity digest.
	QRCode string `json:"qr_code,omitempty"`
}

// TranscriptBody carries the aggregated academic history of a transcript.
type TranscriptBody struct {
	Years   []YearResult      `json:"years"`
	Summary TranscriptSummary `json:"summary"`
}

// TranscriptSummary totals the multi-year history.
type TranscriptSummary struct {
	TotalYears        int     `json:"total_years"`
	TotalDisciplines  int     `json:"total_disciplines"`
	OverallAverage    float64 `json:"overall_average"`
	OverallAttendance float64 `json:"overall_attendance"`
}

// MatriculationBody backs enrollment declarations.
type MatriculationBody struct {
	Registration string `json:"registration"`
	GradeLevel   string `json:"grade_level,omitempty"`
	ClassGroup   string `json:"class_group,omitempty"`
	Shift        string `json:"shift,omitempty"`
	SchoolYear   int    `json:"school_year"`
	Situation    string `json:"situation"`
	Purpose      string `json:"purpose,omitempty"`
}

// CompletionBody backs completion certificates and declarations.
type CompletionBody struct {
	EducationLevel string `json:"education_level"`
	SchoolYear     int    `json:"school_year"`
	GradeLevel     string `json:"grade_level,omitempty"`
	ClassGroup     string `json:"class_group,omitempty"`
	CompletedAt    string `json:"completed_at"`
	Result         string `json:"result"`
	Purpose        string `json:"purpose,omitempty"`
}

// AttendanceBody backs attendance certificates.
type AttendanceBody struct {
	PeriodStart       string  `json:"period_start"`
	PeriodEnd         string  `json:"period_end"`
	AttendancePercent float64 `json:"attendance_percent"`
	Purpose           string  `json:"purpose,omitempty"`
}

// TransferBody backs transfer guides and embeds the full academic history so
// the receiving school needs no further lookup.
type TransferBody struct {
	OriginSchool      string       `json:"origin_school"`
	DestinationSchool string       `json:"destination_school"`
	Reason            string       `json:"reason,omitempty"`
	CurrentGradeLevel string       `json:"current_grade_level,omitempty"`
	CurrentClassGroup string       `json:"current_class_group,omitempty"`
	Years             []YearResult `json:"years"`
}

// ResultsMinutesEntry is one student row in a results minutes document.
type ResultsMinutesEntry struct {
	StudentID   string      `json:"student_id"`
	StudentName string      `json:"student_name"`
	Outcome     YearOutcome `json:"outcome"`
	Failing     int         `json:"failing"`
}

// ResultsMinutesBody backs the end-of-year results minutes.
type ResultsMinutesBody struct {
	Year    int                   `json:"year"`
	Entries []ResultsMinutesEntry `json:"entries"`
}

// LegalNotice is injected into every issued document and is not user-editable.
const LegalNotice = "Documento emitido em conformidade com a Portaria MEC nº 1.570/2017 e a Lei nº 14.533/2023."

// DocumentStats summarizes issued documents for the secretary dashboard.
type DocumentStats struct {
	TotalDocuments int64            `json:"total_documents"`
	ByPartition    map[string]int64 `json:"by_partition"`
	ByMonth        map[string]int64 `json:"by_month"`
}

// Pagination mirrors list metadata in API responses.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}
