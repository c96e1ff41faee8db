package service

import (
	"crypto/rand"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elo-edu/secretaria-api/internal/models"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// BuilderService assembles draft Document envelopes. It performs no I/O and
// never persists; uniqueness of the generated verification code is
// probabilistic and settled by the store at write time.
type BuilderService struct {
	clock  func() time.Time
	random io.Reader
	logger *zap.Logger
}

// NewBuilderService constructs the builder. clock and random default to the
// system clock and crypto/rand.
func NewBuilderService(clock func() time.Time, random io.Reader, logger *zap.Logger) *BuilderService {
	if clock == nil {
		clock = time.Now
	}
	if random == nil {
		random = rand.Reader
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BuilderService{clock: clock, random: random, logger: logger}
}

// NewCode generates a verification code of shape
// DOC-<base36 millis>-<5 random base36 chars>.
func (s *BuilderService) NewCode() string {
	ts := strings.ToUpper(strconv.FormatInt(s.clock().UnixMilli(), 36))

	buf := make([]byte, 5)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived suffix rather than panicking mid-issuance.
		nano := s.clock().UnixNano()
		for i := range buf {
			buf[i] = byte(nano >> (uint(i) * 8))
		}
	}
	suffix := make([]byte, 5)
	for i, b := range buf {
		suffix[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}

	return "DOC-" + ts + "-" + string(suffix)
}

// Build returns a fully formed draft Document with the mandatory legal
// notice injected. The body must match the shape the kind requires.
func (s *BuilderService) Build(kind models.DocumentKind, student models.StudentIdentitySnapshot, institution models.InstitutionSnapshot, body interface{}, observations string) (*models.Document, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidKind, "unrecognized document kind: "+string(kind))
	}
	if err := validateBody(kind, body); err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:           s.NewCode(),
		Kind:         kind,
		Status:       models.StatusDraft,
		Student:      student,
		Institution:  institution,
		Body:         body,
		Observations: observations,
		LegalNotice:  models.LegalNotice,
		IssuedAt:     s.clock().UTC(),
	}
	return doc, nil
}

func validateBody(kind models.DocumentKind, body interface{}) error {
	var ok bool
	switch kind {
	case models.KindTranscript:
		_, ok = body.(models.TranscriptBody)
	case models.KindMatriculationCertificate:
		_, ok = body.(models.MatriculationBody)
	case models.KindCompletionCertificate, models.KindCompletionDeclaration:
		_, ok = body.(models.CompletionBody)
	case models.KindAttendanceCertificate:
		_, ok = body.(models.AttendanceBody)
	case models.KindTransferGuide:
		_, ok = body.(models.TransferBody)
	case models.KindResultsMinutes:
		_, ok = body.(models.ResultsMinutesBody)
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidBody, "body does not match kind "+string(kind))
	}
	return nil
}
