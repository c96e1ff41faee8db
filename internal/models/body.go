package models

import (
	"encoding/json"
	"fmt"
)

// NormalizeBody converts a body decoded from storage (a generic JSON tree)
// back into the typed payload its kind requires. Documents fresh from the
// builder already carry typed bodies and pass through unchanged.
func NormalizeBody(doc *Document) error {
	if doc == nil || doc.Body == nil {
		return nil
	}
	if _, ok := doc.Body.(map[string]interface{}); !ok {
		return nil
	}

	raw, err := json.Marshal(doc.Body)
	if err != nil {
		return fmt.Errorf("normalize body for %s: %w", doc.ID, err)
	}

	var typed interface{}
	switch doc.Kind {
	case KindTranscript:
		typed = &TranscriptBody{}
	case KindMatriculationCertificate:
		typed = &MatriculationBody{}
	case KindCompletionCertificate, KindCompletionDeclaration:
		typed = &CompletionBody{}
	case KindAttendanceCertificate:
		typed = &AttendanceBody{}
	case KindTransferGuide:
		typed = &TransferBody{}
	case KindResultsMinutes:
		typed = &ResultsMinutesBody{}
	default:
		return nil
	}

	if err := json.Unmarshal(raw, typed); err != nil {
		return fmt.Errorf("normalize body for %s: %w", doc.ID, err)
	}

	switch v := typed.(type) {
	case *TranscriptBody:
		doc.Body = *v
	case *MatriculationBody:
		doc.Body = *v
	case *CompletionBody:
		doc.Body = *v
	case *AttendanceBody:
		doc.Body = *v
	case *TransferBody:
		doc.Body = *v
	case *ResultsMinutesBody:
		doc.Body = *v
	}
	return nil
}
