package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects and DLQ subjects
// only need to be valid JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}
	if strings.HasSuffix(subject, DLQSuffix) {
		return nil
	}

	switch subject {
	case SubjectVerifyRequest:
		var p VerifyRequestPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return schemaErr(subject, err)
		}
		if strings.TrimSpace(p.Repository) == "" {
			return schemaErr(subject, fmt.Errorf("repository is required"))
		}
		if p.MaxTasks < 0 {
			return schemaErr(subject, fmt.Errorf("max_tasks must not be negative"))
		}
	case SubjectReportCompleted:
		var p ReportCompletedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return schemaErr(subject, err)
		}
		if p.ReportID == "" {
			return schemaErr(subject, fmt.Errorf("report_id is required"))
		}
	case SubjectReportFailed:
		var p ReportFailedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return schemaErr(subject, err)
		}
	}
	return nil
}

func schemaErr(subject string, err error) error {
	return fmt.Errorf("schema validation failed for %s: %w", subject, err)
}
