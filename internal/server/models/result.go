package models

import "time"

// ResultStatus tracks the persistence state of a result record.
type ResultStatus string

const (
	// ResultPending: record inserted, blob not yet confirmed.
	ResultPending ResultStatus = "pending"
	// ResultCompleted: blob stored; the only state visible to owners.
	ResultCompleted ResultStatus = "completed"
	// ResultFailed: blob upload failed after the record was inserted.
	ResultFailed ResultStatus = "failed"
)

// Result is the persisted outcome of one processing run.
type Result struct {
	ID                 string
	OwnerID            string
	CreatedAt          time.Time
	SourceLanguage     string
	TranslatedText     string
	OutputBlobID       string
	ProcessingDuration time.Duration
	OriginalFilename   string
	// Degraded is set when the output blob is placeholder silence instead
	// of a cloned voice.
	Degraded bool
	Status   ResultStatus
}

// Visible reports whether the record may be shown to its owner.
func (r *Result) Visible() bool {
	return r.Status == ResultCompleted
}
