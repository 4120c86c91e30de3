package domain

// JobStatus enumerates the terminal states a processing request reports.
type JobStatus string

const (
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job captures one processing request: where its input was staged, where
// its artifacts landed, and which files were generated. A job is assembled
// once and never mutated after the response is sent; the directories named
// by its ID are the only durable record.
type Job struct {
	ID             string
	Status         JobStatus
	InputFile      string
	OutputDir      string
	GeneratedFiles []string
}
