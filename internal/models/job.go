package models

import (
	"time"

	"github.com/google/uuid"
)

// JobKind identifies the kind of asynchronous operation a job tracks.
type JobKind string

const (
	JobKindUpload JobKind = "upload"
	JobKindQuery  JobKind = "query"
	JobKindReport JobKind = "report"
)

// JobState is the lifecycle state of a job.
type JobState string

const (
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether the job has reached its final state.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// Job tracks one asynchronous operation with simulated progress and a
// terminal outcome. Upload jobs may exist many at once; query and report
// jobs are capped at one active instance each.
type Job struct {
	ID          string     `json:"id"`
	Kind        JobKind    `json:"kind"`
	State       JobState   `json:"state"`
	Progress    float64    `json:"progress"` // 0-100
	Phase       string     `json:"phase,omitempty"`
	DocumentID  string     `json:"documentId,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewJob creates a running job of the given kind.
func NewJob(kind JobKind) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		State:     JobStateRunning,
		CreatedAt: time.Now(),
	}
}
