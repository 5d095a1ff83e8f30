package types

import (
	"encoding/json"
	"time"
)

// JobState is the lifecycle state of a job as seen by a polling client.
// PENDING is owned by the queue; the remaining states are emitted by the
// worker executing the job and are last-write-wins.
type JobState string

const (
	JobStatePending  JobState = "PENDING"
	JobStateStarted  JobState = "STARTED"
	JobStateProgress JobState = "PROGRESS"
	JobStateSuccess  JobState = "SUCCESS"
	JobStateFailure  JobState = "FAILURE"
)

// Terminal reports whether no further status updates can follow.
func (s JobState) Terminal() bool {
	return s == JobStateSuccess || s == JobStateFailure
}

// JobStatus is the progress record attached to a job UUID.
type JobStatus struct {
	State     JobState       `json:"state"`
	Status    string         `json:"status"`
	Meta      map[string]any `json:"meta,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ProgressFn is called by job workers to publish a new progress record.
type ProgressFn func(status JobStatus)

type JobResponse struct {
	UID string `json:"uid"`
}

type JobError struct {
	Error string `json:"error"`
}

type JobArguments map[string]any

type JobResult struct {
	Error string `json:"error"`
	Data  any    `json:"data"`
}

func (jr JobResult) Success() bool {
	return jr.Error == ""
}

type Job struct {
	Type      string        `json:"type"`
	Arguments JobArguments  `json:"arguments"`
	UUID      string        `json:"-"`
	Timeout   time.Duration `json:"-"`
}

// Unmarshal maps the loosely typed job arguments onto a concrete argument
// struct via a JSON round trip.
func (ja JobArguments) Unmarshal(i any) error {
	dat, err := json.Marshal(ja)
	if err != nil {
		return err
	}
	return json.Unmarshal(dat, i)
}
