// Package enrichment defines the request, result and job payloads exchanged
// with the enrichment endpoints.
package enrichment

import (
	"fmt"
	"time"

	"github.com/turtacn/HyperBlend/pkg/types/common"
)

// Request is the body of POST /<entity>s/<id>/enrich.
type Request struct {
	Identifiers []common.Identifier `json:"identifiers"`
	OriginalID  string              `json:"original_id,omitempty"`
}

// Data is the enriched payload. Identifiers and Properties are keyed by field
// name; values keep their JSON type.
type Data struct {
	Attributes  []common.Attribute `json:"attributes,omitempty"`
	Identifiers common.Metadata    `json:"identifiers,omitempty"`
	Properties  common.Metadata    `json:"properties,omitempty"`
}

// IsEmpty reports whether nothing was found.
func (d Data) IsEmpty() bool {
	return len(d.Attributes) == 0 && len(d.Identifiers) == 0 && len(d.Properties) == 0
}

// Merge copies keys from other that are absent (or nil) in d. Attributes are
// appended unless an attribute with the same name already exists.
func (d *Data) Merge(other Data) {
	if d.Identifiers == nil && len(other.Identifiers) > 0 {
		d.Identifiers = common.Metadata{}
	}
	for k, v := range other.Identifiers {
		if cur, ok := d.Identifiers[k]; !ok || cur == nil {
			d.Identifiers[k] = v
		}
	}
	if d.Properties == nil && len(other.Properties) > 0 {
		d.Properties = common.Metadata{}
	}
	for k, v := range other.Properties {
		if cur, ok := d.Properties[k]; !ok || cur == nil {
			d.Properties[k] = v
		}
	}
	have := make(map[string]bool, len(d.Attributes))
	for _, a := range d.Attributes {
		have[a.Name] = true
	}
	for _, a := range other.Attributes {
		if !have[a.Name] {
			d.Attributes = append(d.Attributes, a)
			have[a.Name] = true
		}
	}
}

// Result is a completed enrichment.
type Result struct {
	Success bool            `json:"success"`
	Data    Data            `json:"data"`
	Sources []common.Source `json:"sources"`
	Error   string          `json:"error,omitempty"`
}

// AddSource appends s unless a source with the same name is already cited.
func (r *Result) AddSource(s common.Source) {
	for _, cur := range r.Sources {
		if cur.Name == s.Name {
			return
		}
	}
	r.Sources = append(r.Sources, s)
}

// Outcome is what a submission yields: either a completed Result or a job
// handle to poll. Exactly one of the two is set.
type Outcome struct {
	Result *Result
	JobID  string
}

// IsJob reports whether the caller must poll.
func (o Outcome) IsJob() bool { return o.JobID != "" }

// ─────────────────────────────────────────────────────────────────────────────
// Jobs
// ─────────────────────────────────────────────────────────────────────────────

// JobStatus is the backend-reported state of a job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions can occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is an asynchronous unit of enrichment work.
type Job struct {
	ID        string      `json:"id"`
	Status    JobStatus   `json:"status"`
	Entity    common.Kind `json:"entity"`
	EntityID  string      `json:"entity_id"`
	Request   Request     `json:"request"`
	Error     string      `json:"error,omitempty"`
	Result    *Result     `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Transition moves the job to next, enforcing pending → running → terminal.
func (j *Job) Transition(next JobStatus, now time.Time) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("job %s already %s", j.ID, j.Status)
	}
	if next == JobPending {
		return fmt.Errorf("job %s cannot return to pending", j.ID)
	}
	j.Status = next
	j.UpdatedAt = now
	return nil
}

// JobEnvelope is the GET /jobs/<id> payload.
type JobEnvelope struct {
	Job Job `json:"job"`
}
