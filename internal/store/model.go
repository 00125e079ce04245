// Package store provides typed access to the three logical collections
// (jobs, processing-logs, api-records) backing the engine, over a
// MongoDB-compatible record store.
package store

import (
	"fmt"
	"time"
)

// SlotStatus is the tagged state of one hour-slot within a Job.
type SlotStatus string

const (
	SlotPending SlotStatus = "pending"
	SlotSuccess SlotStatus = "success"
	SlotFailed  SlotStatus = "failed"
)

// JobStatus is the tagged state of a Job, derived from its 24 slots.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// LogEntry records one failed attempt against a slot.
type LogEntry struct {
	Timestamp time.Time `bson:"timestamp"`
	Error     string    `bson:"error"`
}

// Slot is one hour-sized child of a Job, covering [hour:00, hour+1:00).
type Slot struct {
	HourRange string     `bson:"hour_range"`
	FileName  string     `bson:"file_name"`
	FilePath  string     `bson:"file_path"`
	ETag      string     `bson:"etag,omitempty"`
	Status    SlotStatus `bson:"status"`
	Retries   int        `bson:"retries"`
	Logs      []LogEntry `bson:"logs"`
}

// Job is the daily container of 24 hour-slots.
type Job struct {
	Date      string    `bson:"date"`
	Status    JobStatus `bson:"status"`
	Hours     [24]Slot  `bson:"hours"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// HourRange renders the canonical "HH-HH" label for hour h (0..23), where
// hour 23 renders as "23-24" rather than wrapping to "23-00".
func HourRange(h int) string {
	return fmt.Sprintf("%02d-%02d", h, h+1)
}

// NewJob constructs a Job for date with 24 pending slots.
func NewJob(date string, now time.Time) Job {
	var j Job
	j.Date = date
	j.Status = JobPending
	for i := 0; i < 24; i++ {
		j.Hours[i] = Slot{
			HourRange: HourRange(i),
			Status:    SlotPending,
		}
	}
	j.CreatedAt = now
	j.UpdatedAt = now
	return j
}

// DeriveStatus recomputes the parent status from the 24 child slots,
// per the invariant: success iff every slot succeeded; failed iff any
// slot failed and none remain pending; otherwise pending.
func (j *Job) DeriveStatus() {
	allSuccess := true
	anyFailed := false
	anyPending := false
	for i := range j.Hours {
		switch j.Hours[i].Status {
		case SlotSuccess:
		case SlotFailed:
			allSuccess = false
			anyFailed = true
		case SlotPending:
			allSuccess = false
			anyPending = true
		}
	}
	switch {
	case allSuccess:
		j.Status = JobSuccess
	case anyFailed && !anyPending:
		j.Status = JobFailed
	default:
		j.Status = JobPending
	}
}

// ProcessingLogStatus is the outcome of one processing attempt.
type ProcessingLogStatus string

const (
	ProcessingSuccess ProcessingLogStatus = "success"
	ProcessingFailure ProcessingLogStatus = "failure"
)

// ProcessingLog is one append-only observational row per attempt.
type ProcessingLog struct {
	Date      string              `bson:"date"`
	HourRange string              `bson:"hour_range"`
	Status    ProcessingLogStatus `bson:"status"`
	FilePath  string              `bson:"file_path,omitempty"`
	ETag      string              `bson:"etag,omitempty"`
	Error     string              `bson:"error,omitempty"`
	Timestamp time.Time           `bson:"timestamp"`
}

// APIRecord is one captured request/response document.
type APIRecord struct {
	ID             string                 `bson:"_id,omitempty"`
	Method         string                 `bson:"method"`
	Path           string                 `bson:"path"`
	RequestBody    map[string]interface{} `bson:"request_body,omitempty"`
	RequestHeaders map[string]interface{} `bson:"request_headers,omitempty"`
	ResponseStatus int                    `bson:"response_status"`
	ResponseBody   map[string]interface{} `bson:"response_body,omitempty"`
	Query          map[string]interface{} `bson:"query,omitempty"`
	PathParams     map[string]interface{} `bson:"path_params,omitempty"`
	ClientAddress  string                 `bson:"client_address,omitempty"`
	ClientAgent    string                 `bson:"client_agent,omitempty"`
	ResponseTime   time.Time              `bson:"response_time,omitempty"`
	RequestTime    time.Time              `bson:"request_time"`
	Extra          map[string]interface{} `bson:"extra,omitempty"`
}

// ToMap flattens rec into the generic field-name-verbatim shape the
// Masking Engine and serializer operate on; fields held in Extra are
// merged at the top level under their original keys, so unanticipated
// producer fields survive untouched.
func (rec APIRecord) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":              rec.ID,
		"method":          rec.Method,
		"path":            rec.Path,
		"response_status": rec.ResponseStatus,
		"request_time":    rec.RequestTime,
	}
	if rec.RequestBody != nil {
		m["request_body"] = rec.RequestBody
	}
	if rec.RequestHeaders != nil {
		m["request_headers"] = rec.RequestHeaders
	}
	if rec.ResponseBody != nil {
		m["response_body"] = rec.ResponseBody
	}
	if rec.Query != nil {
		m["query"] = rec.Query
	}
	if rec.PathParams != nil {
		m["path_params"] = rec.PathParams
	}
	if rec.ClientAddress != "" {
		m["client_address"] = rec.ClientAddress
	}
	if rec.ClientAgent != "" {
		m["client_agent"] = rec.ClientAgent
	}
	if !rec.ResponseTime.IsZero() {
		m["response_time"] = rec.ResponseTime
	}
	for k, v := range rec.Extra {
		m[k] = v
	}
	return m
}
