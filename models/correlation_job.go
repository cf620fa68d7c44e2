package models

import (
	"time"

	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// CorrelationJob is one attempt to corroborate a signal against public sources.
// RawResults holds the normalized per-source results, never third-party payloads.
type CorrelationJob struct {
	ID                    string                      `json:"jobId" gorm:"primaryKey;type:varchar(36)"`
	SignalID              string                      `json:"signalId" gorm:"type:varchar(36);not null;index"`
	Status                JobStatus                   `json:"status" gorm:"type:varchar(16);not null"`
	InitiatedBy           string                      `json:"initiatedBy" gorm:"type:varchar(64)"`
	StartedAt             time.Time                   `json:"startedAt" gorm:"not null;index"`
	FinishedAt            *time.Time                  `json:"finishedAt,omitempty"`
	ResultGist            string                      `json:"resultGist,omitempty" gorm:"type:text"`
	CorrelationConfidence float64                     `json:"correlationConfidence"`
	SourcesQueried        datatypes.JSONSlice[string] `json:"sourcesQueried"`
	RawResults            datatypes.JSON              `json:"rawResults,omitempty"`
	ErrorMessage          string                      `json:"errorMessage,omitempty" gorm:"type:text"`
}

func (CorrelationJob) TableName() string {
	return "correlation_jobs"
}
