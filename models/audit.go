package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type AuditAction string

const (
	AuditCreated    AuditAction = "CREATED"
	AuditVerified   AuditAction = "VERIFIED"
	AuditRejected   AuditAction = "REJECTED"
	AuditFlagged    AuditAction = "FLAGGED"
	AuditCorrelated AuditAction = "CORRELATED"
)

// ErrAuditImmutable is returned by the gorm hooks when something tries to
// rewrite or remove an audit row.
var ErrAuditImmutable = errors.New("audit entries are append-only")

// Audit is one immutable entry in a signal's history.
type Audit struct {
	ID        uint64      `json:"id" gorm:"primaryKey;autoIncrement"`
	SignalID  string      `json:"signalId" gorm:"type:varchar(36);not null;index"`
	ActorID   string      `json:"actorId" gorm:"type:varchar(64);not null"`
	Action    AuditAction `json:"action" gorm:"type:varchar(32);not null"`
	Notes     string      `json:"notes,omitempty" gorm:"type:text"`
	Timestamp time.Time   `json:"timestamp" gorm:"not null;index"`
}

func (Audit) TableName() string {
	return "audits"
}

func (*Audit) BeforeUpdate(*gorm.DB) error { return ErrAuditImmutable }

func (*Audit) BeforeDelete(*gorm.DB) error { return ErrAuditImmutable }
