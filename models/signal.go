package models

import (
	"time"

	"gorm.io/datatypes"
)

type SignalStatus string

const (
	StatusUnverified     SignalStatus = "UNVERIFIED"
	StatusRequiresReview SignalStatus = "REQUIRES_REVIEW"
	StatusHumanVerified  SignalStatus = "HUMAN_VERIFIED"
	StatusRejected       SignalStatus = "REJECTED"
	StatusCorrelated     SignalStatus = "CORRELATED"
)

// Statuses lists every signal status in lifecycle order.
var Statuses = []SignalStatus{
	StatusUnverified,
	StatusRequiresReview,
	StatusHumanVerified,
	StatusRejected,
	StatusCorrelated,
}

func (s SignalStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s SignalStatus) Terminal() bool { return s == StatusRejected }

type SourceType string

const (
	SourceManualUpload SourceType = "MANUAL_UPLOAD"
	SourceReddit       SourceType = "REDDIT"
	SourceTwitter      SourceType = "TWITTER"
	SourceNewsAPI      SourceType = "NEWS_API"
	SourceBlockchain   SourceType = "BLOCKCHAIN"
	SourceLicensedFeed SourceType = "LICENSED_FEED"
	SourceExchangeOTC  SourceType = "EXCHANGE_OTC"
)

// Signal is a user-submitted market observation. Confidence is on a 0.0-1.0 scale.
type Signal struct {
	ID                string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ScriptName        string                      `json:"scriptName" gorm:"type:varchar(200);not null"`
	DateFrom          time.Time                   `json:"dateFrom" gorm:"not null"`
	DateTo            time.Time                   `json:"dateTo" gorm:"not null"`
	GistText          string                      `json:"gistText" gorm:"type:text;not null"`
	ProvenanceTags    datatypes.JSONSlice[string] `json:"provenanceTags" gorm:"not null"`
	SourceType        SourceType                  `json:"sourceType" gorm:"type:varchar(32);not null"`
	ConfidenceScore   float64                     `json:"confidenceScore" gorm:"not null;default:0;index"`
	Status            SignalStatus                `json:"status" gorm:"type:varchar(32);not null;index"`
	RequiresAttention bool                        `json:"requiresAttention" gorm:"not null;default:false"`
	ContradictionFlag bool                        `json:"contradictionFlag" gorm:"not null;default:false"`
	ContradictionNote string                      `json:"contradictionNote,omitempty" gorm:"type:text"`
	CreatedBy         string                      `json:"createdBy" gorm:"type:varchar(64);not null"`
	CreatedAt         time.Time                   `json:"createdAt" gorm:"index"`
	UpdatedAt         time.Time                   `json:"updatedAt"`

	// AuditCount is the full trail length; Audits holds only the newest entries.
	AuditCount      int64            `json:"auditCount" gorm:"-"`
	Audits          []Audit          `json:"audits,omitempty" gorm:"foreignKey:SignalID"`
	CorrelationJobs []CorrelationJob `json:"correlationJobs,omitempty" gorm:"foreignKey:SignalID"`
}

func (Signal) TableName() string {
	return "signals"
}
