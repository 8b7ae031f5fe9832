package domain

import (
	"time"

	"github.com/google/uuid"
)

// NominationStatus is the lifecycle state of an EOM nomination.
type NominationStatus string

// Nomination states: pending -> voting -> {selected, rejected}.
// Selected and rejected are terminal.
const (
	NominationPending  NominationStatus = "pending"
	NominationVoting   NominationStatus = "voting"
	NominationSelected NominationStatus = "selected"
	NominationRejected NominationStatus = "rejected"
)

// Terminal reports whether no further nomination transitions are allowed.
func (s NominationStatus) Terminal() bool {
	return s == NominationSelected || s == NominationRejected
}

// NominationCategory is the award category a nomination competes in.
type NominationCategory string

// EOM award categories.
const (
	CategoryTeachingExcellence NominationCategory = "teaching_excellence"
	CategoryInnovation         NominationCategory = "innovation"
	CategoryTeamwork           NominationCategory = "teamwork"
	CategoryLeadership         NominationCategory = "leadership"
	CategoryServiceExcellence  NominationCategory = "service_excellence"
	CategoryStudentAdvocacy    NominationCategory = "student_advocacy"
)

// AwardType identifies the recognition program an award belongs to.
type AwardType string

// Types of awards that can be granted.
const (
	AwardEmployeeOfMonth    AwardType = "employee_of_month"
	AwardEmployeeOfYear     AwardType = "employee_of_year"
	AwardSpecialRecognition AwardType = "special_recognition"
)

// Nomination is an Employee-of-the-Month nomination record.
type Nomination struct {
	ID uuid.UUID `json:"id"`

	NomineeID         uuid.UUID `json:"nominee_id"`
	NomineeName       string    `json:"nominee_name"`
	NomineeDepartment string    `json:"nominee_department"`

	Category NominationCategory `json:"category"`

	NominatorID   uuid.UUID `json:"nominator_id"`
	NominatorName string    `json:"nominator_name"`

	Description string    `json:"description"`
	SubmittedAt time.Time `json:"submitted_at"`

	Status NominationStatus `json:"status"`

	// Period is the nomination period key in YYYY-MM form.
	Period string `json:"period"`

	// VotesCount counts recorded votes; TotalEligibleVoters is the
	// denominator stamped when voting opens.
	VotesCount          int  `json:"votes_count"`
	TotalEligibleVoters *int `json:"total_eligible_voters,omitempty"`

	// Analysis holds optional generated validation notes attached by a
	// collaborator; the state machine never reads it.
	Analysis map[string]any `json:"analysis,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Vote is one voter's ballot for a nomination. Uniqueness of
// (nomination, voter) is enforced by the persistence collaborator.
type Vote struct {
	ID           uuid.UUID          `json:"id"`
	NominationID uuid.UUID          `json:"nomination_id"`
	VoterID      uuid.UUID          `json:"voter_id"`
	VoterRole    string             `json:"voter_role"`
	Category     NominationCategory `json:"category"`
	Period       string             `json:"period"`
	VotedAt      time.Time          `json:"voted_at"`
}

// Award is a recognition grant, optionally linked to the winning nomination.
type Award struct {
	ID uuid.UUID `json:"id"`

	RecipientID   uuid.UUID `json:"recipient_id"`
	RecipientName string    `json:"recipient_name"`
	Department    string    `json:"department"`

	Type AwardType `json:"type"`

	// Category applies to EOM awards only.
	Category *NominationCategory `json:"category,omitempty"`

	// Period is YYYY-MM for EOM awards, YYYY for EOY awards.
	Period string `json:"period"`

	Description string    `json:"description"`
	GrantedAt   time.Time `json:"granted_at"`

	NominationID *uuid.UUID `json:"nomination_id,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// EligibilityTracking is the per-employee rolling eligibility state for
// nominations and awards: the rotation lock window after a win, any
// administrative ineligibility override, and lifetime win counters.
// The eligibility engine updates it exactly once per award grant.
type EligibilityTracking struct {
	ID           uuid.UUID `json:"id"`
	EmployeeID   uuid.UUID `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`

	LastAwardDate *time.Time `json:"last_award_date,omitempty"`
	LastAwardType *AwardType `json:"last_award_type,omitempty"`

	// RotationLockUntil is the instant the employee becomes eligible again
	// after a win; nil when no lock is in effect.
	RotationLockUntil *time.Time `json:"rotation_lock_until,omitempty"`

	// Ineligible is the administrative override, independent of the
	// rotation lock.
	Ineligible          bool   `json:"ineligible"`
	IneligibilityReason string `json:"ineligibility_reason,omitempty"`

	TotalEOMWins int `json:"total_eom_wins"`
	TotalEOYWins int `json:"total_eoy_wins"`

	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FairnessMetric is an anomaly alert raised when aggregated data crosses a
// configured threshold, such as high rating variance for one evaluee.
type FairnessMetric struct {
	ID uuid.UUID `json:"id"`

	// Type names the anomaly, e.g. "variance_alert" or
	// "department_distribution".
	Type string `json:"type"`

	// Period is the YYYY-MM period the alert refers to.
	Period string `json:"period"`

	// Data carries the detailed metric payload.
	Data map[string]any `json:"data"`

	// AlertLevel is "info", "warning", or "critical".
	AlertLevel   string `json:"alert_level,omitempty"`
	AlertMessage string `json:"alert_message,omitempty"`

	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *uuid.UUID `json:"resolved_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Alert type and severity values emitted by the aggregation engine.
const (
	AlertTypeVariance = "variance_alert"

	AlertLevelInfo     = "info"
	AlertLevelWarning  = "warning"
	AlertLevelCritical = "critical"
)
