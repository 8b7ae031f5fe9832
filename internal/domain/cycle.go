// Package domain defines the value objects for the multi-rater evaluation
// and recognition engine: evaluation cycles, rating submissions, aggregated
// results, and the award/eligibility records derived from them.
// All types are plain data snapshots; the rules that mutate them live in the
// engine packages so the domain stays persistence-agnostic and testable.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// CycleStatus represents the lifecycle state of an evaluation cycle.
type CycleStatus string

// Lifecycle states for evaluation cycles. A cycle is created in draft,
// activated to accept ratings, closed to stop them, and finally archived.
// No transition moves a cycle backward.
const (
	CycleDraft    CycleStatus = "draft"
	CycleActive   CycleStatus = "active"
	CycleClosed   CycleStatus = "closed"
	CycleArchived CycleStatus = "archived"
)

// EvaluationCycle is one bounded evaluation period (typically a month)
// during which ratings are collected for all assigned evaluee/evaluator
// pairs.
//
// Invariants: TotalEvaluations and CompletedEvaluations are non-negative,
// and CompletedEvaluations never exceeds TotalEvaluations. Exactly one
// cycle exists per Period.
type EvaluationCycle struct {
	// ID uniquely identifies this cycle.
	ID uuid.UUID `json:"id"`

	// Name is the human-readable cycle name, e.g. "December 2024 Evaluation".
	Name string `json:"name"`

	// Period is the cycle's period key in YYYY-MM form.
	Period string `json:"period"`

	// StartDate and EndDate bound the rating collection window.
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// Status is the current lifecycle state.
	Status CycleStatus `json:"status"`

	// CreatedBy references the administrator that created the cycle.
	CreatedBy uuid.UUID `json:"created_by"`

	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`

	// TotalEvaluations counts the assignments issued for this cycle;
	// CompletedEvaluations counts those submitted and is maintained through
	// the lifecycle controller's RecordCompletion.
	TotalEvaluations     int `json:"total_evaluations"`
	CompletedEvaluations int `json:"completed_evaluations"`

	// Description is optional free text shown to administrators.
	Description string `json:"description,omitempty"`

	// Metadata carries collaborator-owned annotations.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AcceptsRatings reports whether the cycle is in a state that permits new
// or updated rating submissions.
func (c EvaluationCycle) AcceptsRatings() bool { return c.Status == CycleActive }
