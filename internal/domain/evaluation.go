package domain

import (
	"time"

	"github.com/google/uuid"
)

// EvaluatorRole identifies the relationship an evaluator has to the evaluee.
// The role determines the weighted contribution of the rating to the final
// score and how multiple submissions in the same role are combined.
type EvaluatorRole string

// Evaluator roles recognized by the aggregation engine. Peer ratings are
// averaged into a single contribution; every other role submits at most one
// rating per cycle.
const (
	RoleSelf       EvaluatorRole = "self"
	RolePeer       EvaluatorRole = "peer"
	RoleSupervisor EvaluatorRole = "supervisor"
	RoleCEO        EvaluatorRole = "ceo"
	RolePCHead     EvaluatorRole = "pc_head"
)

// EvaluatorRoles lists every role in the fixed order used when assembling
// results, so aggregation output is deterministic regardless of input order.
var EvaluatorRoles = []EvaluatorRole{RoleSelf, RolePeer, RoleSupervisor, RoleCEO, RolePCHead}

// StaffType selects which staff-type-specific criteria apply to a rating.
type StaffType string

// Staff types for determining evaluation criteria.
const (
	StaffAcademic       StaffType = "academic"
	StaffAdministrative StaffType = "administrative"
)

// EvaluationStatus is the status of an individual evaluation assignment.
type EvaluationStatus string

// Assignment states. An assignment past its due date that has not been
// submitted is transitionable to late by the lifecycle controller.
const (
	EvaluationNotStarted EvaluationStatus = "not_started"
	EvaluationInProgress EvaluationStatus = "in_progress"
	EvaluationSubmitted  EvaluationStatus = "submitted"
	EvaluationLate       EvaluationStatus = "late"
)

// Evaluation is an assignment linking one evaluator to one evaluee within
// one cycle. It snapshots evaluee and evaluator identity at assignment time
// so results remain stable even if staff records change later.
//
// Invariant: Weight is a non-negative fraction of the final score (for
// example 0.05 to 0.40 depending on role).
type Evaluation struct {
	ID      uuid.UUID `json:"id"`
	CycleID uuid.UUID `json:"cycle_id"`

	EvalueeID         uuid.UUID `json:"evaluee_id"`
	EvalueeName       string    `json:"evaluee_name"`
	EvalueeDepartment string    `json:"evaluee_department"`
	EvalueeStaffType  StaffType `json:"evaluee_staff_type"`

	EvaluatorID   uuid.UUID     `json:"evaluator_id"`
	EvaluatorName string        `json:"evaluator_name"`
	EvaluatorRole EvaluatorRole `json:"evaluator_role"`

	// Weight is this evaluator's fractional contribution to the final score.
	Weight float64 `json:"weight"`

	Status EvaluationStatus `json:"status"`

	AssignedAt  time.Time  `json:"assigned_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	DueDate     time.Time  `json:"due_date"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Overdue reports whether the assignment is past due without a submission.
func (e Evaluation) Overdue(now time.Time) bool {
	return e.Status != EvaluationSubmitted && e.Status != EvaluationLate && now.After(e.DueDate)
}
