package domain

import (
	"time"

	"github.com/google/uuid"
)

// EvaluationResult is the aggregated, weighted outcome for one evaluee in
// one cycle. It is produced only by the aggregation engine and is
// recomputable idempotently: the same rating snapshot always yields the
// same result.
type EvaluationResult struct {
	ID      uuid.UUID `json:"id"`
	CycleID uuid.UUID `json:"cycle_id"`

	EvalueeID         uuid.UUID `json:"evaluee_id"`
	EvalueeName       string    `json:"evaluee_name"`
	EvalueeDepartment string    `json:"evaluee_department"`
	EvalueeStaffType  StaffType `json:"evaluee_staff_type"`

	// Per-role scores. Each is nil when that role's rating is absent; peer
	// is the average across all submitted peer ratings.
	SelfScore       *float64 `json:"self_score,omitempty"`
	PeerScoresAvg   *float64 `json:"peer_scores_avg,omitempty"`
	SupervisorScore *float64 `json:"supervisor_score,omitempty"`
	CEOScore        *float64 `json:"ceo_score,omitempty"`
	PCHeadScore     *float64 `json:"pc_head_score,omitempty"`

	// FinalScore is the renormalized weighted average over the roles that
	// actually submitted. Nil when no role has a score; it is never
	// defaulted to zero because zero is a valid real score.
	FinalScore *float64 `json:"final_score,omitempty"`

	// Completion tracking.
	TotalExpectedRatings int     `json:"total_expected_ratings"`
	ReceivedRatings      int     `json:"received_ratings"`
	CompletionPercentage float64 `json:"completion_percentage"`

	// ScoreVariance is the statistical variance of the individual raw
	// average scores contributing to this evaluee. Nil when fewer than two
	// ratings contributed.
	ScoreVariance   *float64 `json:"score_variance,omitempty"`
	HasHighVariance bool     `json:"has_high_variance"`

	// Aggregated qualitative feedback: distinct, non-empty entries joined
	// across contributing ratings.
	AggregatedStrengths    string `json:"aggregated_strengths,omitempty"`
	AggregatedImprovements string `json:"aggregated_improvements,omitempty"`

	// Insights holds optional generated analysis attached by a collaborator
	// after aggregation. The engine itself never populates it.
	Insights map[string]any `json:"insights,omitempty"`

	CalculatedAt time.Time  `json:"calculated_at"`
	ReleasedAt   *time.Time `json:"released_at,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// RoleScore returns the aggregated score for the given evaluator role,
// or nil when that role did not contribute.
func (r EvaluationResult) RoleScore(role EvaluatorRole) *float64 {
	switch role {
	case RoleSelf:
		return r.SelfScore
	case RolePeer:
		return r.PeerScoresAvg
	case RoleSupervisor:
		return r.SupervisorScore
	case RoleCEO:
		return r.CEOScore
	case RolePCHead:
		return r.PCHeadScore
	default:
		return nil
	}
}

// Released reports whether the result has been released to the evaluee.
func (r EvaluationResult) Released() bool { return r.ReleasedAt != nil }

// EvalueeSnapshot is the immutable input to one aggregation run: the cycle,
// the evaluee's assignments, the ratings submitted against them, and any
// unresolved fairness alerts already raised for this evaluee and period.
// The snapshot is assembled by the persistence collaborator; the engine
// performs no I/O of its own.
type EvalueeSnapshot struct {
	Cycle EvaluationCycle

	EvalueeID         uuid.UUID
	EvalueeName       string
	EvalueeDepartment string
	EvalueeStaffType  StaffType

	// Assignments are every Evaluation issued for this evaluee in the
	// cycle; their count is the expected rating total.
	Assignments []Evaluation

	// Ratings are the submissions received so far.
	Ratings []EvaluationRating

	// OpenAlerts are unresolved fairness alerts for this evaluee, used to
	// keep alert emission idempotent across recomputations.
	OpenAlerts []FairnessMetric
}
