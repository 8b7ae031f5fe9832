package domain

import (
	"time"

	"github.com/google/uuid"
)

// EvaluationRating is one evaluator's actual submission against an
// Evaluation assignment: a staff-type-dependent subset of scored criteria
// plus the criteria common to all staff, each on a 1-10 scale, and free-text
// qualitative feedback.
//
// Staff-type-specific criteria that do not apply to the evaluee's staff type
// are nil, never zero: a nil criterion must not contaminate the average. The
// record is immutable once submitted; a correction requires a new record.
type EvaluationRating struct {
	ID           uuid.UUID `json:"id"`
	EvaluationID uuid.UUID `json:"evaluation_id"`
	CycleID      uuid.UUID `json:"cycle_id"`

	EvaluatorID   uuid.UUID     `json:"evaluator_id"`
	EvaluatorRole EvaluatorRole `json:"evaluator_role"`
	EvalueeID     uuid.UUID     `json:"evaluee_id"`

	// Weight mirrors the assignment weight at submission time.
	Weight float64 `json:"weight"`

	// Academic staff criteria (1-10 scale, nil for administrative staff).
	TeachingEffectiveness    *float64 `json:"teaching_effectiveness,omitempty" validate:"omitempty,min=1,max=10"`
	StudentEngagement        *float64 `json:"student_engagement,omitempty" validate:"omitempty,min=1,max=10"`
	CurriculumImplementation *float64 `json:"curriculum_implementation,omitempty" validate:"omitempty,min=1,max=10"`
	ClassroomManagement      *float64 `json:"classroom_management,omitempty" validate:"omitempty,min=1,max=10"`

	// Administrative staff criteria (1-10 scale, nil for academic staff).
	TaskManagement                 *float64 `json:"task_management,omitempty" validate:"omitempty,min=1,max=10"`
	PolicyAdherence                *float64 `json:"policy_adherence,omitempty" validate:"omitempty,min=1,max=10"`
	InterdepartmentalCommunication *float64 `json:"interdepartmental_communication,omitempty" validate:"omitempty,min=1,max=10"`
	ServiceQuality                 *float64 `json:"service_quality,omitempty" validate:"omitempty,min=1,max=10"`

	// Common criteria for all staff types (1-10 scale, always present).
	Collaboration           float64 `json:"collaboration" validate:"min=1,max=10"`
	Innovation              float64 `json:"innovation" validate:"min=1,max=10"`
	Attendance              float64 `json:"attendance" validate:"min=1,max=10"`
	ProfessionalDevelopment float64 `json:"professional_development" validate:"min=1,max=10"`

	// AverageScore is the stored mean of all present criterion scores,
	// computed at submission time by the aggregation engine.
	AverageScore float64 `json:"average_score"`

	// Qualitative feedback.
	Strengths    string `json:"strengths,omitempty"`
	Improvements string `json:"improvements,omitempty"`
	Comments     string `json:"comments,omitempty"`

	SubmittedAt time.Time      `json:"submitted_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CriterionScores returns every present criterion score in a fixed order:
// staff-type-specific criteria first, common criteria last. Nil criteria are
// skipped so the slice never carries placeholder zeros.
func (r EvaluationRating) CriterionScores() []float64 {
	scores := make([]float64, 0, 12)
	for _, s := range []*float64{
		r.TeachingEffectiveness,
		r.StudentEngagement,
		r.CurriculumImplementation,
		r.ClassroomManagement,
		r.TaskManagement,
		r.PolicyAdherence,
		r.InterdepartmentalCommunication,
		r.ServiceQuality,
	} {
		if s != nil {
			scores = append(scores, *s)
		}
	}
	return append(scores,
		r.Collaboration,
		r.Innovation,
		r.Attendance,
		r.ProfessionalDevelopment,
	)
}
