package domain

import (
	"time"

	"github.com/google/uuid"
)

// EOYCandidate tracks one employee's Employee-of-the-Year candidacy for one
// year: the inputs gathered from the monthly programs, the derived
// eligibility verdict, the leadership votes, and the computed score and
// rank. The annual scoring engine recomputes the derived fields whenever the
// inputs change.
type EOYCandidate struct {
	ID   uuid.UUID `json:"id"`
	Year int       `json:"year"`

	EmployeeID   uuid.UUID `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	Department   string    `json:"department"`

	// Eligibility inputs.
	EOMWins                int     `json:"eom_wins"`
	AvgMREScore            float64 `json:"avg_mre_score"`
	AttendanceRate         float64 `json:"attendance_rate"`
	TenureMonths           int     `json:"tenure_months"`
	HasDisciplinaryActions bool    `json:"has_disciplinary_actions"`

	// MeetsMinimumCriteria is derived by the annual scoring engine.
	MeetsMinimumCriteria bool `json:"meets_minimum_criteria"`

	// Leadership votes, nil until cast. The leadership component of the
	// score counts only when both are present.
	CEOVoteScore    *float64 `json:"ceo_vote_score,omitempty"`
	PCHeadVoteScore *float64 `json:"pc_head_vote_score,omitempty"`

	// EOYScore is the weighted formula result, nil until computed.
	EOYScore *float64 `json:"eoy_score,omitempty"`

	// Rank is assigned across the year's qualified candidates, 1 being best.
	Rank *int `json:"rank,omitempty"`

	IsWinner bool `json:"is_winner"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
