package engines

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-merit/internal/domain"
)

// AnnualEngine combines a year's monthly recognition history, aggregated
// evaluation scores, attendance, and leadership votes into one
// Employee-of-the-Year score and eligibility verdict per candidate, and
// ranks the field subject to the rotation-lock fairness gate.
type AnnualEngine struct {
	name        string
	config      AnnualConfig
	eligibility *EligibilityEngine
	tracer      trace.Tracer
}

// AnnualConfig defines the component weights and minimum criteria for
// Employee-of-the-Year scoring. The defaults mirror the standing program
// rules; deployments tune them here rather than in code.
type AnnualConfig struct {
	// Component weights. A candidate with a perfect record in every
	// component scores the sum of the four weights (100 by default).
	EOMWeight        float64 `yaml:"eom_weight" json:"eom_weight" validate:"min=0,max=100"`
	MREWeight        float64 `yaml:"mre_weight" json:"mre_weight" validate:"min=0,max=100"`
	AttendanceWeight float64 `yaml:"attendance_weight" json:"attendance_weight" validate:"min=0,max=100"`
	LeadershipWeight float64 `yaml:"leadership_weight" json:"leadership_weight" validate:"min=0,max=100"`

	// MaxCountedEOMWins caps the EOM component's numerator; wins beyond the
	// cap earn no further credit.
	MaxCountedEOMWins int `yaml:"max_counted_eom_wins" json:"max_counted_eom_wins" validate:"min=1,max=12"`

	// Minimum criteria gates.
	MinEOMWins      int     `yaml:"min_eom_wins" json:"min_eom_wins" validate:"min=0"`
	MinAvgMREScore  float64 `yaml:"min_avg_mre_score" json:"min_avg_mre_score" validate:"min=0,max=10"`
	MinAttendance   float64 `yaml:"min_attendance" json:"min_attendance" validate:"min=0,max=100"`
	MinTenureMonths int     `yaml:"min_tenure_months" json:"min_tenure_months" validate:"min=0"`
}

// NewAnnualEngine creates an AnnualEngine with the specified configuration.
// The eligibility engine supplies the rotation-lock check applied when a
// winner is finalized.
func NewAnnualEngine(name string, config AnnualConfig, eligibility *EligibilityEngine) (*AnnualEngine, error) {
	if name == "" {
		return nil, ErrEmptyEngineName
	}
	if eligibility == nil {
		return nil, fmt.Errorf("annual engine requires an eligibility engine")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &AnnualEngine{
		name:        name,
		config:      config,
		eligibility: eligibility,
		tracer:      otel.Tracer("annual-engine"),
	}, nil
}

// Name returns the unique identifier for this engine instance.
func (an *AnnualEngine) Name() string { return an.name }

// Score computes the candidate's EOY score from the four weighted
// components. The leadership component counts only when both the CEO and
// the P&C head votes are present; a single vote contributes nothing. The
// score is bounded by the sum of the configured weights.
func (an *AnnualEngine) Score(candidate domain.EOYCandidate) float64 {
	wins := candidate.EOMWins
	if wins > an.config.MaxCountedEOMWins {
		wins = an.config.MaxCountedEOMWins
	}
	eomComponent := float64(wins) / float64(an.config.MaxCountedEOMWins) * an.config.EOMWeight
	mreComponent := candidate.AvgMREScore / 10 * an.config.MREWeight
	attendanceComponent := candidate.AttendanceRate / 100 * an.config.AttendanceWeight

	leadershipComponent := 0.0
	if candidate.CEOVoteScore != nil && candidate.PCHeadVoteScore != nil {
		leadershipAvg := (*candidate.CEOVoteScore + *candidate.PCHeadVoteScore) / 2
		leadershipComponent = leadershipAvg / 10 * an.config.LeadershipWeight
	}

	return eomComponent + mreComponent + attendanceComponent + leadershipComponent
}

// CheckEligibility evaluates the candidate against the minimum criteria and
// returns the updated candidate with MeetsMinimumCriteria set alongside the
// verdict. It never touches the score.
func (an *AnnualEngine) CheckEligibility(candidate domain.EOYCandidate) (domain.EOYCandidate, bool) {
	meets := candidate.EOMWins >= an.config.MinEOMWins &&
		candidate.AvgMREScore >= an.config.MinAvgMREScore &&
		candidate.AttendanceRate >= an.config.MinAttendance &&
		candidate.TenureMonths >= an.config.MinTenureMonths &&
		!candidate.HasDisciplinaryActions
	candidate.MeetsMinimumCriteria = meets
	return candidate, meets
}

// Rank scores and ranks the year's candidates. Qualified candidates (those
// meeting the minimum criteria) are ordered by EOY score descending, with
// employee name and then ID breaking ties deterministically; rank 1 is
// best. Unqualified candidates keep a nil rank.
//
// The winner is the highest-ranked candidate that also passes the
// eligibility engine's rotation check at the given instant: a top-ranked
// but rotation-locked candidate is skipped and the next eligible candidate
// wins. If every qualified candidate is locked, no winner is marked for the
// year.
//
// All candidates are returned with their scores, ranks, and winner flag
// recomputed; stale flags from a previous run never survive.
func (an *AnnualEngine) Rank(
	ctx context.Context,
	candidates []domain.EOYCandidate,
	trackings map[uuid.UUID]domain.EligibilityTracking,
	asOf time.Time,
) []domain.EOYCandidate {
	_, span := an.tracer.Start(ctx, "AnnualEngine.Rank",
		trace.WithAttributes(
			attribute.String("engine.id", an.name),
			attribute.Int("candidates.count", len(candidates)),
		),
	)
	defer span.End()

	ranked := make([]domain.EOYCandidate, len(candidates))
	for i, c := range candidates {
		c, _ = an.CheckEligibility(c)
		score := an.Score(c)
		c.EOYScore = &score
		c.Rank = nil
		c.IsWinner = false
		c.UpdatedAt = asOf
		ranked[i] = c
	}

	qualified := make([]int, 0, len(ranked))
	for i, c := range ranked {
		if c.MeetsMinimumCriteria {
			qualified = append(qualified, i)
		}
	}
	sort.SliceStable(qualified, func(a, b int) bool {
		ca, cb := ranked[qualified[a]], ranked[qualified[b]]
		if *ca.EOYScore != *cb.EOYScore {
			return *ca.EOYScore > *cb.EOYScore
		}
		if ca.EmployeeName != cb.EmployeeName {
			return ca.EmployeeName < cb.EmployeeName
		}
		return ca.EmployeeID.String() < cb.EmployeeID.String()
	})

	winnerMarked := false
	for pos, idx := range qualified {
		rank := pos + 1
		ranked[idx].Rank = &rank
		if !winnerMarked && an.eligibility.IsEligible(trackings[ranked[idx].EmployeeID], asOf) {
			ranked[idx].IsWinner = true
			winnerMarked = true
		}
	}

	span.SetAttributes(
		attribute.Int("candidates.qualified", len(qualified)),
		attribute.Bool("winner.marked", winnerMarked),
	)
	return ranked
}

// Validate checks if the engine is properly configured.
func (an *AnnualEngine) Validate() error {
	if err := validate.Struct(an.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML parameters into the engine's config
// with strict field checking.
func (an *AnnualEngine) UnmarshalParameters(params yaml.Node) error {
	var config AnnualConfig
	if err := decodeStrict(params, &config); err != nil {
		return err
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	an.config = config
	return nil
}

// DefaultAnnualConfig returns the standing EOY program rules: 30/50/10/10
// component weights, a 12-month EOM cap, and the minimum criteria of two
// EOM wins, an 8.5 average MRE score, 95% attendance, and a year of tenure.
func DefaultAnnualConfig() AnnualConfig {
	return AnnualConfig{
		EOMWeight:         30,
		MREWeight:         50,
		AttendanceWeight:  10,
		LeadershipWeight:  10,
		MaxCountedEOMWins: 12,
		MinEOMWins:        2,
		MinAvgMREScore:    8.5,
		MinAttendance:     95.0,
		MinTenureMonths:   12,
	}
}
