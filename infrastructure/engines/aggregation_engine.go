package engines

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-merit/internal/domain"
)

// foldCaser is a package-level Unicode case folder used when comparing
// qualitative feedback entries. A single caser avoids re-allocation per
// comparison.
var foldCaser = cases.Fold()

// AggregationEngine combines all ratings for one evaluee in one cycle into a
// single weighted EvaluationResult: per-role scores, a renormalized final
// score, completion tracking, variance-based anomaly detection, and
// aggregated qualitative feedback.
//
// Recompute is a pure transformation over an immutable snapshot. The same
// snapshot and clock always produce the same result, so recomputation is
// idempotent and safe to run in parallel across different evaluees. Within
// one evaluee/cycle, callers must serialize recomputation against new
// submissions (see the application coordinator).
type AggregationEngine struct {
	name   string
	config AggregationConfig
	tracer trace.Tracer
}

// AggregationConfig defines the configuration parameters for the
// AggregationEngine. All fields are validated during engine creation and
// parameter unmarshaling.
type AggregationConfig struct {
	// VarianceThreshold is the score variance above which an evaluee's
	// result is flagged and a fairness alert is emitted. Variance is
	// computed over the raw per-rating averages on the 1-10 scale.
	VarianceThreshold float64 `yaml:"variance_threshold" json:"variance_threshold" validate:"min=0"`

	// VarianceAlertLevel is the severity attached to variance alerts.
	VarianceAlertLevel string `yaml:"variance_alert_level" json:"variance_alert_level" validate:"required,oneof=info warning critical"`

	// FeedbackSimilarity is the similarity ratio (0.0-1.0) at or above
	// which two feedback entries are considered duplicates and only the
	// first is kept. Comparison is case-folded Levenshtein similarity.
	FeedbackSimilarity float64 `yaml:"feedback_similarity" json:"feedback_similarity" validate:"min=0,max=1"`
}

// NewAggregationEngine creates an AggregationEngine with the specified
// configuration. It returns an error if the configuration is invalid.
func NewAggregationEngine(name string, config AggregationConfig) (*AggregationEngine, error) {
	if name == "" {
		return nil, ErrEmptyEngineName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &AggregationEngine{
		name:   name,
		config: config,
		tracer: otel.Tracer("aggregation-engine"),
	}, nil
}

// Name returns the unique identifier for this engine instance.
func (ae *AggregationEngine) Name() string { return ae.name }

// AverageScore returns the mean of every present criterion score in the
// rating: the common criteria plus whichever staff-type-specific criteria
// were submitted. Nil criteria are excluded from both the sum and the
// divisor, so an absent criterion never drags the average toward zero.
func (ae *AggregationEngine) AverageScore(rating domain.EvaluationRating) float64 {
	scores := rating.CriterionScores()
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// ValidateRating checks a submission against the 1-10 criterion ranges and
// verifies that criteria belonging to the other staff type were not
// submitted. It returns a domain.ValidationError describing every failure.
func (ae *AggregationEngine) ValidateRating(rating domain.EvaluationRating, staffType domain.StaffType) error {
	verr := domain.NewValidationError("evaluation_rating")

	if err := validate.Struct(rating); err != nil {
		verr.Add(err.Error())
	}

	academic := []*float64{
		rating.TeachingEffectiveness,
		rating.StudentEngagement,
		rating.CurriculumImplementation,
		rating.ClassroomManagement,
	}
	administrative := []*float64{
		rating.TaskManagement,
		rating.PolicyAdherence,
		rating.InterdepartmentalCommunication,
		rating.ServiceQuality,
	}

	switch staffType {
	case domain.StaffAcademic:
		for _, s := range administrative {
			if s != nil {
				verr.Add("administrative criteria must be null for academic staff")
				break
			}
		}
	case domain.StaffAdministrative:
		for _, s := range academic {
			if s != nil {
				verr.Add("academic criteria must be null for administrative staff")
				break
			}
		}
	default:
		verr.Add(fmt.Sprintf("unknown staff type %q", staffType))
	}

	if verr.HasFailures() {
		return verr
	}
	return nil
}

// Recompute aggregates the snapshot's ratings into the evaluee's
// EvaluationResult and returns any new fairness alerts crossing the
// configured thresholds.
//
// The computation partitions ratings by evaluator role, averages peer
// submissions into a single contribution, weights each present role's score
// by its assignment weight, and renormalizes by the weight sum of the roles
// actually present so a missing rater does not depress the score. Variance
// is computed over the individual raw rating averages, not the weighted
// score; only submissions that contribute to a role score enter it, so a
// duplicate submission for a single-rater role is excluded from the variance
// the same way it is excluded from the score. Alert emission is idempotent: an unresolved alert already present
// in the snapshot suppresses a duplicate for the same evaluee, period, and
// type.
//
// When no rating has been submitted the returned result still carries the
// completion accounting, but FinalScore is nil and the call reports
// domain.ErrIncompleteInput so the caller is told explicitly instead of
// receiving a zero score.
func (ae *AggregationEngine) Recompute(
	ctx context.Context,
	snap domain.EvalueeSnapshot,
	now time.Time,
) (domain.EvaluationResult, []domain.FairnessMetric, error) {
	_, span := ae.tracer.Start(ctx, "AggregationEngine.Recompute",
		trace.WithAttributes(
			attribute.String("engine.id", ae.name),
			attribute.String("cycle.period", snap.Cycle.Period),
			attribute.String("evaluee.id", snap.EvalueeID.String()),
			attribute.Int("ratings.count", len(snap.Ratings)),
		),
	)
	defer span.End()

	result := domain.EvaluationResult{
		ID:                resultID(snap.Cycle.ID, snap.EvalueeID),
		CycleID:           snap.Cycle.ID,
		EvalueeID:         snap.EvalueeID,
		EvalueeName:       snap.EvalueeName,
		EvalueeDepartment: snap.EvalueeDepartment,
		EvalueeStaffType:  snap.EvalueeStaffType,
		CalculatedAt:      now,
	}

	ratings := sortedRatings(snap.Ratings)

	// Partition by evaluator role. Peer submissions average into one
	// contribution; every other role takes its earliest submission.
	byRole := make(map[domain.EvaluatorRole][]domain.EvaluationRating, len(domain.EvaluatorRoles))
	for _, r := range ratings {
		byRole[r.EvaluatorRole] = append(byRole[r.EvaluatorRole], r)
	}

	roleScores := make(map[domain.EvaluatorRole]float64, len(byRole))
	var contributing []float64
	for _, role := range domain.EvaluatorRoles {
		submissions := byRole[role]
		if len(submissions) == 0 {
			continue
		}
		if role == domain.RolePeer {
			var sum float64
			for _, r := range submissions {
				avg := ae.AverageScore(r)
				contributing = append(contributing, avg)
				sum += avg
			}
			roleScores[role] = sum / float64(len(submissions))
		} else {
			// Single-rater roles take the earliest submission; a later
			// duplicate contributes neither to the role score nor to the
			// variance.
			avg := ae.AverageScore(submissions[0])
			contributing = append(contributing, avg)
			roleScores[role] = avg
		}
	}
	applyRoleScores(&result, roleScores)

	// Weighted final score, renormalized over the roles actually present.
	var weightedSum, weightTotal float64
	weights := roleWeights(snap.Assignments)
	for role, score := range roleScores {
		w := weights[role]
		weightedSum += score * w
		weightTotal += w
	}
	if weightTotal > 0 {
		final := weightedSum / weightTotal
		result.FinalScore = &final
	}

	// Completion tracking. Expected counts assignments; received counts
	// distinct roles with a submission.
	result.TotalExpectedRatings = len(snap.Assignments)
	result.ReceivedRatings = len(roleScores)
	if result.TotalExpectedRatings > 0 {
		pct := float64(result.ReceivedRatings) / float64(result.TotalExpectedRatings) * 100
		result.CompletionPercentage = clampPercentage(pct)
	}

	// Variance over the individual raw averages.
	var alerts []domain.FairnessMetric
	if len(contributing) >= 2 {
		v := populationVariance(contributing)
		result.ScoreVariance = &v
		if v > ae.config.VarianceThreshold {
			result.HasHighVariance = true
			if !hasOpenAlert(snap.OpenAlerts, domain.AlertTypeVariance, snap.Cycle.Period, snap.EvalueeID) {
				alerts = append(alerts, ae.varianceAlert(snap, v, now))
			}
		}
	}

	result.AggregatedStrengths = ae.aggregateFeedback(ratings, func(r domain.EvaluationRating) string { return r.Strengths })
	result.AggregatedImprovements = ae.aggregateFeedback(ratings, func(r domain.EvaluationRating) string { return r.Improvements })

	span.SetAttributes(
		attribute.Int("result.received_ratings", result.ReceivedRatings),
		attribute.Float64("result.completion_percentage", result.CompletionPercentage),
		attribute.Bool("result.high_variance", result.HasHighVariance),
		attribute.Int("alerts.emitted", len(alerts)),
	)

	if len(contributing) == 0 {
		err := fmt.Errorf("evaluee %s in cycle %s has no contributing ratings: %w",
			snap.EvalueeID, snap.Cycle.ID, domain.ErrIncompleteInput)
		span.RecordError(err)
		return result, nil, err
	}
	if result.FinalScore != nil {
		span.SetAttributes(attribute.Float64("result.final_score", *result.FinalScore))
	}

	return result, alerts, nil
}

// Release stamps the result as released to the evaluee. Releasing an
// already-released result is a no-op that returns the existing record; a
// result may only be released once its cycle is closed and a final score
// exists.
func (ae *AggregationEngine) Release(
	result domain.EvaluationResult,
	cycle domain.EvaluationCycle,
	now time.Time,
) (domain.EvaluationResult, error) {
	if result.Released() {
		return result, nil
	}
	if cycle.Status != domain.CycleClosed && cycle.Status != domain.CycleArchived {
		return result, fmt.Errorf("cycle %s is %s, results release only after close: %w",
			cycle.ID, cycle.Status, domain.ErrInvalidTransition)
	}
	if result.FinalScore == nil {
		return result, fmt.Errorf("result %s has no final score: %w", result.ID, domain.ErrIncompleteInput)
	}
	released := now
	result.ReleasedAt = &released
	return result, nil
}

// aggregateFeedback concatenates distinct, non-empty feedback entries in
// deterministic rating order. Near-duplicates are suppressed by case-folded
// Levenshtein similarity at the configured threshold.
func (ae *AggregationEngine) aggregateFeedback(
	ratings []domain.EvaluationRating,
	field func(domain.EvaluationRating) string,
) string {
	var kept []string
	var folded []string
	for _, r := range ratings {
		entry := strings.TrimSpace(field(r))
		if entry == "" {
			continue
		}
		candidate := foldCaser.String(entry)
		duplicate := false
		for _, existing := range folded {
			if similarity(candidate, existing) >= ae.config.FeedbackSimilarity {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, entry)
		folded = append(folded, candidate)
	}
	return strings.Join(kept, "\n")
}

func (ae *AggregationEngine) varianceAlert(snap domain.EvalueeSnapshot, variance float64, now time.Time) domain.FairnessMetric {
	return domain.FairnessMetric{
		ID:     uuid.New(),
		Type:   domain.AlertTypeVariance,
		Period: snap.Cycle.Period,
		Data: map[string]any{
			"evaluee_id":   snap.EvalueeID.String(),
			"evaluee_name": snap.EvalueeName,
			"cycle_id":     snap.Cycle.ID.String(),
			"variance":     variance,
			"threshold":    ae.config.VarianceThreshold,
		},
		AlertLevel: ae.config.VarianceAlertLevel,
		AlertMessage: fmt.Sprintf("rating variance %.2f for %s exceeds threshold %.2f",
			variance, snap.EvalueeName, ae.config.VarianceThreshold),
		CreatedAt: now,
	}
}

// Validate checks if the engine is properly configured.
func (ae *AggregationEngine) Validate() error {
	if err := validate.Struct(ae.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML parameters into the engine's config
// with strict field checking.
func (ae *AggregationEngine) UnmarshalParameters(params yaml.Node) error {
	var config AggregationConfig
	if err := decodeStrict(params, &config); err != nil {
		return err
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	ae.config = config
	return nil
}

// DefaultAggregationConfig returns an AggregationConfig with sensible
// defaults: variance threshold 4.0 on the 1-10 scale, warning severity, and
// a 0.9 feedback similarity cutoff.
func DefaultAggregationConfig() AggregationConfig {
	return AggregationConfig{
		VarianceThreshold:  4.0,
		VarianceAlertLevel: domain.AlertLevelWarning,
		FeedbackSimilarity: 0.9,
	}
}

// resultID derives the deterministic result identity for a (cycle, evaluee)
// pair, so idempotent recomputation always addresses the same record.
func resultID(cycleID, evalueeID uuid.UUID) uuid.UUID {
	name := make([]byte, 0, 32)
	name = append(name, cycleID[:]...)
	name = append(name, evalueeID[:]...)
	return uuid.NewSHA1(uuid.NameSpaceOID, name)
}

// sortedRatings returns a copy ordered by role, submission time, then ID,
// so aggregation output is invariant under permutation of the input slice.
func sortedRatings(ratings []domain.EvaluationRating) []domain.EvaluationRating {
	order := make(map[domain.EvaluatorRole]int, len(domain.EvaluatorRoles))
	for i, role := range domain.EvaluatorRoles {
		order[role] = i
	}
	sorted := make([]domain.EvaluationRating, len(ratings))
	copy(sorted, ratings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if order[sorted[i].EvaluatorRole] != order[sorted[j].EvaluatorRole] {
			return order[sorted[i].EvaluatorRole] < order[sorted[j].EvaluatorRole]
		}
		if !sorted[i].SubmittedAt.Equal(sorted[j].SubmittedAt) {
			return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted
}

// roleWeights extracts the per-role weight from the assignment set. When a
// role appears on multiple assignments (peers), the largest weight is used,
// which keeps the choice independent of assignment order.
func roleWeights(assignments []domain.Evaluation) map[domain.EvaluatorRole]float64 {
	weights := make(map[domain.EvaluatorRole]float64, len(domain.EvaluatorRoles))
	for _, a := range assignments {
		if a.Weight > weights[a.EvaluatorRole] {
			weights[a.EvaluatorRole] = a.Weight
		}
	}
	return weights
}

func applyRoleScores(result *domain.EvaluationResult, scores map[domain.EvaluatorRole]float64) {
	for role, score := range scores {
		s := score
		switch role {
		case domain.RoleSelf:
			result.SelfScore = &s
		case domain.RolePeer:
			result.PeerScoresAvg = &s
		case domain.RoleSupervisor:
			result.SupervisorScore = &s
		case domain.RoleCEO:
			result.CEOScore = &s
		case domain.RolePCHead:
			result.PCHeadScore = &s
		}
	}
}

// populationVariance computes the population variance of the values.
func populationVariance(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

func clampPercentage(pct float64) float64 {
	return math.Min(100, math.Max(0, pct))
}

func hasOpenAlert(alerts []domain.FairnessMetric, alertType, period string, evalueeID uuid.UUID) bool {
	for _, a := range alerts {
		if a.Resolved || a.Type != alertType || a.Period != period {
			continue
		}
		if id, ok := a.Data["evaluee_id"].(string); ok && id == evalueeID.String() {
			return true
		}
	}
	return false
}

// similarity returns the normalized Levenshtein similarity between two
// already case-folded strings: 1.0 for identical, 0.0 for maximally
// dissimilar.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	s := 1.0 - float64(distance)/float64(maxLen)
	if s < 0 {
		return 0
	}
	return s
}
