package engines

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/testutils"
)

func newAggregationEngine(t *testing.T) *AggregationEngine {
	t.Helper()
	engine, err := NewAggregationEngine("test", DefaultAggregationConfig())
	require.NoError(t, err)
	return engine
}

func TestNewAggregationEngine_validation(t *testing.T) {
	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := NewAggregationEngine("", DefaultAggregationConfig())
		assert.ErrorIs(t, err, ErrEmptyEngineName)
	})

	t.Run("unknown alert level is rejected", func(t *testing.T) {
		config := DefaultAggregationConfig()
		config.VarianceAlertLevel = "panic"
		_, err := NewAggregationEngine("test", config)
		assert.Error(t, err)
	})

	t.Run("negative variance threshold is rejected", func(t *testing.T) {
		config := DefaultAggregationConfig()
		config.VarianceThreshold = -1
		_, err := NewAggregationEngine("test", config)
		assert.Error(t, err)
	})
}

func TestAggregationEngine_AverageScore(t *testing.T) {
	engine := newAggregationEngine(t)

	tests := []struct {
		name     string
		rating   domain.EvaluationRating
		expected float64
	}{
		{
			name:     "academic rating averages specific and common criteria",
			rating:   testutils.AcademicRating(domain.RoleSelf, 8),
			expected: 8,
		},
		{
			name:     "administrative rating averages its own criteria set",
			rating:   testutils.AdministrativeRating(domain.RoleSupervisor, 6.5),
			expected: 6.5,
		},
		{
			name: "nil criteria are excluded from the divisor",
			rating: domain.EvaluationRating{
				TeachingEffectiveness:   testutils.Float(10),
				Collaboration:           4,
				Innovation:              4,
				Attendance:              4,
				ProfessionalDevelopment: 4,
			},
			// mean of {10, 4, 4, 4, 4}, not of 12 fields.
			expected: 5.2,
		},
		{
			name: "common criteria only",
			rating: domain.EvaluationRating{
				Collaboration:           7,
				Innovation:              8,
				Attendance:              9,
				ProfessionalDevelopment: 10,
			},
			expected: 8.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, engine.AverageScore(tt.rating), 0.0001)
		})
	}
}

func TestAggregationEngine_Recompute_weightedFinalScore(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RoleSelf, 0.1),
		testutils.Assignment(domain.RolePeer, 0.2),
		testutils.Assignment(domain.RoleSupervisor, 0.3),
	}
	ratings := []domain.EvaluationRating{
		testutils.AcademicRating(domain.RoleSelf, 8),
		testutils.AcademicRating(domain.RolePeer, 7),
		testutils.AcademicRating(domain.RoleSupervisor, 9),
	}
	snap := testutils.Snapshot(testutils.ActiveCycle(), assignments, ratings)

	result, alerts, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// Renormalized: (8*0.1 + 7*0.2 + 9*0.3) / (0.1+0.2+0.3) = 8.1667.
	require.NotNil(t, result.FinalScore)
	assert.InDelta(t, 8.1667, *result.FinalScore, 0.001)

	require.NotNil(t, result.SelfScore)
	assert.InDelta(t, 8, *result.SelfScore, 0.0001)
	require.NotNil(t, result.PeerScoresAvg)
	assert.InDelta(t, 7, *result.PeerScoresAvg, 0.0001)
	require.NotNil(t, result.SupervisorScore)
	assert.InDelta(t, 9, *result.SupervisorScore, 0.0001)
	assert.Nil(t, result.CEOScore)
	assert.Nil(t, result.PCHeadScore)

	assert.Equal(t, 3, result.TotalExpectedRatings)
	assert.Equal(t, 3, result.ReceivedRatings)
	assert.InDelta(t, 100, result.CompletionPercentage, 0.0001)
}

func TestAggregationEngine_Recompute_peerRatingsAverage(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RolePeer, 0.2),
		testutils.Assignment(domain.RolePeer, 0.2),
	}
	ratings := []domain.EvaluationRating{
		testutils.AcademicRating(domain.RolePeer, 6),
		testutils.AcademicRating(domain.RolePeer, 8),
	}
	snap := testutils.Snapshot(testutils.ActiveCycle(), assignments, ratings)

	result, _, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.NoError(t, err)

	require.NotNil(t, result.PeerScoresAvg)
	assert.InDelta(t, 7, *result.PeerScoresAvg, 0.0001)
	// With a single contributing role the final equals the peer average.
	require.NotNil(t, result.FinalScore)
	assert.InDelta(t, 7, *result.FinalScore, 0.0001)
	// Two assignments, one distinct role received.
	assert.Equal(t, 2, result.TotalExpectedRatings)
	assert.Equal(t, 1, result.ReceivedRatings)
	assert.InDelta(t, 50, result.CompletionPercentage, 0.0001)
}

func TestAggregationEngine_Recompute_missingRaterDoesNotDepressScore(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RoleSelf, 0.1),
		testutils.Assignment(domain.RoleSupervisor, 0.3),
		testutils.PendingAssignment(domain.RoleCEO, 0.4),
	}
	ratings := []domain.EvaluationRating{
		testutils.AcademicRating(domain.RoleSelf, 9),
		testutils.AcademicRating(domain.RoleSupervisor, 9),
	}
	snap := testutils.Snapshot(testutils.ActiveCycle(), assignments, ratings)

	result, _, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.NoError(t, err)

	// Every submitted rating is a 9, so the renormalized final is 9 even
	// though the CEO slot (weight 0.4) is empty.
	require.NotNil(t, result.FinalScore)
	assert.InDelta(t, 9, *result.FinalScore, 0.0001)
}

func TestAggregationEngine_Recompute_orderInvariance(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RoleSelf, 0.1),
		testutils.Assignment(domain.RolePeer, 0.2),
		testutils.Assignment(domain.RolePeer, 0.2),
		testutils.Assignment(domain.RoleSupervisor, 0.3),
	}
	first := testutils.AcademicRating(domain.RoleSelf, 8)
	first.Strengths = "Strong curriculum design"
	second := testutils.AcademicRating(domain.RolePeer, 6)
	second.Strengths = "Great collaborator"
	third := testutils.AcademicRating(domain.RolePeer, 9)
	fourth := testutils.AcademicRating(domain.RoleSupervisor, 7)

	forward := testutils.Snapshot(testutils.ActiveCycle(), assignments,
		[]domain.EvaluationRating{first, second, third, fourth})
	reversed := testutils.Snapshot(testutils.ActiveCycle(), assignments,
		[]domain.EvaluationRating{fourth, third, second, first})

	a, _, err := engine.Recompute(context.Background(), forward, testutils.BaseTime)
	require.NoError(t, err)
	b, _, err := engine.Recompute(context.Background(), reversed, testutils.BaseTime)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestAggregationEngine_Recompute_idempotent(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RoleSelf, 0.1),
		testutils.Assignment(domain.RoleSupervisor, 0.3),
	}
	ratings := []domain.EvaluationRating{
		testutils.AcademicRating(domain.RoleSelf, 8),
		testutils.AcademicRating(domain.RoleSupervisor, 7),
	}
	snap := testutils.Snapshot(testutils.ActiveCycle(), assignments, ratings)

	first, _, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.NoError(t, err)
	second, _, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// The result identity is stable across recomputations as well.
	assert.Equal(t, first.ID, second.ID)
}

func TestAggregationEngine_Recompute_completionMonotonic(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RoleSelf, 0.1),
		testutils.Assignment(domain.RolePeer, 0.2),
		testutils.Assignment(domain.RoleSupervisor, 0.3),
		testutils.Assignment(domain.RoleCEO, 0.4),
	}
	ratings := []domain.EvaluationRating{
		testutils.AcademicRating(domain.RoleSelf, 8),
		testutils.AcademicRating(domain.RolePeer, 7),
		testutils.AcademicRating(domain.RoleSupervisor, 9),
		testutils.AcademicRating(domain.RoleCEO, 8),
	}

	previous := 0.0
	for n := 0; n <= len(ratings); n++ {
		snap := testutils.Snapshot(testutils.ActiveCycle(), assignments, ratings[:n])
		result, _, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
		if n == 0 {
			require.ErrorIs(t, err, domain.ErrIncompleteInput)
		} else {
			require.NoError(t, err)
		}
		assert.GreaterOrEqual(t, result.CompletionPercentage, previous)
		assert.GreaterOrEqual(t, result.CompletionPercentage, 0.0)
		assert.LessOrEqual(t, result.CompletionPercentage, 100.0)
		previous = result.CompletionPercentage
	}
}

func TestAggregationEngine_Recompute_zeroRatings(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.PendingAssignment(domain.RoleSelf, 0.1),
		testutils.PendingAssignment(domain.RoleSupervisor, 0.3),
	}
	snap := testutils.Snapshot(testutils.ActiveCycle(), assignments, nil)

	result, alerts, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.ErrorIs(t, err, domain.ErrIncompleteInput)
	assert.Empty(t, alerts)

	// The score is undefined, never defaulted to zero.
	assert.Nil(t, result.FinalScore)
	assert.Equal(t, 2, result.TotalExpectedRatings)
	assert.Equal(t, 0, result.ReceivedRatings)
	assert.Zero(t, result.CompletionPercentage)
}

func TestAggregationEngine_Recompute_varianceAlert(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RoleSelf, 0.1),
		testutils.Assignment(domain.RoleSupervisor, 0.3),
	}
	ratings := []domain.EvaluationRating{
		testutils.AcademicRating(domain.RoleSelf, 2),
		testutils.AcademicRating(domain.RoleSupervisor, 9),
	}
	snap := testutils.Snapshot(testutils.ActiveCycle(), assignments, ratings)

	result, alerts, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.NoError(t, err)

	// Population variance of {2, 9} is 12.25, over the 4.0 threshold.
	require.NotNil(t, result.ScoreVariance)
	assert.InDelta(t, 12.25, *result.ScoreVariance, 0.0001)
	assert.True(t, result.HasHighVariance)

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, domain.AlertTypeVariance, alert.Type)
	assert.Equal(t, domain.AlertLevelWarning, alert.AlertLevel)
	assert.Equal(t, "2024-12", alert.Period)
	assert.Equal(t, testutils.Evaluee.ID.String(), alert.Data["evaluee_id"])
	assert.InDelta(t, 12.25, alert.Data["variance"].(float64), 0.0001)

	t.Run("unresolved alert suppresses a duplicate", func(t *testing.T) {
		snap.OpenAlerts = alerts
		again, newAlerts, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
		require.NoError(t, err)
		assert.True(t, again.HasHighVariance)
		assert.Empty(t, newAlerts)
	})

	t.Run("resolved alert allows a fresh one", func(t *testing.T) {
		resolved := alerts[0]
		resolved.Resolved = true
		snap.OpenAlerts = []domain.FairnessMetric{resolved}
		_, newAlerts, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
		require.NoError(t, err)
		assert.Len(t, newAlerts, 1)
	})
}

func TestAggregationEngine_Recompute_duplicateSingleRaterExcludedFromVariance(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RoleSelf, 0.1),
		testutils.Assignment(domain.RoleSupervisor, 0.3),
	}

	early := testutils.AcademicRating(domain.RoleSupervisor, 8)
	early.SubmittedAt = testutils.BaseTime.AddDate(0, 0, 5)
	duplicate := testutils.AcademicRating(domain.RoleSupervisor, 2)
	ratings := []domain.EvaluationRating{
		testutils.AcademicRating(domain.RoleSelf, 8),
		duplicate,
		early,
	}
	snap := testutils.Snapshot(testutils.ActiveCycle(), assignments, ratings)

	result, alerts, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.NoError(t, err)

	// The duplicate never reaches the role score, so it must not reach the
	// variance either: only {8, 8} contribute.
	require.NotNil(t, result.SupervisorScore)
	assert.InDelta(t, 8, *result.SupervisorScore, 0.0001)
	require.NotNil(t, result.ScoreVariance)
	assert.InDelta(t, 0, *result.ScoreVariance, 0.0001)
	assert.False(t, result.HasHighVariance)
	assert.Empty(t, alerts)
}

func TestAggregationEngine_Recompute_lowVarianceNoAlert(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RoleSelf, 0.1),
		testutils.Assignment(domain.RoleSupervisor, 0.3),
	}
	ratings := []domain.EvaluationRating{
		testutils.AcademicRating(domain.RoleSelf, 8),
		testutils.AcademicRating(domain.RoleSupervisor, 8.5),
	}
	snap := testutils.Snapshot(testutils.ActiveCycle(), assignments, ratings)

	result, alerts, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.NoError(t, err)
	assert.False(t, result.HasHighVariance)
	assert.Empty(t, alerts)
}

func TestAggregationEngine_Recompute_feedbackAggregation(t *testing.T) {
	engine := newAggregationEngine(t)

	assignments := []domain.Evaluation{
		testutils.Assignment(domain.RoleSelf, 0.1),
		testutils.Assignment(domain.RolePeer, 0.2),
		testutils.Assignment(domain.RoleSupervisor, 0.3),
	}
	self := testutils.AcademicRating(domain.RoleSelf, 8)
	self.Strengths = "Excellent classroom management"
	self.Improvements = "More peer mentoring"
	peer := testutils.AcademicRating(domain.RolePeer, 8)
	peer.Strengths = "excellent classroom management" // case-only duplicate
	supervisor := testutils.AcademicRating(domain.RoleSupervisor, 8)
	supervisor.Strengths = "Strong curriculum planning"
	supervisor.Improvements = "   " // blank entries are dropped

	snap := testutils.Snapshot(testutils.ActiveCycle(), assignments,
		[]domain.EvaluationRating{self, peer, supervisor})

	result, _, err := engine.Recompute(context.Background(), snap, testutils.BaseTime)
	require.NoError(t, err)

	assert.Equal(t, "Excellent classroom management\nStrong curriculum planning", result.AggregatedStrengths)
	assert.Equal(t, "More peer mentoring", result.AggregatedImprovements)
}

func TestAggregationEngine_Release(t *testing.T) {
	engine := newAggregationEngine(t)
	now := testutils.BaseTime.AddDate(0, 1, 1)

	score := 8.2
	result := domain.EvaluationResult{FinalScore: &score}

	t.Run("release requires a closed cycle", func(t *testing.T) {
		_, err := engine.Release(result, testutils.ActiveCycle(), now)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("release stamps released_at", func(t *testing.T) {
		released, err := engine.Release(result, testutils.ClosedCycle(), now)
		require.NoError(t, err)
		require.NotNil(t, released.ReleasedAt)
		assert.Equal(t, now, *released.ReleasedAt)
	})

	t.Run("re-release is a no-op", func(t *testing.T) {
		released, err := engine.Release(result, testutils.ClosedCycle(), now)
		require.NoError(t, err)
		later, err := engine.Release(released, testutils.ClosedCycle(), now.AddDate(0, 0, 5))
		require.NoError(t, err)
		assert.Equal(t, released.ReleasedAt, later.ReleasedAt)
	})

	t.Run("release without a final score is refused", func(t *testing.T) {
		_, err := engine.Release(domain.EvaluationResult{}, testutils.ClosedCycle(), now)
		assert.ErrorIs(t, err, domain.ErrIncompleteInput)
	})
}

func TestAggregationEngine_ValidateRating(t *testing.T) {
	engine := newAggregationEngine(t)

	t.Run("accepts a well-formed academic rating", func(t *testing.T) {
		err := engine.ValidateRating(testutils.AcademicRating(domain.RoleSelf, 8), domain.StaffAcademic)
		assert.NoError(t, err)
	})

	t.Run("rejects administrative criteria on academic staff", func(t *testing.T) {
		rating := testutils.AcademicRating(domain.RoleSelf, 8)
		rating.ServiceQuality = testutils.Float(7)
		err := engine.ValidateRating(rating, domain.StaffAcademic)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "administrative criteria")
	})

	t.Run("rejects out-of-range scores", func(t *testing.T) {
		rating := testutils.AcademicRating(domain.RoleSelf, 8)
		rating.Collaboration = 11
		err := engine.ValidateRating(rating, domain.StaffAcademic)
		assert.Error(t, err)
	})
}

func TestAggregationEngine_UnmarshalParameters(t *testing.T) {
	engine := newAggregationEngine(t)

	t.Run("valid parameters are applied", func(t *testing.T) {
		var node yaml.Node
		require.NoError(t, yaml.Unmarshal([]byte(
			"variance_threshold: 2.5\nvariance_alert_level: critical\nfeedback_similarity: 0.8\n"), &node))
		require.NoError(t, engine.UnmarshalParameters(*node.Content[0]))
		assert.InDelta(t, 2.5, engine.config.VarianceThreshold, 0.0001)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		var node yaml.Node
		require.NoError(t, yaml.Unmarshal([]byte(
			"variance_treshold: 2.5\nvariance_alert_level: warning\n"), &node))
		assert.Error(t, engine.UnmarshalParameters(*node.Content[0]))
	})
}

func TestResultID_deterministic(t *testing.T) {
	cycle := testutils.ActiveCycle()
	a := resultID(cycle.ID, testutils.Evaluee.ID)
	b := resultID(cycle.ID, testutils.Evaluee.ID)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, resultID(cycle.ID, cycle.ID))
}
