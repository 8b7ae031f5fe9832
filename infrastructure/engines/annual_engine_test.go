package engines

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/testutils"
)

func newAnnualEngine(t *testing.T) *AnnualEngine {
	t.Helper()
	engine, err := NewAnnualEngine("test", DefaultAnnualConfig(), newEligibilityEngine(t))
	require.NoError(t, err)
	return engine
}

func TestAnnualEngine_Score(t *testing.T) {
	engine := newAnnualEngine(t)

	tests := []struct {
		name     string
		mutate   func(*domain.EOYCandidate)
		expected float64
	}{
		{
			name: "full formula with leadership votes",
			mutate: func(c *domain.EOYCandidate) {
				c.EOMWins = 3
				c.AvgMREScore = 9.0
				c.AttendanceRate = 98
				c.CEOVoteScore = testutils.Float(8)
				c.PCHeadVoteScore = testutils.Float(10)
			},
			// 3/12*30 + 9/10*50 + 98/100*10 + ((8+10)/2)/10*10 = 71.3
			expected: 71.3,
		},
		{
			name: "leadership component needs both votes",
			mutate: func(c *domain.EOYCandidate) {
				c.EOMWins = 3
				c.AvgMREScore = 9.0
				c.AttendanceRate = 98
				c.CEOVoteScore = testutils.Float(8)
			},
			expected: 62.3,
		},
		{
			name: "eom wins cap at twelve months",
			mutate: func(c *domain.EOYCandidate) {
				c.EOMWins = 20
				c.AvgMREScore = 10
				c.AttendanceRate = 100
				c.CEOVoteScore = testutils.Float(10)
				c.PCHeadVoteScore = testutils.Float(10)
			},
			expected: 100,
		},
		{
			name: "zero inputs score zero",
			mutate: func(c *domain.EOYCandidate) {
				c.EOMWins = 0
				c.AvgMREScore = 0
				c.AttendanceRate = 0
			},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := testutils.Candidate("Test", 0, 0, 0)
			tt.mutate(&candidate)
			score := engine.Score(candidate)
			assert.InDelta(t, tt.expected, score, 0.0001)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		})
	}
}

func TestAnnualEngine_CheckEligibility(t *testing.T) {
	engine := newAnnualEngine(t)

	base := testutils.Candidate("Test", 3, 9.0, 98)

	tests := []struct {
		name   string
		mutate func(*domain.EOYCandidate)
		meets  bool
	}{
		{"meets all criteria", func(c *domain.EOYCandidate) {}, true},
		{"too few eom wins", func(c *domain.EOYCandidate) { c.EOMWins = 1 }, false},
		{"mre score below floor", func(c *domain.EOYCandidate) { c.AvgMREScore = 8.4 }, false},
		{"attendance below floor", func(c *domain.EOYCandidate) { c.AttendanceRate = 94.9 }, false},
		{"insufficient tenure", func(c *domain.EOYCandidate) { c.TenureMonths = 11 }, false},
		{"disciplinary actions disqualify", func(c *domain.EOYCandidate) { c.HasDisciplinaryActions = true }, false},
		{"boundary values qualify", func(c *domain.EOYCandidate) {
			c.EOMWins = 2
			c.AvgMREScore = 8.5
			c.AttendanceRate = 95.0
			c.TenureMonths = 12
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := base
			tt.mutate(&candidate)
			updated, meets := engine.CheckEligibility(candidate)
			assert.Equal(t, tt.meets, meets)
			assert.Equal(t, tt.meets, updated.MeetsMinimumCriteria)
			// The verdict never mutates the score.
			assert.Nil(t, updated.EOYScore)
		})
	}
}

func TestAnnualEngine_Rank(t *testing.T) {
	engine := newAnnualEngine(t)
	asOf := testutils.BaseTime

	strong := testutils.Candidate("Amara", 4, 9.5, 99)
	middle := testutils.Candidate("Brian", 3, 9.0, 97)
	unqualified := testutils.Candidate("Chloe", 1, 9.9, 99) // below min wins

	t.Run("qualified candidates rank by score descending", func(t *testing.T) {
		ranked := engine.Rank(context.Background(), []domain.EOYCandidate{middle, unqualified, strong}, nil, asOf)

		byName := indexByName(ranked)
		require.NotNil(t, byName["Amara"].Rank)
		assert.Equal(t, 1, *byName["Amara"].Rank)
		assert.True(t, byName["Amara"].IsWinner)

		require.NotNil(t, byName["Brian"].Rank)
		assert.Equal(t, 2, *byName["Brian"].Rank)
		assert.False(t, byName["Brian"].IsWinner)

		assert.Nil(t, byName["Chloe"].Rank)
		assert.False(t, byName["Chloe"].MeetsMinimumCriteria)
		require.NotNil(t, byName["Chloe"].EOYScore)
	})

	t.Run("rotation-locked top candidate is skipped", func(t *testing.T) {
		eligibility := newEligibilityEngine(t)
		locked := eligibility.RecordAward(domain.EligibilityTracking{EmployeeID: strong.EmployeeID}, domain.AwardEmployeeOfYear, asOf.AddDate(0, 0, -10))
		trackings := map[uuid.UUID]domain.EligibilityTracking{strong.EmployeeID: locked}

		ranked := engine.Rank(context.Background(), []domain.EOYCandidate{strong, middle}, trackings, asOf)

		byName := indexByName(ranked)
		// Amara keeps rank 1 but the title passes to the next eligible.
		assert.Equal(t, 1, *byName["Amara"].Rank)
		assert.False(t, byName["Amara"].IsWinner)
		assert.Equal(t, 2, *byName["Brian"].Rank)
		assert.True(t, byName["Brian"].IsWinner)
	})

	t.Run("no winner when every qualified candidate is locked", func(t *testing.T) {
		eligibility := newEligibilityEngine(t)
		trackings := map[uuid.UUID]domain.EligibilityTracking{
			strong.EmployeeID: eligibility.RecordAward(domain.EligibilityTracking{EmployeeID: strong.EmployeeID}, domain.AwardEmployeeOfYear, asOf),
			middle.EmployeeID: eligibility.RecordAward(domain.EligibilityTracking{EmployeeID: middle.EmployeeID}, domain.AwardEmployeeOfMonth, asOf),
		}

		ranked := engine.Rank(context.Background(), []domain.EOYCandidate{strong, middle}, trackings, asOf.AddDate(0, 0, 30))
		for _, c := range ranked {
			assert.False(t, c.IsWinner)
		}
	})

	t.Run("stale winner flags are recomputed", func(t *testing.T) {
		stale := middle
		stale.IsWinner = true
		rank := 7
		stale.Rank = &rank

		ranked := engine.Rank(context.Background(), []domain.EOYCandidate{strong, stale}, nil, asOf)
		byName := indexByName(ranked)
		assert.False(t, byName["Brian"].IsWinner)
		assert.Equal(t, 2, *byName["Brian"].Rank)
	})
}

func indexByName(candidates []domain.EOYCandidate) map[string]domain.EOYCandidate {
	byName := make(map[string]domain.EOYCandidate, len(candidates))
	for _, c := range candidates {
		byName[c.EmployeeName] = c
	}
	return byName
}

func TestNewAnnualEngine_validation(t *testing.T) {
	eligibility := newEligibilityEngine(t)

	_, err := NewAnnualEngine("", DefaultAnnualConfig(), eligibility)
	assert.ErrorIs(t, err, ErrEmptyEngineName)

	_, err = NewAnnualEngine("test", DefaultAnnualConfig(), nil)
	assert.Error(t, err)

	config := DefaultAnnualConfig()
	config.MaxCountedEOMWins = 0
	_, err = NewAnnualEngine("test", config, eligibility)
	assert.Error(t, err)
}
