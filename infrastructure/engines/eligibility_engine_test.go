package engines

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/testutils"
)

func newEligibilityEngine(t *testing.T) *EligibilityEngine {
	t.Helper()
	engine, err := NewEligibilityEngine("test", DefaultRotationConfig())
	require.NoError(t, err)
	return engine
}

func tracking() domain.EligibilityTracking {
	return domain.EligibilityTracking{
		ID:           uuid.New(),
		EmployeeID:   testutils.Evaluee.ID,
		EmployeeName: testutils.Evaluee.Name,
	}
}

func TestEligibilityEngine_RotationLock(t *testing.T) {
	engine := newEligibilityEngine(t)
	t0 := testutils.BaseTime

	updated := engine.RecordAward(tracking(), domain.AwardEmployeeOfMonth, t0)

	require.NotNil(t, updated.LastAwardDate)
	assert.Equal(t, t0, *updated.LastAwardDate)
	require.NotNil(t, updated.LastAwardType)
	assert.Equal(t, domain.AwardEmployeeOfMonth, *updated.LastAwardType)
	require.NotNil(t, updated.RotationLockUntil)
	assert.Equal(t, t0.AddDate(0, 0, 90), *updated.RotationLockUntil)
	assert.Equal(t, 1, updated.TotalEOMWins)
	assert.Equal(t, 0, updated.TotalEOYWins)

	// Ineligible throughout [t0, t0+90d), eligible from the boundary on.
	assert.False(t, engine.IsEligible(updated, t0))
	assert.False(t, engine.IsEligible(updated, t0.AddDate(0, 0, 45)))
	assert.False(t, engine.IsEligible(updated, t0.AddDate(0, 0, 90).Add(-time.Second)))
	assert.True(t, engine.IsEligible(updated, t0.AddDate(0, 0, 90)))
	assert.True(t, engine.IsEligible(updated, t0.AddDate(0, 0, 91)))
}

func TestEligibilityEngine_RecordAward_counters(t *testing.T) {
	engine := newEligibilityEngine(t)

	record := engine.RecordAward(tracking(), domain.AwardEmployeeOfYear, testutils.BaseTime)
	assert.Equal(t, 0, record.TotalEOMWins)
	assert.Equal(t, 1, record.TotalEOYWins)

	// Special recognition arms the lock but counts toward neither program.
	record = engine.RecordAward(record, domain.AwardSpecialRecognition, testutils.BaseTime.AddDate(1, 0, 0))
	assert.Equal(t, 0, record.TotalEOMWins)
	assert.Equal(t, 1, record.TotalEOYWins)
	require.NotNil(t, record.RotationLockUntil)
	assert.Equal(t, testutils.BaseTime.AddDate(1, 0, 90), *record.RotationLockUntil)
}

func TestEligibilityEngine_AdministrativeOverride(t *testing.T) {
	engine := newEligibilityEngine(t)
	now := testutils.BaseTime

	flagged := engine.SetIneligible(tracking(), "pending disciplinary review", now)
	assert.True(t, flagged.Ineligible)
	assert.Equal(t, "pending disciplinary review", flagged.IneligibilityReason)
	assert.False(t, engine.IsEligible(flagged, now))

	cleared := engine.SetEligible(flagged, now.Add(time.Hour))
	assert.False(t, cleared.Ineligible)
	assert.Empty(t, cleared.IneligibilityReason)
	assert.True(t, engine.IsEligible(cleared, now.Add(time.Hour)))
}

func TestEligibilityEngine_OverrideIndependentOfLock(t *testing.T) {
	engine := newEligibilityEngine(t)
	t0 := testutils.BaseTime

	locked := engine.RecordAward(tracking(), domain.AwardEmployeeOfMonth, t0)
	overridden := engine.SetIneligible(locked, "left mid-year", t0)

	// Clearing the override does not clear the rotation lock.
	cleared := engine.SetEligible(overridden, t0.AddDate(0, 0, 10))
	assert.False(t, engine.IsEligible(cleared, t0.AddDate(0, 0, 10)))
	assert.True(t, engine.IsEligible(cleared, t0.AddDate(0, 0, 90)))
}

func TestEligibilityEngine_ValidateNomination(t *testing.T) {
	engine := newEligibilityEngine(t)
	now := testutils.BaseTime

	nomination := domain.Nomination{
		ID:          uuid.New(),
		NomineeID:   testutils.Evaluee.ID,
		NomineeName: testutils.Evaluee.Name,
		Category:    domain.CategoryTeamwork,
		Period:      "2024-12",
		Status:      domain.NominationPending,
	}

	t.Run("clean context passes", func(t *testing.T) {
		violations := engine.ValidateNomination(nomination, NominationContext{Tracking: tracking()}, now)
		assert.Empty(t, violations)
	})

	t.Run("active duplicate in the same category is refused", func(t *testing.T) {
		existing := nomination
		existing.ID = uuid.New()
		existing.Status = domain.NominationVoting
		violations := engine.ValidateNomination(nomination, NominationContext{
			Existing: []domain.Nomination{existing},
			Tracking: tracking(),
		}, now)
		require.Len(t, violations, 1)
		assert.Equal(t, ViolationDuplicate, violations[0].Code)
	})

	t.Run("rejected nomination does not block", func(t *testing.T) {
		existing := nomination
		existing.ID = uuid.New()
		existing.Status = domain.NominationRejected
		violations := engine.ValidateNomination(nomination, NominationContext{
			Existing: []domain.Nomination{existing},
			Tracking: tracking(),
		}, now)
		assert.Empty(t, violations)
	})

	t.Run("different category does not block", func(t *testing.T) {
		existing := nomination
		existing.ID = uuid.New()
		existing.Category = domain.CategoryInnovation
		violations := engine.ValidateNomination(nomination, NominationContext{
			Existing: []domain.Nomination{existing},
			Tracking: tracking(),
		}, now)
		assert.Empty(t, violations)
	})

	t.Run("rotation lock and override stack", func(t *testing.T) {
		locked := engine.RecordAward(tracking(), domain.AwardEmployeeOfMonth, now)
		locked = engine.SetIneligible(locked, "on leave", now)
		violations := engine.ValidateNomination(nomination, NominationContext{Tracking: locked}, now.AddDate(0, 0, 30))
		require.Len(t, violations, 2)
		assert.Equal(t, ViolationRotationLock, violations[0].Code)
		assert.Equal(t, ViolationIneligible, violations[1].Code)
		assert.Equal(t, "on leave", violations[1].Message)
	})
}

func TestNewEligibilityEngine_validation(t *testing.T) {
	_, err := NewEligibilityEngine("", DefaultRotationConfig())
	assert.ErrorIs(t, err, ErrEmptyEngineName)

	_, err = NewEligibilityEngine("test", RotationConfig{RotationDays: 0})
	assert.Error(t, err)

	_, err = NewEligibilityEngine("test", RotationConfig{RotationDays: 400})
	assert.Error(t, err)
}
