package engines

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-merit/internal/domain"
)

// EligibilityEngine determines whether an employee may currently be
// nominated or awarded, and locks eligibility for a cooldown window after a
// win so recognition rotates instead of concentrating on repeat winners.
//
// The engine operates on EligibilityTracking value snapshots and returns
// updated copies; it never touches storage.
type EligibilityEngine struct {
	name   string
	config RotationConfig
}

// RotationConfig defines the configuration parameters for the
// EligibilityEngine.
type RotationConfig struct {
	// RotationDays is the cooldown window applied after an award grant,
	// during which the recipient is ineligible for further recognition.
	RotationDays int `yaml:"rotation_days" json:"rotation_days" validate:"min=1,max=365"`
}

// NewEligibilityEngine creates an EligibilityEngine with the specified
// configuration. It returns an error if the configuration is invalid.
func NewEligibilityEngine(name string, config RotationConfig) (*EligibilityEngine, error) {
	if name == "" {
		return nil, ErrEmptyEngineName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &EligibilityEngine{name: name, config: config}, nil
}

// Name returns the unique identifier for this engine instance.
func (ee *EligibilityEngine) Name() string { return ee.name }

// IsEligible reports whether the employee may be nominated or awarded at the
// given instant: false while the administrative ineligibility override is
// set or while the rotation lock is in effect, true otherwise. The lock
// boundary itself is eligible: an employee locked until t is eligible at t.
func (ee *EligibilityEngine) IsEligible(tracking domain.EligibilityTracking, asOf time.Time) bool {
	if tracking.Ineligible {
		return false
	}
	if tracking.RotationLockUntil != nil && asOf.Before(*tracking.RotationLockUntil) {
		return false
	}
	return true
}

// RecordAward updates the tracking record after an award grant: it stamps
// the award date and type, arms the rotation lock for the configured window,
// and increments the matching lifetime win counter.
//
// Precondition: call exactly once per grant. The engine does not guard
// against double-recording the same award; that is a caller error.
func (ee *EligibilityEngine) RecordAward(
	tracking domain.EligibilityTracking,
	awardType domain.AwardType,
	now time.Time,
) domain.EligibilityTracking {
	granted := now
	lockUntil := now.AddDate(0, 0, ee.config.RotationDays)

	tracking.LastAwardDate = &granted
	tracking.LastAwardType = &awardType
	tracking.RotationLockUntil = &lockUntil

	switch awardType {
	case domain.AwardEmployeeOfMonth:
		tracking.TotalEOMWins++
	case domain.AwardEmployeeOfYear:
		tracking.TotalEOYWins++
	}

	tracking.UpdatedAt = now
	return tracking
}

// SetIneligible applies the administrative ineligibility override with the
// given reason. The override is independent of the rotation lock.
func (ee *EligibilityEngine) SetIneligible(
	tracking domain.EligibilityTracking,
	reason string,
	now time.Time,
) domain.EligibilityTracking {
	tracking.Ineligible = true
	tracking.IneligibilityReason = reason
	tracking.UpdatedAt = now
	return tracking
}

// SetEligible clears the administrative override and any reason text.
// It does not clear the rotation lock; that expires on its own.
func (ee *EligibilityEngine) SetEligible(
	tracking domain.EligibilityTracking,
	now time.Time,
) domain.EligibilityTracking {
	tracking.Ineligible = false
	tracking.IneligibilityReason = ""
	tracking.UpdatedAt = now
	return tracking
}

// PolicyViolationCode classifies why a nomination submission was refused.
type PolicyViolationCode string

// Nomination policy violation codes.
const (
	ViolationDuplicate    PolicyViolationCode = "duplicate"
	ViolationRotationLock PolicyViolationCode = "rotation_lock"
	ViolationIneligible   PolicyViolationCode = "ineligible"
)

// PolicyViolation is one reason a nomination submission cannot proceed.
type PolicyViolation struct {
	Code    PolicyViolationCode `json:"code"`
	Message string              `json:"message"`
}

// NominationContext carries the recognition history consulted when
// validating a new nomination.
type NominationContext struct {
	// Existing holds the period's nominations so far.
	Existing []domain.Nomination

	// Tracking is the nominee's eligibility record, zero-valued when the
	// nominee has never been tracked.
	Tracking domain.EligibilityTracking
}

// ValidateNomination checks a proposed nomination against the recognition
// policy: no duplicate active nomination for the same nominee and category,
// no nomination while rotation-locked, and no nomination while the
// administrative override is set. It returns every violation found so the
// caller can report them together; an empty slice means the nomination may
// proceed.
func (ee *EligibilityEngine) ValidateNomination(
	nomination domain.Nomination,
	nctx NominationContext,
	asOf time.Time,
) []PolicyViolation {
	var violations []PolicyViolation

	nominee := strings.TrimSpace(nomination.NomineeName)
	for _, existing := range nctx.Existing {
		if existing.Status == domain.NominationRejected {
			continue
		}
		if existing.NomineeID == nomination.NomineeID && existing.Category == nomination.Category {
			violations = append(violations, PolicyViolation{
				Code:    ViolationDuplicate,
				Message: fmt.Sprintf("%s already has an active nomination in this category", nominee),
			})
			break
		}
	}

	if nctx.Tracking.RotationLockUntil != nil && asOf.Before(*nctx.Tracking.RotationLockUntil) {
		violations = append(violations, PolicyViolation{
			Code: ViolationRotationLock,
			Message: fmt.Sprintf("%s is within the %d-day rotation lock period",
				nominee, ee.config.RotationDays),
		})
	}

	if nctx.Tracking.Ineligible {
		msg := nctx.Tracking.IneligibilityReason
		if msg == "" {
			msg = fmt.Sprintf("%s is currently not eligible for nominations", nominee)
		}
		violations = append(violations, PolicyViolation{
			Code:    ViolationIneligible,
			Message: msg,
		})
	}

	return violations
}

// Validate checks if the engine is properly configured.
func (ee *EligibilityEngine) Validate() error {
	if err := validate.Struct(ee.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML parameters into the engine's config
// with strict field checking.
func (ee *EligibilityEngine) UnmarshalParameters(params yaml.Node) error {
	var config RotationConfig
	if err := decodeStrict(params, &config); err != nil {
		return err
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	ee.config = config
	return nil
}

// DefaultRotationConfig returns a RotationConfig with the standard 90-day
// rotation window.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{RotationDays: 90}
}
