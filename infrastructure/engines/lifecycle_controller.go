package engines

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-merit/internal/domain"
)

// LifecycleController governs when an evaluation cycle accepts, stops
// accepting, and archives ratings. It is the temporal gate in front of the
// aggregation engine: ratings are admitted only while a cycle is active, and
// assignments still open at close time are marked late rather than silently
// dropped so completion accounting stays truthful.
//
// The controller is stateless and thread-safe; every method takes the cycle
// as a value snapshot and returns the updated copy. Callers are responsible
// for making cycle transitions mutually exclusive with rating ingestion for
// the same cycle (see the application coordinator).
type LifecycleController struct {
	name   string
	config LifecycleConfig
}

// LifecycleConfig defines the configuration parameters for the
// LifecycleController. All fields are validated during construction and
// parameter unmarshaling.
type LifecycleConfig struct {
	// EnforcePeriodFormat rejects activation of cycles whose period key is
	// not in YYYY-MM form. Disable only for legacy imports.
	EnforcePeriodFormat bool `yaml:"enforce_period_format" json:"enforce_period_format"`
}

// NewLifecycleController creates a LifecycleController with the specified
// configuration. It returns an error if the configuration is invalid.
func NewLifecycleController(name string, config LifecycleConfig) (*LifecycleController, error) {
	if name == "" {
		return nil, ErrEmptyEngineName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &LifecycleController{name: name, config: config}, nil
}

// Name returns the unique identifier for this controller instance.
func (lc *LifecycleController) Name() string { return lc.name }

// Activate moves a draft cycle to active and stamps the activation time.
// It fails with a TransitionError wrapping ErrInvalidTransition unless the
// cycle is in draft.
func (lc *LifecycleController) Activate(cycle domain.EvaluationCycle, now time.Time) (domain.EvaluationCycle, error) {
	if cycle.Status != domain.CycleDraft {
		return cycle, domain.NewTransitionError("cycle", string(cycle.Status), string(domain.CycleActive))
	}
	if lc.config.EnforcePeriodFormat && !ValidPeriod(cycle.Period) {
		return cycle, fmt.Errorf("cycle %s: %w", cycle.ID, ErrInvalidPeriod)
	}
	cycle.Status = domain.CycleActive
	activated := now
	cycle.ActivatedAt = &activated
	return cycle, nil
}

// Close moves an active cycle to closed, stamps the closure time, and marks
// every assignment still not submitted as late. It returns the updated
// cycle together with the updated assignment set.
func (lc *LifecycleController) Close(
	cycle domain.EvaluationCycle,
	assignments []domain.Evaluation,
	now time.Time,
) (domain.EvaluationCycle, []domain.Evaluation, error) {
	if cycle.Status != domain.CycleActive {
		return cycle, assignments, domain.NewTransitionError("cycle", string(cycle.Status), string(domain.CycleClosed))
	}
	cycle.Status = domain.CycleClosed
	closed := now
	cycle.ClosedAt = &closed

	updated := make([]domain.Evaluation, len(assignments))
	for i, a := range assignments {
		if a.Status == domain.EvaluationNotStarted || a.Status == domain.EvaluationInProgress {
			a.Status = domain.EvaluationLate
		}
		updated[i] = a
	}
	return cycle, updated, nil
}

// Archive moves a closed cycle to archived. It fails unless the cycle is
// closed; archival never skips the closed state.
func (lc *LifecycleController) Archive(cycle domain.EvaluationCycle) (domain.EvaluationCycle, error) {
	if cycle.Status != domain.CycleClosed {
		return cycle, domain.NewTransitionError("cycle", string(cycle.Status), string(domain.CycleArchived))
	}
	cycle.Status = domain.CycleArchived
	return cycle, nil
}

// AcceptRating gates a rating write against the cycle's lifecycle state.
// It returns ErrCycleClosed (wrapped) for any cycle that is not active, so a
// submission racing a close is rejected rather than silently counted after
// closure.
func (lc *LifecycleController) AcceptRating(cycle domain.EvaluationCycle) error {
	if !cycle.AcceptsRatings() {
		return fmt.Errorf("cycle %s is %s: %w", cycle.ID, cycle.Status, domain.ErrCycleClosed)
	}
	return nil
}

// MarkInProgress moves a not-started assignment to in progress. It fails
// with a TransitionError from any other state.
func (lc *LifecycleController) MarkInProgress(assignment domain.Evaluation) (domain.Evaluation, error) {
	if assignment.Status != domain.EvaluationNotStarted {
		return assignment, domain.NewTransitionError("evaluation", string(assignment.Status), string(domain.EvaluationInProgress))
	}
	assignment.Status = domain.EvaluationInProgress
	return assignment, nil
}

// MarkSubmitted records the submission of an assignment and stamps the
// submission time. An assignment may be submitted straight from not started;
// late and already-submitted assignments are rejected so a stale client
// cannot overwrite the submission record.
func (lc *LifecycleController) MarkSubmitted(assignment domain.Evaluation, now time.Time) (domain.Evaluation, error) {
	if assignment.Status == domain.EvaluationSubmitted || assignment.Status == domain.EvaluationLate {
		return assignment, domain.NewTransitionError("evaluation", string(assignment.Status), string(domain.EvaluationSubmitted))
	}
	assignment.Status = domain.EvaluationSubmitted
	submitted := now
	assignment.SubmittedAt = &submitted
	return assignment, nil
}

// RecordCompletion adjusts the cycle's completed-evaluation counter after a
// submission is accepted. Negative deltas back out a correction. The counter
// invariant holds after every call: never negative and never above the
// number of issued assignments.
func (lc *LifecycleController) RecordCompletion(cycle domain.EvaluationCycle, delta int) (domain.EvaluationCycle, error) {
	next := cycle.CompletedEvaluations + delta
	if next < 0 || next > cycle.TotalEvaluations {
		verr := domain.NewValidationError("cycle")
		verr.Add(fmt.Sprintf("completed count %d outside [0, %d]", next, cycle.TotalEvaluations))
		return cycle, verr
	}
	cycle.CompletedEvaluations = next
	return cycle, nil
}

// MarkOverdue flips every assignment past its due date that has not been
// submitted to late. It is safe to run repeatedly; already-late and
// submitted assignments are untouched.
func (lc *LifecycleController) MarkOverdue(assignments []domain.Evaluation, now time.Time) []domain.Evaluation {
	updated := make([]domain.Evaluation, len(assignments))
	for i, a := range assignments {
		if a.Overdue(now) {
			a.Status = domain.EvaluationLate
		}
		updated[i] = a
	}
	return updated
}

// Validate checks if the controller is properly configured.
func (lc *LifecycleController) Validate() error {
	if err := validate.Struct(lc.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML parameters into the controller's
// config, using strict decoding so typos are surfaced rather than ignored.
func (lc *LifecycleController) UnmarshalParameters(params yaml.Node) error {
	var config LifecycleConfig
	if err := decodeStrict(params, &config); err != nil {
		return err
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	lc.config = config
	return nil
}

// DefaultLifecycleConfig returns a LifecycleConfig with sensible defaults.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{EnforcePeriodFormat: true}
}
