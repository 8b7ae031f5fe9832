package engines

import (
	"fmt"

	"github.com/ahrav/go-merit/internal/domain"
)

// NominationMachine enforces the nomination voting state machine:
// pending -> voting -> {selected, rejected}. Selected and rejected are
// terminal; votes are admitted only while voting is open.
//
// Like the other engines it is stateless: each method takes a nomination
// snapshot and returns the updated copy or a transition error.
type NominationMachine struct {
	name string
}

// NewNominationMachine creates a NominationMachine.
func NewNominationMachine(name string) (*NominationMachine, error) {
	if name == "" {
		return nil, ErrEmptyEngineName
	}
	return &NominationMachine{name: name}, nil
}

// Name returns the unique identifier for this machine instance.
func (nm *NominationMachine) Name() string { return nm.name }

// MarkVoting moves a pending nomination into the voting phase and stamps
// the eligible-voter denominator. Valid only from pending.
func (nm *NominationMachine) MarkVoting(nomination domain.Nomination, totalVoters int) (domain.Nomination, error) {
	if nomination.Status != domain.NominationPending {
		return nomination, domain.NewTransitionError("nomination", string(nomination.Status), string(domain.NominationVoting))
	}
	if totalVoters <= 0 {
		return nomination, fmt.Errorf("total eligible voters must be positive, got %d", totalVoters)
	}
	nomination.Status = domain.NominationVoting
	nomination.TotalEligibleVoters = &totalVoters
	return nomination, nil
}

// IncrementVote records one vote. Votes are valid only while the nomination
// is in voting; a vote against any other state fails with
// ErrNominationClosed.
func (nm *NominationMachine) IncrementVote(nomination domain.Nomination) (domain.Nomination, error) {
	if nomination.Status != domain.NominationVoting {
		return nomination, fmt.Errorf("nomination %s is %s: %w",
			nomination.ID, nomination.Status, domain.ErrNominationClosed)
	}
	nomination.VotesCount++
	return nomination, nil
}

// MarkSelected marks the nomination as the period's winner. Valid only from
// voting; terminal.
func (nm *NominationMachine) MarkSelected(nomination domain.Nomination) (domain.Nomination, error) {
	if nomination.Status != domain.NominationVoting {
		return nomination, domain.NewTransitionError("nomination", string(nomination.Status), string(domain.NominationSelected))
	}
	nomination.Status = domain.NominationSelected
	return nomination, nil
}

// MarkRejected marks the nomination as rejected. Valid only from voting;
// terminal.
func (nm *NominationMachine) MarkRejected(nomination domain.Nomination) (domain.Nomination, error) {
	if nomination.Status != domain.NominationVoting {
		return nomination, domain.NewTransitionError("nomination", string(nomination.Status), string(domain.NominationRejected))
	}
	nomination.Status = domain.NominationRejected
	return nomination, nil
}
