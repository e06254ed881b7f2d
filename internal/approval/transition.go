package approval

import (
	"fmt"

	"github.com/gdg-garage/vegfest-api/internal/audit"
	"github.com/gdg-garage/vegfest-api/internal/models"
)

const (
	LabelFinalApproval   = "Final Approval (2/2)"
	LabelPartialApproval = "Partial Approval (1/2)"
	LabelReset           = "Reset to Pending"
	LabelDeclined        = "Registration Declined"
)

// State is the part of a registration the approval rules look at.
type State struct {
	Status     models.RegistrationStatus
	ApprovedBy ApproverSet
}

func StateOf(reg *models.Registration) State {
	return State{Status: reg.Status, ApprovedBy: NewApproverSet(reg.ApprovedBy()...)}
}

// Decision is the outcome of a status change request. Persisting it means:
// set Status to To, drop every stored vote when Reset, then add Added.
type Decision struct {
	From       models.RegistrationStatus
	To         models.RegistrationStatus
	Label      string
	Action     string
	Before     ApproverSet
	ApprovedBy ApproverSet
	Reset      bool
	Added      uint
}

// Discarded lists votes that were dropped by this decision.
func (d Decision) Discarded() []uint {
	var out []uint
	for _, id := range d.Before.IDs() {
		if !d.ApprovedBy.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Transition applies the two-approver rules to s. It does not touch storage.
//
// Approving a Declined registration starts a new cycle: the votes cast before
// the decline are discarded (Decision.Reset, listed by Discarded) and the
// caller's vote is the first of the new set. Approving an Approved
// registration is always ErrDuplicateVote.
func Transition(s State, requested models.RegistrationStatus, adminID uint) (Decision, error) {
	d := Decision{
		From:       s.Status,
		Before:     s.ApprovedBy,
		ApprovedBy: s.ApprovedBy,
	}

	switch requested {
	case models.StatusApproved:
		if s.Status == models.StatusInProgress {
			return Decision{}, ErrNotSubmitted
		}
		if s.Status == models.StatusApproved {
			return Decision{}, ErrDuplicateVote
		}
		if s.Status == models.StatusWaitingForApproval && s.ApprovedBy.Contains(adminID) {
			return Decision{}, ErrDuplicateVote
		}

		set := s.ApprovedBy
		if s.Status == models.StatusDeclined {
			// A declined registration starts a fresh cycle.
			set = ApproverSet{}
			d.Reset = true
		}
		if !set.Contains(adminID) {
			next, _, err := set.Add(adminID)
			if err != nil {
				return Decision{}, fmt.Errorf("%w: quorum already reached", ErrDuplicateVote)
			}
			set = next
			d.Added = adminID
		}

		d.ApprovedBy = set
		d.Action = audit.ActionApproveRegistration
		if set.Len() >= Quorum {
			d.To = models.StatusApproved
			d.Label = LabelFinalApproval
		} else {
			d.To = models.StatusWaitingForApproval
			d.Label = LabelPartialApproval
		}

	case models.StatusPending:
		d.To = models.StatusPending
		d.Label = LabelReset
		d.Action = audit.ActionUpdateStatus
		d.ApprovedBy = ApproverSet{}
		d.Reset = true

	case models.StatusDeclined:
		if s.Status == models.StatusInProgress {
			return Decision{}, ErrNotSubmitted
		}
		d.To = models.StatusDeclined
		d.Label = LabelDeclined
		d.Action = audit.ActionDeclineRegistration

	default:
		return Decision{}, fmt.Errorf("%w: %q", ErrInvalidStatus, requested)
	}

	return d, nil
}
