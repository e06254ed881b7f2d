package approval

import (
	"errors"
	"slices"
)

// Quorum is the number of distinct approvers a registration needs.
const Quorum = 2

var ErrSetFull = errors.New("approver set is full")

// ApproverSet is the set of admins that approved in the current cycle. It
// keeps vote order, holds no duplicates and never grows past Quorum.
// The zero value is an empty set.
type ApproverSet struct {
	ids []uint
}

// NewApproverSet builds a set from stored ids, dropping duplicates and
// anything past Quorum.
func NewApproverSet(ids ...uint) ApproverSet {
	var s ApproverSet
	for _, id := range ids {
		if s.Contains(id) || len(s.ids) == Quorum {
			continue
		}
		s.ids = append(s.ids, id)
	}
	return s
}

func (s ApproverSet) Contains(id uint) bool {
	return slices.Contains(s.ids, id)
}

func (s ApproverSet) Len() int {
	return len(s.ids)
}

func (s ApproverSet) Full() bool {
	return len(s.ids) >= Quorum
}

func (s ApproverSet) IDs() []uint {
	return slices.Clone(s.ids)
}

// Add returns the set with id included and the resulting size. Adding a
// member is a no-op; adding to a full set fails.
func (s ApproverSet) Add(id uint) (ApproverSet, int, error) {
	if s.Contains(id) {
		return s, len(s.ids), nil
	}
	if s.Full() {
		return s, len(s.ids), ErrSetFull
	}
	next := ApproverSet{ids: append(slices.Clone(s.ids), id)}
	return next, len(next.ids), nil
}

func (s ApproverSet) Equal(other ApproverSet) bool {
	return slices.Equal(s.ids, other.ids)
}
