// Package engine computes the next billing group membership set from an edit.
//
// Every operation takes the current set and returns a new one; the input is
// never modified. Invalid input fails before any row is touched, so callers can
// apply the result wholesale.
package engine

import (
	"slices"

	"policydesk/internal/billinggroup/models"
	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
)

// Engine applies edit intents. The only state it carries is the row id source.
type Engine struct {
	newID func() id.MemberID
}

type Option func(*Engine)

// WithIDSource overrides how fresh row ids are minted.
func WithIDSource(fn func() id.MemberID) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{newID: id.NewMemberID}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// ApplyGroupEdit creates, renames or rewrites one group.
//
// Rows of the previous group are dropped and rebuilt from the selection. Rows
// rebuilt for a member that was already in the previous group keep their id
// and order. Target group rows that the selection supersedes are dropped, and
// when a leader is named every other row of the target group loses leadership.
// Emails and notes are then replicated onto every row of the target group.
func (e *Engine) ApplyGroupEdit(current []models.Member, intent models.EditIntent) ([]models.Member, error) {
	intent.Normalize()
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	target := intent.TargetGroupName

	reuse := make(map[models.MemberRef]models.Member)
	if intent.PreviousGroupName != "" {
		for _, m := range current {
			if m.GroupName == intent.PreviousGroupName {
				reuse[m.Ref] = m
			}
		}
	}

	next := make([]models.Member, 0, len(current)+len(intent.SelectedSecondaryIDs)+1)
	for _, m := range current {
		if intent.PreviousGroupName != "" && m.GroupName == intent.PreviousGroupName {
			continue
		}
		if m.GroupName == target {
			if intent.Selects(m.Ref) {
				if _, ok := reuse[m.Ref]; !ok {
					reuse[m.Ref] = m
				}
				continue
			}
			if intent.LeaderRef != nil {
				m.IsLeader = false
			}
		}
		next = append(next, m.Clone())
	}

	nextOrder := maxOrder(current) + 1
	for _, ref := range intent.Selection() {
		row := models.Member{
			GroupName: target,
			Ref:       ref,
			IsLeader:  intent.LeaderRef != nil && *intent.LeaderRef == ref,
		}
		if prev, ok := reuse[ref]; ok {
			row.ID = prev.ID
			row.Order = prev.Order
		} else {
			row.ID = e.newID()
			row.Order = nextOrder
			nextOrder++
		}
		next = append(next, row)
	}

	for i := range next {
		if next[i].GroupName == target {
			next[i].Emails = slices.Clone(intent.Emails)
			next[i].Notes = intent.Notes
		}
	}
	return next, nil
}

// RemoveMember drops one row. A group left without rows no longer exists.
func (e *Engine) RemoveMember(current []models.Member, rowID id.MemberID) ([]models.Member, error) {
	idx := models.IndexOf(current, rowID)
	if idx < 0 {
		return nil, rowNotFound(rowID)
	}
	next := make([]models.Member, 0, len(current)-1)
	for i, m := range current {
		if i == idx {
			continue
		}
		next = append(next, m.Clone())
	}
	return next, nil
}

// ToggleLeader flips the leader flag of one row and clears it on every other
// row of the same group. Other groups are untouched.
func (e *Engine) ToggleLeader(current []models.Member, rowID id.MemberID) ([]models.Member, error) {
	idx := models.IndexOf(current, rowID)
	if idx < 0 {
		return nil, rowNotFound(rowID)
	}
	group := current[idx].GroupName
	leader := !current[idx].IsLeader

	next := models.CloneMembers(current)
	for i := range next {
		if next[i].GroupName == group {
			next[i].IsLeader = false
		}
	}
	next[idx].IsLeader = leader
	return next, nil
}

// DeleteGroup drops every row of the named group.
func (e *Engine) DeleteGroup(current []models.Member, groupName string) ([]models.Member, error) {
	next := make([]models.Member, 0, len(current))
	found := false
	for _, m := range current {
		if m.GroupName == groupName {
			found = true
			continue
		}
		next = append(next, m.Clone())
	}
	if !found {
		return nil, dErrors.New(dErrors.CodeNotFound, "billing group "+groupName+" not found")
	}
	return next, nil
}

func rowNotFound(rowID id.MemberID) error {
	return dErrors.New(dErrors.CodeNotFound, "billing group row "+rowID.String()+" not found")
}

func maxOrder(members []models.Member) int {
	highest := 0
	for _, m := range members {
		if m.Order > highest {
			highest = m.Order
		}
	}
	return highest
}
