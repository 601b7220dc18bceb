// Package workflow implements the task lifecycle state machine: which fields
// each role may change, the acknowledgment and completion rules, and the
// notification events produced by a transition. It has no HTTP or database
// dependencies so the guard rules are testable in isolation.
package workflow

import (
	"errors"
	"time"
)

type Progress int

const (
	NotStarted Progress = iota
	Started
	Pending
	Done
)

func (p Progress) Valid() bool {
	return p >= NotStarted && p <= Done
}

// Label renders a progress value for display. Values outside the enum render
// as "Unknown" rather than failing.
func (p Progress) Label() string {
	switch p {
	case NotStarted:
		return "Not Started"
	case Started:
		return "Started"
	case Pending:
		return "In Progress"
	case Done:
		return "DONE"
	default:
		return "Unknown"
	}
}

var (
	ErrNotAllowed      = errors.New("actor is not allowed to make this change")
	ErrNotAssignee     = errors.New("task is not assigned to this maintainer")
	ErrInvalidProgress = errors.New("invalid progress value")
)

// Actor is the authenticated user attempting a transition. At most one of
// Admin and Maintenance is set; neither means the actor is a plain requester.
type Actor struct {
	ID          uint
	Admin       bool
	Maintenance bool
}

// State is a snapshot of a task's mutable fields.
type State struct {
	FacilityID    uint
	RequestedByID uint
	AssignedToID  *uint

	Description  string
	DetailedInfo string

	Confirmed    bool
	Resolved     bool
	Acknowledged bool
	Progress     Progress

	DateCompleted *time.Time
}

// Changes holds the requested field updates. Nil pointers mean "leave as is".
type Changes struct {
	Description  *string
	DetailedInfo *string
	FacilityID   *uint

	Confirmed    *bool
	Resolved     *bool
	Acknowledged *bool
	Progress     *Progress
	AssignedToID *uint
}

// Event names a transition that requires an outbound notification.
type Event string

const (
	EventCreated   Event = "created"
	EventAssigned  Event = "assigned"
	EventConfirmed Event = "confirmed"
	EventResolved  Event = "resolved"
	EventDone      Event = "done"
	EventRejected  Event = "rejected"
)

// Apply evaluates a requested transition against the role guards and returns
// the resulting state plus the notification events the caller must dispatch.
// On any guard violation the current state is discarded entirely; there are
// no partial updates.
func Apply(current State, ch Changes, actor Actor, now time.Time) (State, []Event, error) {
	if ch.Progress != nil && !ch.Progress.Valid() {
		return State{}, nil, ErrInvalidProgress
	}

	next := current

	switch {
	case actor.Admin:
		applyShared(&next, ch)

		if ch.Confirmed != nil {
			next.Confirmed = *ch.Confirmed
		}
		if ch.Resolved != nil {
			next.Resolved = *ch.Resolved
		}
		if ch.Acknowledged != nil {
			next.Acknowledged = *ch.Acknowledged
		}
		if ch.Progress != nil {
			next.Progress = *ch.Progress
		}
		if ch.AssignedToID != nil {
			next.AssignedToID = ch.AssignedToID
		}

	case actor.Maintenance:
		if current.AssignedToID == nil || *current.AssignedToID != actor.ID {
			return State{}, nil, ErrNotAssignee
		}
		if ch.AssignedToID != nil || ch.Confirmed != nil || ch.Resolved != nil {
			return State{}, nil, ErrNotAllowed
		}

		// Shared fields are rendered read-only on the maintainer form;
		// anything submitted for them is dropped, not an error.
		if ch.Acknowledged != nil {
			next.Acknowledged = *ch.Acknowledged
		}
		if ch.Progress != nil {
			// Logging progress implies receipt of the assignment.
			if *ch.Progress != current.Progress && ch.Acknowledged == nil {
				next.Acknowledged = true
			}
			next.Progress = *ch.Progress
		}

	default:
		if actor.ID != current.RequestedByID {
			return State{}, nil, ErrNotAllowed
		}
		if ch.Confirmed != nil || ch.Resolved != nil || ch.Acknowledged != nil ||
			ch.Progress != nil || ch.AssignedToID != nil {
			return State{}, nil, ErrNotAllowed
		}
		// Requesters may amend their own request only until an admin has
		// confirmed it.
		if current.Confirmed && (ch.Description != nil || ch.DetailedInfo != nil || ch.FacilityID != nil) {
			return State{}, nil, ErrNotAllowed
		}
		applyShared(&next, ch)
	}

	if next.Progress == Done && current.Progress != Done && next.DateCompleted == nil {
		completed := now
		next.DateCompleted = &completed
	}

	return next, diff(current, next, actor), nil
}

func applyShared(next *State, ch Changes) {
	if ch.Description != nil {
		next.Description = *ch.Description
	}
	if ch.DetailedInfo != nil {
		next.DetailedInfo = *ch.DetailedInfo
	}
	if ch.FacilityID != nil {
		next.FacilityID = *ch.FacilityID
	}
}

func diff(current, next State, actor Actor) []Event {
	var events []Event

	if next.AssignedToID != nil &&
		(current.AssignedToID == nil || *current.AssignedToID != *next.AssignedToID) {
		events = append(events, EventAssigned)
	}
	if !current.Confirmed && next.Confirmed {
		events = append(events, EventConfirmed)
	}
	if !current.Resolved && next.Resolved {
		events = append(events, EventResolved)
	}
	if current.Progress != Done && next.Progress == Done && !actor.Admin {
		events = append(events, EventDone)
	}

	return events
}
