package domain

import "time"

// Status is the stored lifecycle state. Overdue is never stored; see IsOverdue.
type Status string

const (
	StatusUnpaid Status = "unpaid"
	StatusPaid   Status = "paid"
	StatusFailed Status = "failed"
)

// StatusOverdue is accepted only as a list filter.
const StatusOverdue = "overdue"

func (s Status) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPaid, StatusFailed:
		return true
	default:
		return false
	}
}

// Outcome is the result of a payment attempt or a manual action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Transition describes one conditional status update.
type Transition struct {
	From []Status
	To   Status
}

// TransitionFor returns the update an outcome requests. Paid is terminal,
// so no transition has it as a source.
func TransitionFor(outcome Outcome) Transition {
	if outcome == OutcomeSuccess {
		return Transition{From: []Status{StatusUnpaid, StatusFailed}, To: StatusPaid}
	}
	return Transition{From: []Status{StatusUnpaid}, To: StatusFailed}
}

// Allows reports whether the transition may start from current.
func (t Transition) Allows(current Status) bool {
	for _, from := range t.From {
		if from == current {
			return true
		}
	}
	return false
}

// PaidAt returns the paid timestamp the target status requires: set iff paid.
func (t Transition) PaidAt(now time.Time) *time.Time {
	if t.To != StatusPaid {
		return nil
	}
	at := now.UTC()
	return &at
}

// IsOverdue is the single definition of overdue. An unpaid invoice is overdue
// once the calendar day of its due date (UTC) has passed.
func IsOverdue(status Status, dueDate *time.Time, now time.Time) bool {
	if status != StatusUnpaid || dueDate == nil {
		return false
	}
	return StartOfDay(*dueDate).Before(StartOfDay(now))
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
