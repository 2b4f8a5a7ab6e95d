package notify

import (
	"time"
)

// Status is the lifecycle position of one coin's notification.
type Status int

const (
	StatusAbsent Status = iota
	StatusActiveUnviewed
	StatusActiveViewed
	StatusDismissed
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusActiveUnviewed:
		return "active-unviewed"
	case StatusActiveViewed:
		return "active-viewed"
	case StatusDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// Entry is the active alert for one coin, keyed by coin id in State.Active.
type Entry struct {
	Name      string    `json:"name"`
	Messages  []string  `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// State is the persisted notification state of one client.
type State struct {
	Viewed map[string]bool  `json:"viewed"`
	Active map[string]Entry `json:"active"`
}

// NewState returns an empty state.
func NewState() State {
	return State{
		Viewed: make(map[string]bool),
		Active: make(map[string]Entry),
	}
}

// normalize replaces nil maps so decoded states are always usable.
func (s State) normalize() State {
	if s.Viewed == nil {
		s.Viewed = make(map[string]bool)
	}
	if s.Active == nil {
		s.Active = make(map[string]Entry)
	}
	return s
}

func (s State) clone() State {
	out := NewState()
	for id, v := range s.Viewed {
		out.Viewed[id] = v
	}
	for id, e := range s.Active {
		msgs := make([]string, len(e.Messages))
		copy(msgs, e.Messages)
		e.Messages = msgs
		out.Active[id] = e
	}
	return out
}

func (s State) status(id string) Status {
	_, active := s.Active[id]
	viewed := s.Viewed[id]
	switch {
	case active && viewed:
		return StatusActiveViewed
	case active:
		return StatusActiveUnviewed
	case viewed:
		return StatusDismissed
	default:
		return StatusAbsent
	}
}
