package domain

import "time"

// StatusOK is the status message of a healthy probe; it is never rendered.
const StatusOK = "OK"

// Evaluation answers "is it up right now" for one subject on one tick.
type Evaluation struct {
	Kind                 Kind      `json:"kind"`
	Name                 string    `json:"name"`
	Up                   bool      `json:"up"`
	StatusMessage        string    `json:"status_message,omitempty"`
	Description          string    `json:"description,omitempty"`
	CheckingEveryMinutes *int      `json:"checking_every_minutes,omitempty"`
	CheckedAt            time.Time `json:"checked_at"`
}

// Up builds a healthy evaluation for s.
func Up(s Subject, status string, at time.Time) Evaluation {
	return newEvaluation(s, true, status, at)
}

// Down builds an unhealthy evaluation for s carrying reason.
func Down(s Subject, reason string, at time.Time) Evaluation {
	return newEvaluation(s, false, reason, at)
}

func newEvaluation(s Subject, up bool, status string, at time.Time) Evaluation {
	return Evaluation{
		Kind:                 s.Kind,
		Name:                 s.Name,
		Up:                   up,
		StatusMessage:        status,
		Description:          s.Description,
		CheckingEveryMinutes: s.CheckingEveryMinutes(),
		CheckedAt:            at,
	}
}

// Direction is the edge a TransitionEvent reports.
type Direction string

const (
	BecameDown Direction = "down"
	BecameUp   Direction = "up"
)

type TransitionEvent struct {
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	Message   string    `json:"message"`
}
