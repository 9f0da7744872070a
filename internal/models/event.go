package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// EventKind names a ledger event type.
type EventKind string

// Event kinds produced by the triage engine.
const (
	EventTaskBlocked  EventKind = "task.blocked"
	EventTaskProgress EventKind = "task.progress"
)

// UnknownTaskID is recorded when an issue title carries no task id.
const UnknownTaskID = "UNKNOWN"

// TimestampLayout is the UTC layout used for the ts field. Fixed width keeps
// ledger lines lexically sortable.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// LedgerEvent is one record of the append-only ledger.
//
// TS and Agent are stamped by the ledger writer; the triage engine leaves them empty.
type LedgerEvent struct {
	TS       string    `json:"ts,omitempty"`
	Agent    string    `json:"agent,omitempty"`
	Event    EventKind `json:"event"`
	Task     string    `json:"task,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Text     string    `json:"text"`
	Artifact string    `json:"artifact"`
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a ts value written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// Validate enforces the per-kind shape of a ledger event.
func (e *LedgerEvent) Validate() error {
	if err := validation.ValidateStruct(e,
		validation.Field(&e.Event, validation.Required),
		validation.Field(&e.Text, validation.Required),
		validation.Field(&e.Artifact, validation.Required),
	); err != nil {
		return err
	}
	switch e.Event {
	case EventTaskBlocked:
		return validation.ValidateStruct(e,
			validation.Field(&e.Reason, validation.Required),
			validation.Field(&e.Task, validation.Empty),
		)
	case EventTaskProgress:
		return validation.ValidateStruct(e,
			validation.Field(&e.Task, validation.Required),
			validation.Field(&e.Reason, validation.Empty),
		)
	}
	return nil
}

// Stamped returns a copy of e carrying the write-time fields.
func (e LedgerEvent) Stamped(ts time.Time, agent string) LedgerEvent {
	e.TS = FormatTimestamp(ts)
	e.Agent = agent
	return e
}

// TaskOrNA returns the task id, or "N/A" for events without one.
func (e LedgerEvent) TaskOrNA() string {
	if e.Task == "" {
		return "N/A"
	}
	return e.Task
}

// String is a short human-readable summary used in confirmations.
func (e LedgerEvent) String() string {
	return fmt.Sprintf("%s for %s", e.Event, e.TaskOrNA())
}
