// Package triage decides what the agent does next about an issue. The engine
// is pure: it performs no I/O and never fails.
package triage

import (
	"fmt"
	"strings"

	"github.com/starford/hooktriage/internal/models"
)

// Engine applies the triage rules on behalf of one agent.
type Engine struct {
	agent string
	rules []Rule
}

// New returns an Engine for agent using DefaultRules.
func New(agent string) *Engine {
	return &Engine{agent: agent, rules: DefaultRules}
}

// WithRules returns a copy of e that evaluates rules before the fallback.
func (e *Engine) WithRules(rules []Rule) *Engine {
	return &Engine{agent: e.agent, rules: rules}
}

// Agent returns the agent identifier the engine gates on.
func (e *Engine) Agent() string {
	return e.agent
}

// Decision is the full triage outcome, including the intermediate values
// that went into the event text.
type Decision struct {
	Participating  bool               `json:"participating"`
	Classification *Classification    `json:"classification,omitempty"`
	Rule           string             `json:"rule,omitempty"`
	Plan           *Plan              `json:"plan,omitempty"`
	Event          models.LedgerEvent `json:"event"`
}

// Triage returns the ledger event for intent and issue.
func (e *Engine) Triage(intent models.HookIntent, issue models.IssueRecord) models.LedgerEvent {
	return e.Decide(intent, issue).Event
}

// Decide runs the decision procedure. The participation gate runs before any
// label or title inspection.
func (e *Engine) Decide(intent models.HookIntent, issue models.IssueRecord) Decision {
	participants := strings.Join(intent.Participants, ", ")

	if !intent.HasParticipant(e.agent) {
		return Decision{
			Event: models.LedgerEvent{
				Event:    models.EventTaskBlocked,
				Reason:   fmt.Sprintf("%s not in participants list: %s", e.agent, participants),
				Text:     fmt.Sprintf("Issue %d received but %s is not listed as participant. Cannot claim task.", issue.Number, e.agent),
				Artifact: issue.HTMLURL,
			},
		}
	}

	c := Classify(ParseLabels(issue.Labels))
	rule := matchRule(e.rules, issue.Title)
	plan := rule.Plan

	text := fmt.Sprintf("Hook triage completed for issue #%d. "+
		"Priority: %s, Area: %s, Kind: %s. "+
		"Participants: %s. "+
		"Next action: %s. "+
		"Horizon: %s. Risks: %s.",
		issue.Number, c.Priority, c.Area, c.Kind, participants, plan.NextAction, plan.Horizon, plan.Risks)

	return Decision{
		Participating:  true,
		Classification: &c,
		Rule:           rule.Name,
		Plan:           &plan,
		Event: models.LedgerEvent{
			Event:    models.EventTaskProgress,
			Task:     ExtractTaskID(issue.Title),
			Text:     text,
			Artifact: issue.HTMLURL,
		},
	}
}
