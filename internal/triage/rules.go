package triage

import "strings"

// Horizons.
const (
	HorizonNow   = "now"
	HorizonToday = "today"
)

// Plan is the next step the agent commits to for an issue.
type Plan struct {
	NextAction string `json:"next_action"`
	Horizon    string `json:"horizon"`
	Risks      string `json:"risks"`
}

// Rule maps issues whose title satisfies Match to a Plan.
type Rule struct {
	Name  string
	Match func(title string) bool
	Plan  Plan
}

func titleContains(s string) func(string) bool {
	return func(title string) bool { return strings.Contains(title, s) }
}

// DefaultRules is evaluated in order; the first match wins.
var DefaultRules = []Rule{
	{
		Name:  "hook-triage",
		Match: titleContains("Hook Triage"),
		Plan: Plan{
			NextAction: "Create dana-triage skill (automated hook triage handler) + integrate with hook wake flow",
			Horizon:    HorizonToday,
			Risks:      "None - GitHub API access and ledger write capability already available",
		},
	},
	{
		Name:  "hook-reaction",
		Match: titleContains("Hook Reaction"),
		Plan: Plan{
			NextAction: "Run this handler against this issue as the first test case",
			Horizon:    HorizonNow,
			Risks:      "None - this is the test",
		},
	},
}

// FallbackRule applies when no rule in the table matches.
var FallbackRule = Rule{
	Name:  "general",
	Match: func(string) bool { return true },
	Plan: Plan{
		NextAction: "Read full issue body, extract requirements, define first concrete step",
		Horizon:    HorizonToday,
		Risks:      "May need additional context from other agents",
	},
}

func matchRule(rules []Rule, title string) Rule {
	for _, r := range rules {
		if r.Match(title) {
			return r
		}
	}
	return FallbackRule
}
