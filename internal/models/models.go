// Package models defines the domain types for hooktriage.
package models

// HookIntent is the structured form of a hook notification.
type HookIntent struct {
	EventLabel     string   `json:"event_label,omitempty"`
	IssueNumber    int      `json:"issue_number,omitempty"` // 0 when the notification names no issue
	IssueTitleHint string   `json:"issue_title_hint,omitempty"`
	URL            string   `json:"url,omitempty"`
	Participants   []string `json:"participants"`
}

// HasIssue reports whether the notification carried an issue number.
func (h HookIntent) HasIssue() bool {
	return h.IssueNumber > 0
}

// HasParticipant reports whether id appears in the participants list.
func (h HookIntent) HasParticipant(id string) bool {
	for _, p := range h.Participants {
		if p == id {
			return true
		}
	}
	return false
}
