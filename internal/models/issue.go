package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// IssueRecord is the canonical issue state fetched from the tracker.
// Labels keep the order the API returned them in.
type IssueRecord struct {
	Number  int      `json:"number"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	HTMLURL string   `json:"html_url"`
	Labels  []string `json:"labels"`
}

// Validate checks the fields the triage engine relies on.
func (r *IssueRecord) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Number, validation.Required, validation.Min(1)),
		validation.Field(&r.HTMLURL, validation.Required),
	)
}
