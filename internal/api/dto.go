package api

import (
	"github.com/starford/hooktriage/internal/index"
	"github.com/starford/hooktriage/internal/pipeline"
)

// HookRequest is the JSON form of a hook delivery. Plain-text bodies are
// accepted as the message itself.
type HookRequest struct {
	Message string `json:"message" example:"[DANA] Hook received: issues.opened\nIssue: #9 T-9 Hook Reaction test" validate:"required"`
}

// HookResponse reports a pipeline run. Error is set when the run aborted;
// Outcome still carries whatever the run produced before the failure.
type HookResponse struct {
	Outcome *pipeline.Outcome `json:"outcome,omitempty"`
	Error   string            `json:"error,omitempty" example:"publish failed"`
}

// EventRow is a single indexed ledger line (aliased from the index layer).
type EventRow = index.EventRow

// EventListResponse wraps paginated ledger listings.
type EventListResponse struct {
	Events []EventRow `json:"events" validate:"required"`
	Total  int        `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit (aliased from the index layer).
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// TaskHistoryResponse lists every event for one task in ledger order.
type TaskHistoryResponse struct {
	Task   string     `json:"task" example:"T-9" validate:"required"`
	Events []EventRow `json:"events" validate:"required"`
}
