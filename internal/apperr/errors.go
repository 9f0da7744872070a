// Package apperr holds the sentinel errors shared across hooktriage.
package apperr

import "errors"

var (
	// ErrNoIssueNumber means the hook named no issue; the run stops before any I/O.
	ErrNoIssueNumber = errors.New("no issue number found in hook message")
	// ErrFetch wraps issue fetcher failures.
	ErrFetch = errors.New("fetch issue")
	// ErrAppend wraps ledger write failures.
	ErrAppend = errors.New("append ledger event")
	// ErrPublish wraps view regeneration and git failures. The ledger has
	// already been appended to when this is returned.
	ErrPublish  = errors.New("publish ledger")
	ErrNotFound = errors.New("not found")
)
