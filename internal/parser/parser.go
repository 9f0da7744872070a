// Package parser extracts the issue reference, participants, and hook kind
// from a hook receiver notification.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/hooktriage/internal/models"
)

// Line prefixes recognised in a notification.
const (
	ReceiptMarker      = "[DANA] Hook received:"
	IssuePrefix        = "Issue: #"
	URLPrefix          = "https://github.com/"
	ParticipantsPrefix = "Participants:"
)

var issueRe = regexp.MustCompile(`^Issue: #(\d+)\s*(.*)$`)

// Parse extracts a HookIntent from the raw notification text. Each line shape
// is optional; when a shape repeats the last occurrence wins. Unrecognised
// lines are ignored and Parse never fails.
func Parse(raw string) models.HookIntent {
	intent := models.HookIntent{Participants: []string{}}

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, ReceiptMarker):
			_, after, _ := strings.Cut(line, ":")
			intent.EventLabel = strings.TrimSpace(after)
		case strings.HasPrefix(line, IssuePrefix):
			if n, hint, ok := parseIssueLine(line); ok {
				intent.IssueNumber = n
				intent.IssueTitleHint = hint
			}
		case strings.HasPrefix(line, URLPrefix):
			intent.URL = line
		case strings.HasPrefix(line, ParticipantsPrefix):
			intent.Participants = splitParticipants(strings.TrimPrefix(line, ParticipantsPrefix))
		}
	}

	return intent
}

// parseIssueLine returns the issue number and trailing title fragment.
func parseIssueLine(line string) (int, string, bool) {
	m := issueRe.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Digits that overflow int are not a usable issue number.
		return 0, "", false
	}
	return n, strings.TrimSpace(m[2]), true
}

// splitParticipants splits a comma-separated list, dropping blank entries.
func splitParticipants(list string) []string {
	out := []string{}
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
