package triage

import (
	"regexp"

	"github.com/starford/hooktriage/internal/models"
)

var taskIDRe = regexp.MustCompile(`T-\d+`)

// ExtractTaskID returns the first T-<digits> token in title, or
// models.UnknownTaskID when there is none. Ids are not checked for
// uniqueness across issues.
func ExtractTaskID(title string) string {
	if id := taskIDRe.FindString(title); id != "" {
		return id
	}
	return models.UnknownTaskID
}
