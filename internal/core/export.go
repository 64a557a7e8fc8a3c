package core

import (
	"strings"

	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// FormatLedger renders assignments oldest first, one "<task> -> <participant>"
// line each, with no trailing newline.
func FormatLedger(assignments []models.Assignment) string {
	lines := make([]string, len(assignments))
	for i, a := range assignments {
		lines[i] = a.Task + " -> " + a.Participant
	}
	return strings.Join(lines, "\n")
}
