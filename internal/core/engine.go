package core

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// Errors returned by Start when the session cannot leave setup.
var (
	ErrNoParticipants = errors.New("at least one participant is required")
	ErrNoTasks        = errors.New("at least one task is required")
)

// User-facing messages shared by the TUI and the MCP server.
const (
	MsgNeedParticipantsAndTasks    = "Please provide at least one participant and one task."
	MsgNeedListNameAndParticipants = "Please provide a name for the list and add some participants."
)

// AssignmentEngine tracks participants, the pending task queue and the
// assignment ledger for one session. Participants and tasks change only in
// the setup phase; assignments change only while assigning.
//
// Invalid input is never an error: empty names, duplicates and out-of-range
// indexes are ignored.
type AssignmentEngine struct {
	phase        models.Phase
	participants []string
	tasks        []string
	assignments  []models.Assignment
	cursor       int

	rng    *rand.Rand
	events EventLogger
}

// EngineOption configures an AssignmentEngine.
type EngineOption func(*AssignmentEngine)

// WithRand sets the random source used by SelectRandom.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *AssignmentEngine) { e.rng = r }
}

// WithEventLogger sets the logger that receives session and assignment events.
func WithEventLogger(l EventLogger) EngineOption {
	return func(e *AssignmentEngine) { e.events = l }
}

// NewAssignmentEngine returns an engine in the setup phase.
func NewAssignmentEngine(opts ...EngineOption) *AssignmentEngine {
	e := &AssignmentEngine{phase: models.PhaseSetup}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		now := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(now, now>>1|1))
	}
	return e
}

// Phase returns the current session phase.
func (e *AssignmentEngine) Phase() models.Phase { return e.phase }

// Participants returns a copy of the participant sequence.
func (e *AssignmentEngine) Participants() []string { return slices.Clone(e.participants) }

// Tasks returns a copy of the task sequence.
func (e *AssignmentEngine) Tasks() []string { return slices.Clone(e.tasks) }

// Assignments returns a copy of the ledger, oldest first.
func (e *AssignmentEngine) Assignments() []models.Assignment { return slices.Clone(e.assignments) }

// Cursor returns the index of the next unassigned task.
func (e *AssignmentEngine) Cursor() int { return e.cursor }

// Snapshot returns a copy of the whole session state.
func (e *AssignmentEngine) Snapshot() models.SessionSnapshot {
	return models.SessionSnapshot{
		Phase:        e.phase,
		Participants: e.Participants(),
		Tasks:        e.Tasks(),
		Assignments:  e.Assignments(),
		Cursor:       e.cursor,
	}
}

// AddParticipant appends a trimmed participant name. Empty and duplicate
// names are ignored.
func (e *AssignmentEngine) AddParticipant(name string) bool {
	if e.phase != models.PhaseSetup {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" || slices.Contains(e.participants, name) {
		return false
	}
	e.participants = append(e.participants, name)
	return true
}

// RemoveParticipant removes the participant with exactly this name.
func (e *AssignmentEngine) RemoveParticipant(name string) bool {
	if e.phase != models.PhaseSetup {
		return false
	}
	i := slices.Index(e.participants, name)
	if i < 0 {
		return false
	}
	e.participants = slices.Delete(e.participants, i, i+1)
	return true
}

// LoadParticipants replaces the participant set, e.g. from a saved list.
// Names are trimmed and deduplicated in order.
func (e *AssignmentEngine) LoadParticipants(names []string) bool {
	if e.phase != models.PhaseSetup {
		return false
	}
	e.participants = nil
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" && !slices.Contains(e.participants, n) {
			e.participants = append(e.participants, n)
		}
	}
	return true
}

// AddTask appends a trimmed task label. Empty labels are ignored; duplicates
// are kept.
func (e *AssignmentEngine) AddTask(label string) bool {
	if e.phase != models.PhaseSetup {
		return false
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	e.tasks = append(e.tasks, label)
	return true
}

// RemoveTask removes the task at index.
func (e *AssignmentEngine) RemoveTask(index int) bool {
	if e.phase != models.PhaseSetup || index < 0 || index >= len(e.tasks) {
		return false
	}
	e.tasks = slices.Delete(e.tasks, index, index+1)
	return true
}

// Start moves the session from setup to assigning.
func (e *AssignmentEngine) Start() error {
	if e.phase == models.PhaseAssigning {
		return nil
	}
	if len(e.participants) == 0 {
		return ErrNoParticipants
	}
	if len(e.tasks) == 0 {
		return ErrNoTasks
	}
	e.phase = models.PhaseAssigning
	e.log(EventSessionStarted, map[string]any{
		"participants": len(e.participants),
		"tasks":        len(e.tasks),
	})
	return nil
}

// Reset clears participants, tasks and the ledger and returns to setup.
// Saved participant lists are not touched.
func (e *AssignmentEngine) Reset() {
	assigned := len(e.assignments)
	e.phase = models.PhaseSetup
	e.participants = nil
	e.tasks = nil
	e.assignments = nil
	e.cursor = 0
	e.log(EventSessionReset, map[string]any{"assigned": assigned})
}

// ComputeEligibility counts assignments per current participant and returns
// the participants tied for the minimum. Ledger entries for participants
// that were removed are not counted. The result is derived on every call.
func (e *AssignmentEngine) ComputeEligibility() models.Eligibility {
	return computeEligibility(e.participants, e.assignments)
}

func computeEligibility(participants []string, assignments []models.Assignment) models.Eligibility {
	if len(participants) == 0 {
		return models.Eligibility{Eligible: []string{}, Counts: map[string]int{}}
	}

	counts := make(map[string]int, len(participants))
	for _, p := range participants {
		counts[p] = 0
	}
	for _, a := range assignments {
		if _, ok := counts[a.Participant]; ok {
			counts[a.Participant]++
		}
	}

	lowest := counts[participants[0]]
	for _, c := range counts {
		lowest = min(lowest, c)
	}

	eligible := make([]string, 0, len(participants))
	for _, p := range participants {
		if counts[p] == lowest {
			eligible = append(eligible, p)
		}
	}
	return models.Eligibility{Eligible: eligible, Counts: counts}
}

// SelectRandom picks one of eligible uniformly at random. It reports false
// when eligible is empty or every task has been assigned.
func (e *AssignmentEngine) SelectRandom(eligible []string) (string, bool) {
	if len(eligible) == 0 || e.AllTasksAssigned() {
		return "", false
	}
	return eligible[e.rng.IntN(len(eligible))], true
}

// IsEligible reports whether name is currently tied for the fewest
// assignments.
func (e *AssignmentEngine) IsEligible(name string) bool {
	return slices.Contains(e.ComputeEligibility().Eligible, name)
}

// AssignManual commits the current task to name without a spin. Only
// eligible participants can be chosen.
func (e *AssignmentEngine) AssignManual(name string) bool {
	if !e.IsEligible(name) {
		return false
	}
	return e.CommitAssignment(name)
}

// CurrentTask returns the next task to assign.
func (e *AssignmentEngine) CurrentTask() (string, bool) {
	if e.AllTasksAssigned() {
		return "", false
	}
	return e.tasks[e.cursor], true
}

// CommitAssignment records the current task against participant and
// advances the cursor. Random and manual selections share this path.
func (e *AssignmentEngine) CommitAssignment(participant string) bool {
	if e.phase != models.PhaseAssigning || e.AllTasksAssigned() || participant == "" {
		return false
	}
	a := models.Assignment{Task: e.tasks[e.cursor], Participant: participant}
	e.assignments = append(e.assignments, a)
	e.cursor++

	e.log(EventAssignmentCommitted, map[string]any{
		"task":        a.Task,
		"participant": a.Participant,
		"index":       e.cursor - 1,
	})
	if e.AllTasksAssigned() {
		e.log(EventSessionCompleted, map[string]any{"assigned": len(e.assignments)})
	}
	return true
}

// UndoLast removes the most recent assignment and steps the cursor back.
func (e *AssignmentEngine) UndoLast() bool {
	if len(e.assignments) == 0 {
		return false
	}
	last := e.assignments[len(e.assignments)-1]
	e.assignments = e.assignments[:len(e.assignments)-1]
	e.cursor--

	e.log(EventAssignmentUndone, map[string]any{
		"task":        last.Task,
		"participant": last.Participant,
		"index":       e.cursor,
	})
	return true
}

// LastResult returns the most recent assignment.
func (e *AssignmentEngine) LastResult() (models.Assignment, bool) {
	if len(e.assignments) == 0 {
		return models.Assignment{}, false
	}
	return e.assignments[len(e.assignments)-1], true
}

// AllTasksAssigned reports whether the cursor has passed the last task.
func (e *AssignmentEngine) AllTasksAssigned() bool {
	return e.cursor >= len(e.tasks)
}

func (e *AssignmentEngine) log(eventType string, data map[string]any) {
	if e.events == nil {
		return
	}
	_ = e.events.LogEvent(eventType, data) // Non-fatal: the session works without a log.
}
