// Package mcp provides an MCP (Model Context Protocol) server that exposes
// a wheel session as MCP tools, so an assistant can run the assignment
// headlessly.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/internal/observability"
	"github.com/valter-silva-au/task-wheel/internal/storage"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// Server wraps one assignment session and exposes it as MCP tools.
type Server struct {
	server    *gomcp.Server
	mu        sync.Mutex
	engine    *core.AssignmentEngine
	lists     storage.NamedListManager
	stats     observability.StatsCalculator
	announcer observability.Announcer
}

// NewServer creates a new MCP server around engine. lists, stats and
// announcer may be nil.
func NewServer(engine *core.AssignmentEngine, lists storage.NamedListManager, stats observability.StatsCalculator, announcer observability.Announcer, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		engine:    engine,
		lists:     lists,
		stats:     stats,
		announcer: announcer,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "wheel", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves over stdio, blocking until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type nameInput struct {
	Name string `json:"name" jsonschema:"required,participant or list name"`
}

type taskInput struct {
	Task string `json:"task" jsonschema:"required,task label, e.g. a code review ID"`
}

type participantInput struct {
	Participant string `json:"participant" jsonschema:"required,name of an eligible participant"`
}

type emptyInput struct{}

type stateOutput struct {
	Phase        string              `json:"phase"`
	Participants []string            `json:"participants"`
	Tasks        []string            `json:"tasks"`
	Assignments  []models.Assignment `json:"assignments"`
	Cursor       int                 `json:"cursor"`
	CurrentTask  string              `json:"current_task,omitempty"`
	AllAssigned  bool                `json:"all_assigned"`
	Eligible     []string            `json:"eligible"`
	Counts       map[string]int      `json:"counts"`
}

type assignmentOutput struct {
	Task        string      `json:"task"`
	Participant string      `json:"participant"`
	State       stateOutput `json:"state"`
}

type exportOutput struct {
	Log   string `json:"log"`
	Count int    `json:"count"`
}

type namedListsOutput struct {
	Names []string            `json:"names"`
	Lists map[string][]string `json:"lists"`
}

type statsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window, e.g. 7d or 24h. Defaults to 30d."`
}

type statsOutput struct {
	SessionsStarted   int                             `json:"sessions_started"`
	SessionsCompleted int                             `json:"sessions_completed"`
	Assignments       int                             `json:"assignments"`
	Undos             int                             `json:"undos"`
	Workload          []observability.ParticipantLoad `json:"workload"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_participant",
		Description: "Add a participant during setup. Names are trimmed; blanks and duplicates are ignored.",
	}, s.handleAddParticipant)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_task",
		Description: "Add a task during setup. Duplicate labels are allowed.",
	}, s.handleAddTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_session",
		Description: "Leave setup and start assigning. Needs at least one participant and one task.",
	}, s.handleStartSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "spin",
		Description: "Assign the current task to a random participant among those with the fewest assignments.",
	}, s.handleSpin)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "assign_manual",
		Description: "Assign the current task to a chosen participant. Only participants with the fewest assignments can be chosen.",
	}, s.handleAssignManual)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "undo_last",
		Description: "Remove the most recent assignment and step back to its task.",
	}, s.handleUndoLast)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_state",
		Description: "Get the session: phase, participants, tasks, assignments, current task and eligibility.",
	}, s.handleGetState)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "export_log",
		Description: "Export the assignments as lines of \"<task> -> <participant>\", oldest first.",
	}, s.handleExportLog)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reset_session",
		Description: "Clear participants, tasks and assignments and return to setup. Saved lists are kept.",
	}, s.handleResetSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_named_lists",
		Description: "List the saved participant lists.",
	}, s.handleListNamedLists)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "load_named_list",
		Description: "Replace the participants with a saved list. Only during setup.",
	}, s.handleLoadNamedList)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "save_named_list",
		Description: "Save the current participants under a list name, replacing any list with that name.",
	}, s.handleSaveNamedList)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_stats",
		Description: "Get per-participant assignment totals from the event log.",
	}, s.handleGetStats)
}

// --- Tool handlers ---

func (s *Server) handleAddParticipant(_ context.Context, _ *gomcp.CallToolRequest, input nameInput) (*gomcp.CallToolResult, stateOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine.Phase() != models.PhaseSetup {
		return errorResult("participants can only be added during setup"), s.state(), nil
	}
	if !s.engine.AddParticipant(input.Name) {
		return errorResult(fmt.Sprintf("participant %q is blank or already added", input.Name)), s.state(), nil
	}
	return nil, s.state(), nil
}

func (s *Server) handleAddTask(_ context.Context, _ *gomcp.CallToolRequest, input taskInput) (*gomcp.CallToolResult, stateOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine.Phase() != models.PhaseSetup {
		return errorResult("tasks can only be added during setup"), s.state(), nil
	}
	if !s.engine.AddTask(input.Task) {
		return errorResult("task is required"), s.state(), nil
	}
	return nil, s.state(), nil
}

func (s *Server) handleStartSession(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, stateOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Start(); err != nil {
		if errors.Is(err, core.ErrNoParticipants) || errors.Is(err, core.ErrNoTasks) {
			return errorResult(core.MsgNeedParticipantsAndTasks), s.state(), nil
		}
		return errorResult(err.Error()), s.state(), nil
	}
	return nil, s.state(), nil
}

func (s *Server) handleSpin(ctx context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, assignmentOutput, error) {
	res, out, ledger := s.spin()
	return s.announce(ctx, res, out, ledger)
}

func (s *Server) spin() (*gomcp.CallToolResult, assignmentOutput, []models.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res := s.requireAssigning(); res != nil {
		return res, assignmentOutput{State: s.state()}, nil
	}

	name, ok := s.engine.SelectRandom(s.engine.ComputeEligibility().Eligible)
	if !ok {
		return errorResult("no eligible participant"), assignmentOutput{State: s.state()}, nil
	}
	return s.commit(name)
}

func (s *Server) handleAssignManual(ctx context.Context, _ *gomcp.CallToolRequest, input participantInput) (*gomcp.CallToolResult, assignmentOutput, error) {
	res, out, ledger := s.assignManual(input.Participant)
	return s.announce(ctx, res, out, ledger)
}

func (s *Server) assignManual(participant string) (*gomcp.CallToolResult, assignmentOutput, []models.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res := s.requireAssigning(); res != nil {
		return res, assignmentOutput{State: s.state()}, nil
	}
	if !s.engine.IsEligible(participant) {
		return errorResult(fmt.Sprintf("%q is not eligible; choose one of %v", participant, s.engine.ComputeEligibility().Eligible)), assignmentOutput{State: s.state()}, nil
	}
	return s.commit(participant)
}

func (s *Server) handleUndoLast(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, stateOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.engine.UndoLast() {
		return errorResult("nothing to undo"), s.state(), nil
	}
	return nil, s.state(), nil
}

func (s *Server) handleGetState(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, stateOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nil, s.state(), nil
}

func (s *Server) handleExportLog(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, exportOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignments := s.engine.Assignments()
	return nil, exportOutput{Log: core.FormatLedger(assignments), Count: len(assignments)}, nil
}

func (s *Server) handleResetSession(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, stateOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Reset()
	return nil, s.state(), nil
}

func (s *Server) handleListNamedLists(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, namedListsOutput, error) {
	if s.lists == nil {
		return errorResult("named lists not available"), namedListsOutput{Names: []string{}, Lists: map[string][]string{}}, nil
	}
	return nil, namedListsOutput{Names: s.lists.Names(), Lists: s.lists.All()}, nil
}

func (s *Server) handleLoadNamedList(_ context.Context, _ *gomcp.CallToolRequest, input nameInput) (*gomcp.CallToolResult, stateOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lists == nil {
		return errorResult("named lists not available"), s.state(), nil
	}
	members, ok := s.lists.Get(input.Name)
	if !ok {
		return errorResult(fmt.Sprintf("no saved list named %q", input.Name)), s.state(), nil
	}
	if !s.engine.LoadParticipants(members) {
		return errorResult("lists can only be loaded during setup"), s.state(), nil
	}
	return nil, s.state(), nil
}

func (s *Server) handleSaveNamedList(_ context.Context, _ *gomcp.CallToolRequest, input nameInput) (*gomcp.CallToolResult, namedListsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lists == nil {
		return errorResult("named lists not available"), namedListsOutput{Names: []string{}, Lists: map[string][]string{}}, nil
	}
	err := s.lists.Save(input.Name, s.engine.Participants())
	if errors.Is(err, storage.ErrEmptyListName) || errors.Is(err, storage.ErrEmptyList) {
		return errorResult(core.MsgNeedListNameAndParticipants), namedListsOutput{Names: s.lists.Names(), Lists: s.lists.All()}, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("saving list: %s", err)), namedListsOutput{Names: s.lists.Names(), Lists: s.lists.All()}, nil
	}
	return nil, namedListsOutput{Names: s.lists.Names(), Lists: s.lists.All()}, nil
}

func (s *Server) handleGetStats(_ context.Context, _ *gomcp.CallToolRequest, input statsInput) (*gomcp.CallToolResult, statsOutput, error) {
	empty := statsOutput{Workload: []observability.ParticipantLoad{}}
	if s.stats == nil {
		return errorResult("stats not available (event log may be disabled)"), empty, nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "30d"
	}
	since, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), empty, nil
	}

	st, err := s.stats.Calculate(since)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating stats: %s", err)), empty, nil
	}
	return nil, statsOutput{
		SessionsStarted:   st.SessionsStarted,
		SessionsCompleted: st.SessionsCompleted,
		Assignments:       st.Assignments,
		Undos:             st.Undos,
		Workload:          st.Ranking(),
	}, nil
}

// --- Helpers ---

// commit assigns the current task to name and returns the finished ledger
// once every task is assigned. The caller holds mu.
func (s *Server) commit(name string) (*gomcp.CallToolResult, assignmentOutput, []models.Assignment) {
	if !s.engine.CommitAssignment(name) {
		return errorResult("assignment was not recorded"), assignmentOutput{State: s.state()}, nil
	}
	last, _ := s.engine.LastResult()
	out := assignmentOutput{Task: last.Task, Participant: last.Participant, State: s.state()}
	if !s.engine.AllTasksAssigned() {
		return nil, out, nil
	}
	return nil, out, s.engine.Assignments()
}

// announce posts a finished ledger. It runs without mu so a slow webhook
// does not stall other tools.
func (s *Server) announce(ctx context.Context, res *gomcp.CallToolResult, out assignmentOutput, ledger []models.Assignment) (*gomcp.CallToolResult, assignmentOutput, error) {
	if res != nil || ledger == nil || s.announcer == nil {
		return res, out, nil
	}
	if err := s.announcer.Announce(ctx, ledger); err != nil {
		return errorResult(fmt.Sprintf("assigned %s to %s but announcing failed: %s", out.Task, out.Participant, err)), out, nil
	}
	return nil, out, nil
}

func (s *Server) requireAssigning() *gomcp.CallToolResult {
	if s.engine.Phase() != models.PhaseAssigning {
		return errorResult("session not started; call start_session first")
	}
	if s.engine.AllTasksAssigned() {
		return errorResult("all tasks are assigned")
	}
	return nil
}

// state snapshots the engine. The caller holds mu.
func (s *Server) state() stateOutput {
	snap := s.engine.Snapshot()
	elig := s.engine.ComputeEligibility()
	out := stateOutput{
		Phase:        string(snap.Phase),
		Participants: nonNil(snap.Participants),
		Tasks:        nonNil(snap.Tasks),
		Assignments:  snap.Assignments,
		Cursor:       snap.Cursor,
		AllAssigned:  s.engine.AllTasksAssigned(),
		Eligible:     elig.Eligible,
		Counts:       elig.Counts,
	}
	if out.Assignments == nil {
		out.Assignments = []models.Assignment{}
	}
	if task, ok := s.engine.CurrentTask(); ok {
		out.CurrentTask = task
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	var num int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
