package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/internal/observability"
	"github.com/valter-silva-au/task-wheel/internal/storage"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// --- Fake implementations ---

type fakeStatsCalculator struct {
	stats *observability.Stats
	since time.Time
}

func (f *fakeStatsCalculator) Calculate(since time.Time) (*observability.Stats, error) {
	f.since = since
	return f.stats, nil
}

type fakeAnnouncer struct {
	ledgers [][]models.Assignment
	err     error
}

func (f *fakeAnnouncer) Announce(_ context.Context, assignments []models.Assignment) error {
	f.ledgers = append(f.ledgers, assignments)
	return f.err
}

// blockingAnnouncer holds Announce until release is closed.
type blockingAnnouncer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingAnnouncer) Announce(ctx context.Context, _ []models.Assignment) error {
	close(b.started)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- Test helpers ---

func newTestServer(announcer observability.Announcer) (*Server, storage.NamedListManager) {
	engine := core.NewAssignmentEngine(core.WithRand(rand.New(rand.NewPCG(1, 2))))
	lists := storage.NewNamedListManager(storage.NewMemoryKVStore(), nil)
	return NewServer(engine, lists, nil, announcer, "test"), lists
}

// connect runs srv over in-memory transports and returns a client session
// that lives for the rest of the test.
func connect(t *testing.T, srv *Server) *gomcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func call(t *testing.T, session *gomcp.ClientSession, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	if args == nil {
		args = map[string]any{}
	}
	result, err := session.CallTool(context.Background(), &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}
	return result
}

// mustCall calls a tool and fails the test on a tool error.
func mustCall(t *testing.T, session *gomcp.ClientSession, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()
	result := call(t, session, toolName, args)
	if result.IsError {
		t.Fatalf("%s: unexpected tool error: %s", toolName, extractText(result))
	}
	return result
}

func decode[T any](t *testing.T, result *gomcp.CallToolResult) T {
	t.Helper()

	var out T
	if result.StructuredContent != nil {
		data, _ := json.Marshal(result.StructuredContent)
		if err := json.Unmarshal(data, &out); err == nil {
			return out
		}
	}
	if err := json.Unmarshal([]byte(extractText(result)), &out); err != nil {
		t.Fatalf("decoding output: %v (text was: %s)", err, extractText(result))
	}
	return out
}

func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func setupSession(t *testing.T, session *gomcp.ClientSession, participants, tasks []string) {
	t.Helper()
	for _, p := range participants {
		mustCall(t, session, "add_participant", map[string]any{"name": p})
	}
	for _, task := range tasks {
		mustCall(t, session, "add_task", map[string]any{"task": task})
	}
}

// --- Tests ---

func TestSetupAndGetState(t *testing.T) {
	srv, _ := newTestServer(nil)
	session := connect(t, srv)

	setupSession(t, session, []string{"Alice", "Bob"}, []string{"CR-1", "CR-1"})

	dup := call(t, session, "add_participant", map[string]any{"name": " Alice "})
	if !dup.IsError {
		t.Error("duplicate participant should be reported")
	}

	state := decode[stateOutput](t, mustCall(t, session, "get_state", nil))
	if state.Phase != string(models.PhaseSetup) {
		t.Errorf("phase = %s, want setup", state.Phase)
	}
	if !reflect.DeepEqual(state.Participants, []string{"Alice", "Bob"}) {
		t.Errorf("participants = %v", state.Participants)
	}
	if !reflect.DeepEqual(state.Tasks, []string{"CR-1", "CR-1"}) {
		t.Errorf("tasks = %v", state.Tasks)
	}
}

func TestStartSessionRequiresInput(t *testing.T) {
	srv, _ := newTestServer(nil)
	session := connect(t, srv)

	result := call(t, session, "start_session", nil)
	if !result.IsError {
		t.Fatal("expected error when nothing was added")
	}
	if extractText(result) != core.MsgNeedParticipantsAndTasks {
		t.Errorf("message = %q", extractText(result))
	}
}

func TestSpinAssignsFairly(t *testing.T) {
	srv, _ := newTestServer(nil)
	session := connect(t, srv)

	setupSession(t, session, []string{"Alice", "Bob", "Carol"}, []string{"T1", "T2", "T3", "T4"})
	mustCall(t, session, "start_session", nil)

	counts := map[string]int{}
	for range 3 {
		out := decode[assignmentOutput](t, mustCall(t, session, "spin", nil))
		counts[out.Participant]++
	}
	for _, p := range []string{"Alice", "Bob", "Carol"} {
		if counts[p] != 1 {
			t.Errorf("after one round %s has %d assignments, want 1 (counts %v)", p, counts[p], counts)
		}
	}

	out := decode[assignmentOutput](t, mustCall(t, session, "spin", nil))
	if out.Task != "T4" || !out.State.AllAssigned {
		t.Errorf("last spin = %+v", out)
	}

	if result := call(t, session, "spin", nil); !result.IsError {
		t.Error("spin after every task is assigned should fail")
	}
}

func TestSpinBeforeStart(t *testing.T) {
	srv, _ := newTestServer(nil)
	session := connect(t, srv)
	setupSession(t, session, []string{"Alice"}, []string{"T1"})

	result := call(t, session, "spin", nil)
	if !result.IsError || !strings.Contains(extractText(result), "start_session") {
		t.Errorf("expected not-started error, got %q", extractText(result))
	}
}

func TestAssignManualOnlyEligible(t *testing.T) {
	srv, _ := newTestServer(nil)
	session := connect(t, srv)
	setupSession(t, session, []string{"Alice", "Bob"}, []string{"T1", "T2"})
	mustCall(t, session, "start_session", nil)

	out := decode[assignmentOutput](t, mustCall(t, session, "assign_manual", map[string]any{"participant": "Bob"}))
	if out.Task != "T1" || out.Participant != "Bob" {
		t.Errorf("assignment = %+v", out)
	}

	result := call(t, session, "assign_manual", map[string]any{"participant": "Bob"})
	if !result.IsError {
		t.Fatal("Bob is no longer eligible")
	}
	if !strings.Contains(extractText(result), "Alice") {
		t.Errorf("error should list eligible participants: %q", extractText(result))
	}
}

func TestUndoAndExport(t *testing.T) {
	srv, _ := newTestServer(nil)
	session := connect(t, srv)
	setupSession(t, session, []string{"Alice", "Bob"}, []string{"T1", "T2"})
	mustCall(t, session, "start_session", nil)

	if result := call(t, session, "undo_last", nil); !result.IsError {
		t.Error("undo with an empty ledger should fail")
	}

	mustCall(t, session, "assign_manual", map[string]any{"participant": "Alice"})
	mustCall(t, session, "assign_manual", map[string]any{"participant": "Bob"})

	export := decode[exportOutput](t, mustCall(t, session, "export_log", nil))
	if export.Log != "T1 -> Alice\nT2 -> Bob" || export.Count != 2 {
		t.Errorf("export = %+v", export)
	}

	state := decode[stateOutput](t, mustCall(t, session, "undo_last", nil))
	if state.Cursor != 1 || state.CurrentTask != "T2" {
		t.Errorf("after undo cursor=%d current=%q", state.Cursor, state.CurrentTask)
	}
}

func TestResetSession(t *testing.T) {
	srv, lists := newTestServer(nil)
	session := connect(t, srv)
	_ = lists.Save("team", []string{"Alice"})
	setupSession(t, session, []string{"Alice"}, []string{"T1"})
	mustCall(t, session, "start_session", nil)

	state := decode[stateOutput](t, mustCall(t, session, "reset_session", nil))
	if state.Phase != string(models.PhaseSetup) || len(state.Participants) != 0 || len(state.Tasks) != 0 {
		t.Errorf("state after reset = %+v", state)
	}
	if _, ok := lists.Get("team"); !ok {
		t.Error("reset must not touch saved lists")
	}
}

func TestNamedLists(t *testing.T) {
	srv, lists := newTestServer(nil)
	session := connect(t, srv)
	_ = lists.Save("backend", []string{"Alice", "Bob"})

	out := decode[namedListsOutput](t, mustCall(t, session, "list_named_lists", nil))
	if !reflect.DeepEqual(out.Names, []string{"backend"}) {
		t.Errorf("names = %v", out.Names)
	}

	mustCall(t, session, "add_participant", map[string]any{"name": "Old"})
	state := decode[stateOutput](t, mustCall(t, session, "load_named_list", map[string]any{"name": "backend"}))
	if !reflect.DeepEqual(state.Participants, []string{"Alice", "Bob"}) {
		t.Errorf("participants after load = %v", state.Participants)
	}

	if result := call(t, session, "load_named_list", map[string]any{"name": "missing"}); !result.IsError {
		t.Error("loading an unknown list should fail")
	}

	mustCall(t, session, "add_participant", map[string]any{"name": "Carol"})
	mustCall(t, session, "save_named_list", map[string]any{"name": "everyone"})
	got, ok := lists.Get("everyone")
	if !ok || !reflect.DeepEqual(got, []string{"Alice", "Bob", "Carol"}) {
		t.Errorf("saved list = %v, %v", got, ok)
	}

	result := call(t, session, "save_named_list", map[string]any{"name": "  "})
	if !result.IsError || extractText(result) != core.MsgNeedListNameAndParticipants {
		t.Errorf("blank list name: %q", extractText(result))
	}
}

func TestLoadNamedListWhileAssigning(t *testing.T) {
	srv, lists := newTestServer(nil)
	session := connect(t, srv)
	_ = lists.Save("team", []string{"Zed"})
	setupSession(t, session, []string{"Alice"}, []string{"T1"})
	mustCall(t, session, "start_session", nil)

	if result := call(t, session, "load_named_list", map[string]any{"name": "team"}); !result.IsError {
		t.Error("loading a list while assigning should fail")
	}
}

func TestAnnouncesFinishedSession(t *testing.T) {
	announcer := &fakeAnnouncer{}
	srv, _ := newTestServer(announcer)
	session := connect(t, srv)
	setupSession(t, session, []string{"Alice"}, []string{"T1", "T2"})
	mustCall(t, session, "start_session", nil)

	mustCall(t, session, "spin", nil)
	if len(announcer.ledgers) != 0 {
		t.Fatal("announced before the session finished")
	}
	mustCall(t, session, "spin", nil)
	if len(announcer.ledgers) != 1 || len(announcer.ledgers[0]) != 2 {
		t.Fatalf("ledgers = %v", announcer.ledgers)
	}
}

func TestAnnounceFailureKeepsAssignment(t *testing.T) {
	announcer := &fakeAnnouncer{err: errors.New("webhook down")}
	srv, _ := newTestServer(announcer)
	session := connect(t, srv)
	setupSession(t, session, []string{"Alice"}, []string{"T1"})
	mustCall(t, session, "start_session", nil)

	result := call(t, session, "spin", nil)
	if !result.IsError || !strings.Contains(extractText(result), "webhook down") {
		t.Errorf("expected announce error, got %q", extractText(result))
	}
	state := decode[stateOutput](t, mustCall(t, session, "get_state", nil))
	if len(state.Assignments) != 1 {
		t.Errorf("assignment should be kept, got %v", state.Assignments)
	}
}

func TestAnnounceDoesNotBlockOtherTools(t *testing.T) {
	announcer := &blockingAnnouncer{started: make(chan struct{}), release: make(chan struct{})}
	srv, _ := newTestServer(announcer)
	srv.engine.AddParticipant("Alice")
	srv.engine.AddTask("T1")
	if err := srv.engine.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan *gomcp.CallToolResult, 1)
	go func() {
		res, _, _ := srv.handleSpin(context.Background(), nil, emptyInput{})
		done <- res
	}()

	select {
	case <-announcer.started:
	case <-time.After(5 * time.Second):
		t.Fatal("announcement never started")
	}

	stateDone := make(chan stateOutput, 1)
	go func() {
		_, state, _ := srv.handleGetState(context.Background(), nil, emptyInput{})
		stateDone <- state
	}()
	select {
	case state := <-stateDone:
		if !state.AllAssigned || len(state.Assignments) != 1 {
			t.Errorf("state during announcement = %+v", state)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("get_state blocked while the announcement was in flight")
	}

	close(announcer.release)
	select {
	case res := <-done:
		if res != nil && res.IsError {
			t.Errorf("spin failed: %s", extractText(res))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("spin never returned")
	}
}

func TestGetStats(t *testing.T) {
	stats := &fakeStatsCalculator{stats: &observability.Stats{
		SessionsStarted: 2,
		Assignments:     3,
		Workload:        map[string]int{"Alice": 2, "Bob": 1},
	}}
	engine := core.NewAssignmentEngine()
	srv := NewServer(engine, nil, stats, nil, "test")
	session := connect(t, srv)

	out := decode[statsOutput](t, mustCall(t, session, "get_stats", map[string]any{"since": "7d"}))
	if out.SessionsStarted != 2 || out.Assignments != 3 {
		t.Errorf("stats = %+v", out)
	}
	want := []observability.ParticipantLoad{{Participant: "Alice", Assigned: 2}, {Participant: "Bob", Assigned: 1}}
	if !reflect.DeepEqual(out.Workload, want) {
		t.Errorf("workload = %v, want %v", out.Workload, want)
	}
	if d := time.Since(stats.since); d < 7*24*time.Hour-time.Minute || d > 7*24*time.Hour+time.Minute {
		t.Errorf("since = %v, want about 7 days ago", stats.since)
	}

	if result := call(t, session, "get_stats", map[string]any{"since": "7w"}); !result.IsError {
		t.Error("bad duration should fail")
	}
}

func TestUnavailableServices(t *testing.T) {
	srv := NewServer(core.NewAssignmentEngine(), nil, nil, nil, "")
	session := connect(t, srv)

	for _, tool := range []string{"get_stats", "list_named_lists"} {
		if result := call(t, session, tool, nil); !result.IsError {
			t.Errorf("%s should report it is unavailable", tool)
		}
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"7d", false},
		{"24h", false},
		{"30d", false},
		{"", true},
		{"d", true},
		{"7w", true},
		{"xd", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseSince(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseSince(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
