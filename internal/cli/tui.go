package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/internal/integration"
	"github.com/valter-silva-au/task-wheel/internal/observability"
	"github.com/valter-silva-au/task-wheel/internal/storage"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// frameInterval is the redraw rate while the wheel spins.
const frameInterval = 50 * time.Millisecond

// Setup form fields.
const (
	inputParticipant = iota
	inputTask
	inputListName
	inputCount
)

// Status texts for the copy action.
const (
	statusCopied      = "Copied!"
	statusCopyFailed  = "Error!"
	statusSpinning    = "Spinning..."
	statusAllAssigned = "All Done!"
)

type spinSettledMsg struct{}

type frameMsg struct{}

type statusExpiredMsg struct{ seq int }

type announcedMsg struct{ err error }

// tickScheduler hands the wheel's settle callback to the bubbletea loop so
// the engine is only ever touched from Update.
type tickScheduler struct {
	delay   time.Duration
	pending func()
}

func (s *tickScheduler) AfterFunc(d time.Duration, f func()) {
	s.delay = d
	s.pending = f
}

func (s *tickScheduler) cmd() tea.Cmd {
	return tea.Tick(s.delay, func(time.Time) tea.Msg { return spinSettledMsg{} })
}

func (s *tickScheduler) fire() bool {
	f := s.pending
	s.pending = nil
	if f == nil {
		return false
	}
	f()
	return true
}

type wheelModel struct {
	engine    *core.AssignmentEngine
	wheel     *core.Wheel
	sched     *tickScheduler
	lists     storage.NamedListManager
	clipboard integration.Clipboard
	announcer observability.Announcer
	revert    time.Duration

	inputs  []textinput.Model
	focus   int
	listIdx int

	spinStart time.Time
	rotation  float64
	status    string
	statusSeq int
	width     int
}

func newWheelModel(engine *core.AssignmentEngine, lists storage.NamedListManager, clipboard integration.Clipboard, announcer observability.Announcer, cfg models.WheelConfig, opts ...core.WheelOption) wheelModel {
	sched := &tickScheduler{}
	wheelOpts := append([]core.WheelOption{
		core.WithSpinDuration(cfg.SpinDuration),
		core.WithFullRotations(cfg.FullRotations),
		core.WithScheduler(sched),
	}, opts...)

	m := wheelModel{
		engine: engine,
		wheel: core.NewWheel(func(target string) {
			engine.CommitAssignment(target)
		}, wheelOpts...),
		sched:     sched,
		lists:     lists,
		clipboard: clipboard,
		announcer: announcer,
		revert:    cfg.StatusRevert,
		inputs:    make([]textinput.Model, inputCount),
	}

	placeholders := [inputCount]string{"Participant name", "Task, e.g. CR-1234", "List name"}
	limits := [inputCount]int{64, 256, 64}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = limits[i]
		m.inputs[i] = ti
	}
	m.setFocus(inputParticipant)
	return m
}

func (m wheelModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wheelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinSettledMsg:
		return m.settle()

	case frameMsg:
		if !m.wheel.Spinning() {
			return m, nil
		}
		m.rotation = m.wheel.Frame(time.Since(m.spinStart))
		return m, frameTick()

	case statusExpiredMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case announcedMsg:
		if msg.err != nil {
			cmd := m.setStatus("Announce failed: " + msg.err.Error())
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.engine.Phase() == models.PhaseSetup {
			return m.updateSetup(msg)
		}
		return m.updateAssigning(msg)
	}

	if m.engine.Phase() == models.PhaseSetup {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

// --- Setup ---

func (m wheelModel) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab":
		m.setFocus((m.focus + 1) % inputCount)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + inputCount - 1) % inputCount)
		return m, nil
	case "up":
		m.moveListSelection(-1)
		return m, nil
	case "down":
		m.moveListSelection(1)
		return m, nil
	case "enter":
		cmd := m.submit()
		return m, cmd
	case "ctrl+s":
		cmd := m.start()
		return m, cmd
	case "ctrl+x":
		cmd := m.removeLast()
		return m, cmd
	case "ctrl+l":
		cmd := m.loadSelectedList()
		return m, cmd
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *wheelModel) setFocus(i int) {
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	m.inputs[i].Focus()
}

func (m *wheelModel) submit() tea.Cmd {
	value := strings.TrimSpace(m.inputs[m.focus].Value())
	switch m.focus {
	case inputParticipant:
		if m.engine.AddParticipant(value) {
			m.inputs[m.focus].SetValue("")
		}
	case inputTask:
		if m.engine.AddTask(value) {
			m.inputs[m.focus].SetValue("")
		}
	case inputListName:
		return m.saveList(value)
	}
	return nil
}

func (m *wheelModel) start() tea.Cmd {
	if err := m.engine.Start(); err != nil {
		return m.setStatus(core.MsgNeedParticipantsAndTasks)
	}
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.status = ""
	return nil
}

func (m *wheelModel) removeLast() tea.Cmd {
	switch m.focus {
	case inputParticipant:
		if ps := m.engine.Participants(); len(ps) > 0 {
			m.engine.RemoveParticipant(ps[len(ps)-1])
		}
	case inputTask:
		m.engine.RemoveTask(len(m.engine.Tasks()) - 1)
	case inputListName:
		return m.deleteSelectedList()
	}
	return nil
}

func (m *wheelModel) listNames() []string {
	if m.lists == nil {
		return nil
	}
	return m.lists.Names()
}

func (m *wheelModel) selectedList() (string, bool) {
	names := m.listNames()
	if len(names) == 0 {
		return "", false
	}
	m.listIdx = min(max(m.listIdx, 0), len(names)-1)
	return names[m.listIdx], true
}

func (m *wheelModel) moveListSelection(delta int) {
	names := m.listNames()
	if len(names) == 0 {
		return
	}
	m.listIdx = (m.listIdx + delta + len(names)) % len(names)
}

func (m *wheelModel) saveList(name string) tea.Cmd {
	if m.lists == nil {
		return m.setStatus("Saved lists are unavailable.")
	}
	err := m.lists.Save(name, m.engine.Participants())
	if errors.Is(err, storage.ErrEmptyListName) || errors.Is(err, storage.ErrEmptyList) {
		return m.setStatus(core.MsgNeedListNameAndParticipants)
	}
	m.inputs[inputListName].SetValue("")
	m.listIdx = max(slices.Index(m.lists.Names(), name), 0)
	if err != nil {
		return m.setStatus(fmt.Sprintf("Saved %q for this session only: %s", name, err))
	}
	return m.setStatus(fmt.Sprintf("Saved %q.", name))
}

func (m *wheelModel) loadSelectedList() tea.Cmd {
	name, ok := m.selectedList()
	if !ok {
		return m.setStatus("No saved lists.")
	}
	members, _ := m.lists.Get(name)
	m.engine.LoadParticipants(members)
	return m.setStatus(fmt.Sprintf("Loaded %q.", name))
}

func (m *wheelModel) deleteSelectedList() tea.Cmd {
	name, ok := m.selectedList()
	if !ok {
		return nil
	}
	if err := m.lists.Delete(name); err != nil {
		return m.setStatus(fmt.Sprintf("Deleted %q for this session only: %s", name, err))
	}
	m.listIdx = max(m.listIdx-1, 0)
	return m.setStatus(fmt.Sprintf("Deleted %q.", name))
}

// --- Assigning ---

func (m wheelModel) updateAssigning(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "esc":
		return m, tea.Quit
	case " ", "enter", "s":
		cmd := m.spin()
		return m, cmd
	case "u":
		cmd := m.undo()
		return m, cmd
	case "c":
		cmd := m.copyLedger()
		return m, cmd
	case "r":
		cmd := m.reset()
		return m, cmd
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
		cmd := m.assignManual(n)
		return m, cmd
	}
	return m, nil
}

func (m *wheelModel) spin() tea.Cmd {
	if m.wheel.Spinning() || m.engine.AllTasksAssigned() {
		return nil
	}
	m.wheel.Acknowledge()

	eligible := m.engine.ComputeEligibility().Eligible
	target, ok := m.engine.SelectRandom(eligible)
	if !ok || !m.wheel.StartSpin(target, eligible) {
		return nil
	}
	m.spinStart = time.Now()
	m.rotation = m.wheel.Frame(0)
	return tea.Batch(m.sched.cmd(), frameTick())
}

func (m wheelModel) settle() (tea.Model, tea.Cmd) {
	if !m.sched.fire() {
		return m, nil
	}
	m.rotation = m.wheel.Rotation()
	cmd := m.announceIfDone()
	return m, cmd
}

func (m *wheelModel) assignManual(n int) tea.Cmd {
	if m.wheel.Spinning() {
		return nil
	}
	eligible := m.engine.ComputeEligibility().Eligible
	if n > len(eligible) {
		return nil
	}
	m.wheel.Acknowledge()
	if !m.engine.AssignManual(eligible[n-1]) {
		return nil
	}
	return m.announceIfDone()
}

func (m *wheelModel) undo() tea.Cmd {
	if m.wheel.Spinning() {
		return nil
	}
	m.wheel.Acknowledge()
	m.engine.UndoLast()
	return nil
}

func (m *wheelModel) copyLedger() tea.Cmd {
	if m.clipboard == nil {
		return m.setStatus(statusCopyFailed)
	}
	if err := m.clipboard.Copy(core.FormatLedger(m.engine.Assignments())); err != nil {
		return m.setStatus(statusCopyFailed)
	}
	return m.setStatus(statusCopied)
}

func (m *wheelModel) reset() tea.Cmd {
	if m.wheel.Spinning() {
		return nil
	}
	m.wheel.Acknowledge()
	m.engine.Reset()
	m.status = ""
	m.setFocus(inputParticipant)
	return nil
}

func (m *wheelModel) announceIfDone() tea.Cmd {
	if m.announcer == nil || !m.engine.AllTasksAssigned() {
		return nil
	}
	announcer := m.announcer
	ledger := m.engine.Assignments()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return announcedMsg{err: announcer.Announce(ctx, ledger)}
	}
}

// setStatus shows text until the revert delay passes or another status
// replaces it.
func (m *wheelModel) setStatus(text string) tea.Cmd {
	m.status = text
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(m.revert, func(time.Time) tea.Msg { return statusExpiredMsg{seq: seq} })
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

// --- Command ---

func runTUI() error {
	m := newWheelModel(newEngine(), Lists, Clipboard, Announcer, wheelConfig())
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive wheel",
	Long: `Open the interactive wheel.

Setup: type a participant, task or list name and press enter. Tab moves
between fields, ctrl+x removes the last entry (or deletes the selected list),
up/down picks a saved list, ctrl+l loads it, and ctrl+s starts assigning.

Assigning: space spins, 1-9 assigns the current task to that eligible
participant, u undoes, c copies the assignments, r resets.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
