package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// segmentColors are the wheel segment colors, reused in order.
var segmentColors = []lipgloss.Color{
	"#FF6B6B", "#FFD93D", "#6BCB77", "#4D96FF",
	"#C77DFF", "#FF9F1C", "#2EC4B6", "#F15BB5",
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	headerStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	neutralStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	landedStyle       = lipgloss.NewStyle().Bold(true).Reverse(true)
	eligibleMark      = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render("*")
	selectedListStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	statusStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func segmentStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(segmentColors[i%len(segmentColors)])
}

func (m wheelModel) View() string {
	title := titleStyle.Render(" Task Wheel ")
	var body, help string
	if m.engine.Phase() == models.PhaseSetup {
		body = m.viewSetup()
		help = "enter: add | tab: next field | ctrl+x: remove last | up/down: pick list | ctrl+l: load list | ctrl+s: start | esc: quit"
	} else {
		body = m.viewAssigning()
		help = "space: spin | 1-9: assign eligible | u: undo | c: copy | r: reset | q: quit"
	}

	status := ""
	if m.status != "" {
		status = statusStyle.Render(m.status) + "\n\n"
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s%s", title, body, status, helpStyle.Render(help))
}

func (m wheelModel) viewSetup() string {
	var b strings.Builder

	participants := m.engine.Participants()
	b.WriteString(headerStyle.Render(fmt.Sprintf("Participants (%d)", len(participants))))
	b.WriteString("\n")
	if len(participants) == 0 {
		b.WriteString(neutralStyle.Render("  none yet"))
		b.WriteString("\n")
	}
	for i, p := range participants {
		b.WriteString(fmt.Sprintf("  %s %s\n", segmentStyle(i).Render("■"), p))
	}
	b.WriteString(m.inputs[inputParticipant].View())
	b.WriteString("\n\n")

	tasks := m.engine.Tasks()
	b.WriteString(headerStyle.Render(fmt.Sprintf("Tasks (%d)", len(tasks))))
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString(neutralStyle.Render("  none yet"))
		b.WriteString("\n")
	}
	for i, task := range tasks {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, task))
	}
	b.WriteString(m.inputs[inputTask].View())
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Saved lists"))
	b.WriteString("\n")
	names := m.listNames()
	if len(names) == 0 {
		b.WriteString(neutralStyle.Render("  none saved"))
		b.WriteString("\n")
	}
	for i, name := range names {
		members, _ := m.lists.Get(name)
		line := fmt.Sprintf("%s (%d)", name, len(members))
		if i == m.listIdx {
			b.WriteString("> " + selectedListStyle.Render(line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString(m.inputs[inputListName].View())

	return b.String()
}

func (m wheelModel) viewAssigning() string {
	var b strings.Builder

	if task, ok := m.engine.CurrentTask(); ok {
		b.WriteString(headerStyle.Render("Current task: "))
		b.WriteString(task)
	} else {
		b.WriteString(headerStyle.Render(statusAllAssigned))
	}
	b.WriteString("\n\n")

	order, pointer, landed := m.wheelSegments()
	b.WriteString(panelStyle.Render(renderWheel(order, pointer, landed)))
	b.WriteString("\n")

	switch {
	case m.wheel.Spinning():
		b.WriteString(statusSpinning)
	default:
		if last, ok := m.engine.LastResult(); ok {
			b.WriteString(fmt.Sprintf("%s -> %s", last.Task, last.Participant))
		}
	}
	b.WriteString("\n\n")

	elig := m.engine.ComputeEligibility()
	eligible := make(map[string]int, len(elig.Eligible))
	for i, p := range elig.Eligible {
		eligible[p] = i + 1
	}
	b.WriteString(headerStyle.Render("Workload"))
	b.WriteString("\n")
	for _, p := range m.engine.Participants() {
		mark := " "
		key := "  "
		if n, ok := eligible[p]; ok {
			mark = eligibleMark
			if n <= 9 {
				key = fmt.Sprintf("%d)", n)
			}
		}
		b.WriteString(fmt.Sprintf("  %s %s %-20s %d\n", key, mark, p, elig.Counts[p]))
	}

	assignments := m.engine.Assignments()
	if len(assignments) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Assignments"))
		b.WriteString("\n")
		for i := len(assignments) - 1; i >= 0; i-- {
			b.WriteString(fmt.Sprintf("  %s -> %s\n", assignments[i].Task, assignments[i].Participant))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// wheelSegments returns what the wheel shows: the spun order with the
// segment under the pointer while spinning or settled, otherwise the
// current eligible participants with nothing highlighted.
func (m wheelModel) wheelSegments() (order []string, pointer int, landed bool) {
	switch m.wheel.State() {
	case core.WheelSpinning:
		order = m.wheel.Order()
		return order, core.SegmentAt(core.LandingAngle(m.rotation), len(order)), false
	case core.WheelSettled:
		return m.wheel.Order(), m.wheel.Highlighted(), true
	default:
		if m.engine.AllTasksAssigned() {
			return nil, -1, false
		}
		return m.engine.ComputeEligibility().Eligible, -1, false
	}
}

// renderWheel draws the segments as a column with the pointer beside the
// segment it is over.
func renderWheel(order []string, pointer int, landed bool) string {
	if len(order) == 0 {
		return neutralStyle.Render("no one to spin")
	}

	var b strings.Builder
	for i, name := range order {
		arrow := "  "
		if i == pointer {
			arrow = "▶ "
		}
		label := name
		if landed && i == pointer {
			label = landedStyle.Render(" " + name + " ")
		}
		b.WriteString(arrow + segmentStyle(i).Render("██") + " " + label)
		if i < len(order)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
