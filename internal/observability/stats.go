package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/task-wheel/internal/core"
)

// Stats holds workload figures derived from the event log.
type Stats struct {
	SessionsStarted   int            `json:"sessions_started"`
	SessionsCompleted int            `json:"sessions_completed"`
	SessionsReset     int            `json:"sessions_reset"`
	Assignments       int            `json:"assignments"`
	Undos             int            `json:"undos"`
	Warnings          int            `json:"warnings"`
	Workload          map[string]int `json:"workload"`
	EventCount        int            `json:"event_count"`
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
}

// ParticipantLoad is one row of the workload ranking.
type ParticipantLoad struct {
	Participant string `json:"participant"`
	Assigned    int    `json:"assigned"`
}

// Ranking returns the workload sorted by assignment count, highest first,
// then by name.
func (s *Stats) Ranking() []ParticipantLoad {
	rows := make([]ParticipantLoad, 0, len(s.Workload))
	for p, n := range s.Workload {
		rows = append(rows, ParticipantLoad{Participant: p, Assigned: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Assigned != rows[j].Assigned {
			return rows[i].Assigned > rows[j].Assigned
		}
		return rows[i].Participant < rows[j].Participant
	})
	return rows
}

// StatsCalculator derives Stats from the event log.
type StatsCalculator interface {
	Calculate(since time.Time) (*Stats, error)
}

type statsCalculator struct {
	eventLog EventLog
}

// NewStatsCalculator creates a StatsCalculator that reads from eventLog.
func NewStatsCalculator(eventLog EventLog) StatsCalculator {
	return &statsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event at or after since. An undone assignment
// is subtracted from its participant's workload only when the matching
// commit is inside the window.
func (sc *statsCalculator) Calculate(since time.Time) (*Stats, error) {
	events, err := sc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for stats: %w", err)
	}

	s := &Stats{Workload: make(map[string]int), EventCount: len(events)}
	open := make(map[string]int)

	for i, event := range events {
		t := event.Time
		if i == 0 {
			s.OldestEvent = &t
		}
		s.NewestEvent = &t

		if event.Level == LevelWarn {
			s.Warnings++
		}

		switch event.Type {
		case core.EventSessionStarted:
			s.SessionsStarted++
		case core.EventSessionCompleted:
			s.SessionsCompleted++
		case core.EventSessionReset:
			s.SessionsReset++
		case core.EventAssignmentCommitted:
			if p, ok := event.Data["participant"].(string); ok {
				s.Assignments++
				s.Workload[p]++
				open[commitKey(event, p)]++
			}
		case core.EventAssignmentUndone:
			if p, ok := event.Data["participant"].(string); ok {
				s.Undos++
				key := commitKey(event, p)
				if open[key] == 0 {
					continue
				}
				open[key]--
				s.Assignments--
				s.Workload[p]--
				if s.Workload[p] <= 0 {
					delete(s.Workload, p)
				}
			}
		}
	}

	return s, nil
}

// commitKey identifies the ledger slot an assignment event refers to.
func commitKey(event Event, participant string) string {
	return fmt.Sprintf("%s/%v/%s", event.Session, event.Data["index"], participant)
}
