package models

// Phase is the lifecycle phase of an assignment session.
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseAssigning Phase = "assigning"
)

// Assignment records a task handed to a participant. Assignments are created
// only by committing a selection and are never edited afterwards.
type Assignment struct {
	Task        string `yaml:"task" json:"task"`
	Participant string `yaml:"participant" json:"participant"`
}

// Eligibility is the fairness view derived from the current participants and
// the assignment ledger.
type Eligibility struct {
	// Eligible holds the participants tied for the fewest assignments, in
	// participant order.
	Eligible []string `json:"eligible"`
	// Counts maps every current participant to its assignment count.
	Counts map[string]int `json:"counts"`
}

// SessionSnapshot is a read-only copy of an engine's state.
type SessionSnapshot struct {
	Phase        Phase        `json:"phase"`
	Participants []string     `json:"participants"`
	Tasks        []string     `json:"tasks"`
	Assignments  []Assignment `json:"assignments"`
	Cursor       int          `json:"cursor"`
}
