package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

var (
	assignParticipants []string
	assignTasks        []string
	assignList         string
	assignSeed         uint64
	assignCopy         bool
	assignAnnounce     bool
	assignJSON         bool
)

type assignResult struct {
	Assignments []models.Assignment `json:"assignments"`
	Workload    map[string]int      `json:"workload"`
}

var assignCmd = &cobra.Command{
	Use:   "assign [task...]",
	Short: "Assign every task without the interactive wheel",
	Long: `Assign every task at once. Each task goes to a random participant among
those with the fewest assignments so far, exactly as repeated spins would.

Tasks come from --tasks and any positional arguments. Participants come from
--list and --participants.`,
	Example: `  wheel assign --participants alice,bob,carol --tasks CR-101,CR-102,CR-103
  wheel assign --list backend CR-101 CR-102 --copy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []core.EngineOption
		if assignSeed != 0 {
			opts = append(opts, core.WithRand(rand.New(rand.NewPCG(assignSeed, assignSeed))))
		}
		e := newEngine(opts...)

		if assignList != "" {
			if Lists == nil {
				return fmt.Errorf("named lists not initialized")
			}
			members, ok := Lists.Get(assignList)
			if !ok {
				return fmt.Errorf("no saved list named %q", assignList)
			}
			e.LoadParticipants(members)
		}
		for _, p := range assignParticipants {
			e.AddParticipant(p)
		}
		for _, t := range append(append([]string{}, assignTasks...), args...) {
			e.AddTask(t)
		}

		if err := e.Start(); err != nil {
			if errors.Is(err, core.ErrNoParticipants) || errors.Is(err, core.ErrNoTasks) {
				return errors.New(core.MsgNeedParticipantsAndTasks)
			}
			return fmt.Errorf("starting session: %w", err)
		}
		for !e.AllTasksAssigned() {
			name, ok := e.SelectRandom(e.ComputeEligibility().Eligible)
			if !ok || !e.CommitAssignment(name) {
				return fmt.Errorf("assignment stopped at task %d", e.Cursor()+1)
			}
		}

		ledger := core.FormatLedger(e.Assignments())
		if assignJSON {
			data, err := json.MarshalIndent(assignResult{
				Assignments: e.Assignments(),
				Workload:    e.ComputeEligibility().Counts,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting assignments as JSON: %w", err)
			}
			fmt.Println(string(data))
		} else {
			fmt.Println(ledger)
		}

		if assignCopy {
			switch {
			case Clipboard == nil:
				fmt.Fprintln(os.Stderr, "warning: clipboard not initialized")
			default:
				if err := Clipboard.Copy(ledger); err != nil {
					fmt.Fprintf(os.Stderr, "warning: copying to clipboard: %v\n", err)
				} else {
					fmt.Fprintln(os.Stderr, statusCopied)
				}
			}
		}

		if assignAnnounce {
			if Announcer == nil {
				fmt.Fprintln(os.Stderr, "warning: no Slack webhook configured (notifications.slack.webhook_url)")
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := Announcer.Announce(ctx, e.Assignments()); err != nil {
				fmt.Fprintf(os.Stderr, "warning: announcing to Slack: %v\n", err)
			}
		}
		return nil
	},
}

func init() {
	assignCmd.Flags().StringSliceVarP(&assignParticipants, "participants", "p", nil, "Participants, comma separated")
	assignCmd.Flags().StringSliceVarP(&assignTasks, "tasks", "t", nil, "Tasks, comma separated")
	assignCmd.Flags().StringVarP(&assignList, "list", "l", "", "Load participants from a saved list")
	assignCmd.Flags().Uint64Var(&assignSeed, "seed", 0, "Random seed for a repeatable result (0 picks one)")
	assignCmd.Flags().BoolVar(&assignCopy, "copy", false, "Copy the assignments to the clipboard")
	assignCmd.Flags().BoolVar(&assignAnnounce, "announce", false, "Post the assignments to the configured Slack webhook")
	assignCmd.Flags().BoolVar(&assignJSON, "json", false, "Output assignments as JSON")
	_ = assignCmd.RegisterFlagCompletionFunc("list", completeListFlag)
	rootCmd.AddCommand(assignCmd)
}
