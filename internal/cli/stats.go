package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const defaultStatsWindow = 30 * 24 * time.Hour

var (
	statsJSON  bool
	statsSince string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show who has been assigned how much",
	Long: `Show workload figures derived from the event log.

Each committed assignment counts toward its participant and each undo takes
one back. Session starts, completions and resets are counted too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Stats == nil {
			return fmt.Errorf("stats not initialized (event log may be disabled)")
		}

		sinceTime, err := parseSinceDuration(statsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		stats, err := Stats.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating stats: %w", err)
		}

		if statsJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting stats as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Workload (since %s)\n\n", sinceTime.Format("2006-01-02"))
		ranking := stats.Ranking()
		if len(ranking) == 0 {
			fmt.Println("  No assignments recorded.")
		}
		for _, load := range ranking {
			fmt.Printf("  %-24s %d\n", load.Participant+":", load.Assigned)
		}

		fmt.Println()
		fmt.Printf("  %-24s %d\n", "Sessions started:", stats.SessionsStarted)
		fmt.Printf("  %-24s %d\n", "Sessions completed:", stats.SessionsCompleted)
		fmt.Printf("  %-24s %d\n", "Sessions reset:", stats.SessionsReset)
		fmt.Printf("  %-24s %d\n", "Assignments:", stats.Assignments)
		fmt.Printf("  %-24s %d\n", "Undos:", stats.Undos)
		if stats.Warnings > 0 {
			fmt.Printf("  %-24s %d\n", "Store warnings:", stats.Warnings)
		}

		if stats.OldestEvent != nil {
			fmt.Printf("\n  %-24s %s\n", "Oldest event:", stats.OldestEvent.Format(time.RFC3339))
		}
		if stats.NewestEvent != nil {
			fmt.Printf("  %-24s %s\n", "Newest event:", stats.NewestEvent.Format(time.RFC3339))
		}
		return nil
	},
}

// parseSinceDuration parses a window like "7d" or "24h" and returns the
// corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.Add(-defaultStatsWindow), nil
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -n), nil
	}

	if hours, ok := strings.CutSuffix(s, "h"); ok {
		n, err := strconv.Atoi(hours)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(n) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output stats as JSON")
	statsCmd.Flags().StringVar(&statsSince, "since", "30d", "Time window (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(statsCmd)
}
