package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

var (
	initBackend string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter .wheelconfig.yaml",
	Long: `Write a .wheelconfig.yaml with the default settings into path (the
current directory by default). wheel uses the nearest directory holding this
file as its home, so saved lists and the event log live next to it.

An existing file is left alone unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		backend := strings.ToLower(strings.TrimSpace(initBackend))
		if backend != models.StoreBackendYAML && backend != models.StoreBackendSQLite {
			return fmt.Errorf("unsupported --backend %q (use yaml or sqlite)", initBackend)
		}

		target := filepath.Join(absDir, core.ConfigFileName+".yaml")
		if _, err := os.Stat(target); err == nil && !initForce {
			fmt.Printf("Skipped %s (already exists; use --force to overwrite)\n", target)
			return nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", target, err)
		}

		if err := os.MkdirAll(absDir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", absDir, err)
		}
		if err := os.WriteFile(target, []byte(starterConfig(backend)), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", target, err)
		}

		fmt.Printf("Created %s\n", target)
		return nil
	},
}

// starterConfig renders the default configuration with comments.
func starterConfig(backend string) string {
	cfg := core.DefaultGlobalConfig()
	path := cfg.Store.Path
	if backend == models.StoreBackendSQLite {
		path = "lists.db"
	}

	var b strings.Builder
	b.WriteString("# wheel configuration. WHEEL_* environment variables override these keys,\n")
	b.WriteString("# e.g. WHEEL_NOTIFICATIONS_SLACK_WEBHOOK_URL.\n")
	b.WriteString("wheel:\n")
	fmt.Fprintf(&b, "  spin_duration: %s\n", cfg.Wheel.SpinDuration)
	fmt.Fprintf(&b, "  full_rotations: %d\n", cfg.Wheel.FullRotations)
	fmt.Fprintf(&b, "  status_revert: %s\n", cfg.Wheel.StatusRevert)
	b.WriteString("store:\n")
	fmt.Fprintf(&b, "  backend: %s # yaml or sqlite\n", backend)
	fmt.Fprintf(&b, "  path: %s\n", path)
	b.WriteString("clipboard:\n")
	fmt.Fprintf(&b, "  mode: %s # auto, osc52, command or none\n", cfg.Clipboard.Mode)
	b.WriteString("notifications:\n")
	b.WriteString("  slack:\n")
	b.WriteString("    webhook_url: \"\"\n")
	return b.String()
}

func init() {
	initCmd.Flags().StringVar(&initBackend, "backend", models.StoreBackendYAML, "Store backend for saved lists (yaml or sqlite)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
