package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	wheelmcp "github.com/valter-silva-au/task-wheel/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the wheel MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wheel MCP server on stdio",
	Long: `Start the wheel MCP server on stdio transport.

The server holds one assignment session for its lifetime. Assistants build
the session with add_participant and add_task, start it with start_session,
then call spin or assign_manual per task. Saved lists and workload stats are
available through list_named_lists, load_named_list, save_named_list and
get_stats.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lists == nil {
			return fmt.Errorf("named lists not initialized")
		}

		srv := wheelmcp.NewServer(newEngine(), Lists, Stats, Announcer, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
