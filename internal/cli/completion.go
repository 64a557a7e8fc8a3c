package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionInstall bool

// shellCompletion describes how to generate and install completions for one
// shell. install is relative to the home directory; empty means the shell
// has no automatic install.
type shellCompletion struct {
	generate func(w io.Writer) error
	load     string
	install  string
	after    []string
}

var shellCompletions = map[string]shellCompletion{
	"bash": {
		generate: func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
		load:     `eval "$(wheel completion bash)"`,
		install:  filepath.Join(".local", "share", "bash-completion", "completions", "wheel"),
		after:    []string{"Restart your shell to pick them up."},
	},
	"zsh": {
		generate: func(w io.Writer) error { return rootCmd.GenZshCompletion(w) },
		load:     `eval "$(wheel completion zsh)"`,
		install:  filepath.Join(".local", "share", "zsh", "site-functions", "_wheel"),
		after: []string{
			"Ensure that directory is in your fpath. Add to ~/.zshrc if needed:",
			"  fpath=(~/.local/share/zsh/site-functions $fpath)",
			"  autoload -Uz compinit && compinit",
		},
	},
	"fish": {
		generate: func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
		load:     "wheel completion fish | source",
		install:  filepath.Join(".config", "fish", "completions", "wheel.fish"),
		after:    []string{"Completions will be available in new fish sessions."},
	},
	"powershell": {
		generate: func(w io.Writer) error { return rootCmd.GenPowerShellCompletionWithDesc(w) },
		load:     "wheel completion powershell | Out-String | Invoke-Expression",
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for wheel",
	Long: `Set up shell tab-completions for wheel commands, flags and saved list names.

Supported shells: bash, zsh, fish, powershell

Quick install (writes the script under your home directory):

  wheel completion bash --install
  wheel completion zsh --install
  wheel completion fish --install

Or print the script to stdout for manual setup:

  wheel completion bash`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false,
		"Install completions under your home directory")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	shell, ok := shellCompletions[args[0]]
	if !ok {
		return fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", args[0])
	}

	if completionInstall {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("detecting home directory: %w", err)
		}
		return installCompletion(args[0], shell, home)
	}

	// Hints go to stderr so the script can be piped or eval'd.
	hints := cmd.ErrOrStderr()
	fmt.Fprintln(hints, "# To load completions in your current session:")
	fmt.Fprintf(hints, "#   %s\n", shell.load)
	if shell.install != "" {
		fmt.Fprintf(hints, "# To install permanently:\n#   wheel completion %s --install\n", args[0])
	}
	return shell.generate(cmd.OutOrStdout())
}

func installCompletion(name string, shell shellCompletion, home string) error {
	if shell.install == "" {
		return fmt.Errorf("automatic install is not supported for %s; run 'wheel completion %s' and add the output to your profile", name, name)
	}

	target := filepath.Join(home, shell.install)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating completion directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating completion file %s: %w", target, err)
	}
	writeErr := shell.generate(f)
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing completion file %s: %w", target, closeErr)
	}

	fmt.Printf("%s completions installed to %s\n", name, target)
	for _, line := range shell.after {
		fmt.Println(line)
	}
	return nil
}
