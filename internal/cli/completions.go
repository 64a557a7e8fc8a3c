package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// listNameCompletions returns saved list names starting with prefix, each
// described by its size.
func listNameCompletions(prefix string) []string {
	if Lists == nil {
		return nil
	}
	var names []string
	for _, name := range Lists.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		members, _ := Lists.Get(name)
		names = append(names, name+"\t"+strconv.Itoa(len(members))+" participant(s)")
	}
	return names
}

// completeListArg completes the single list-name argument of lists show
// and lists delete.
func completeListArg(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return listNameCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeListFlag completes the value of a --list flag.
func completeListFlag(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return listNameCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
}
