package main

import (
	"fmt"

	"inspection-capture/internal/slot"
	"inspection-capture/internal/startup"

	"github.com/spf13/cobra"
)

func newSlotsCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List the inspection slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := slot.All()
			if jsonOutput {
				return writeJSON(cmd, infos)
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				guide := ""
				if info.Guide {
					guide = "yes"
				}
				rows = append(rows, []string{string(info.Slot), info.Label, guide})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Slot", "Label", "Guide"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := startup.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "capturectl %s (commit %s, built %s, %s %s/%s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
		},
	}
}
