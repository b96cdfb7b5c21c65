package main

import (
	"fmt"
	"strconv"

	"inspection-capture/internal/remote"
	"inspection-capture/internal/startup"
	"inspection-capture/internal/telemetry"

	"github.com/spf13/cobra"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var since int
	var clearReport bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the upload debug log held by the server",
		Long: `Show the upload debug log. Without --since only the entries recorded
after the last --clear are shown; --since N shows every entry from log
position N on. --clear hides the current entries without deleting them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			report, err := client.Report(cmd.Context(), since)
			if err != nil {
				return err
			}
			if clearReport {
				if err := client.ClearReport(cmd.Context()); err != nil {
					return fmt.Errorf("failed to clear report: %w", err)
				}
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			if len(report.Entries) == 0 {
				fmt.Fprintf(out, "No entries (%d recorded)\n", report.Total)
			} else {
				fmt.Fprintln(out, renderEntries(report.Offset, report.Entries))
				fmt.Fprintf(out, "%d of %d entries, %d failed\n", len(report.Entries), report.Total, countFailed(report.Entries))
			}
			if clearReport {
				fmt.Fprintln(out, "Report cleared")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&since, "since", -1, "Show entries from this log position on, ignoring earlier clears")
	cmd.Flags().BoolVar(&clearReport, "clear", false, "Clear the report after printing it")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderEntries(offset int, entries []telemetry.Entry) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		file, format := "-", "-"
		if e.File != nil {
			file = e.File.Name
			format = e.File.Format
		}
		result := "ok"
		if e.Failed() {
			result = e.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(offset + i),
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(e.Browser),
			file,
			format,
			result,
		})
	}
	return renderTable([]string{"#", "Time", "Browser", "File", "Format", "Result"}, rows,
		[]columnAlignment{alignRight})
}

func countFailed(entries []telemetry.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Failed() {
			n++
		}
	}
	return n
}

func newClient(cfg *startup.AgentConfig) (*remote.Client, error) {
	return remote.New(cfg.ServerURL, cfg.RequestTimeout, cfg.UserAgent)
}
