package main

import (
	"errors"
	"fmt"
	"strings"

	"inspection-capture/internal/capability"
	"inspection-capture/internal/remote"

	"github.com/spf13/cobra"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var cameraDir string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report the agent's capabilities and how the server classifies it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			a, err := newAgent(cfg, cmd.ErrOrStderr(), cameraDir)
			if err != nil {
				return err
			}
			defer a.Close()

			local := capability.Probe(a.env)
			browser := capability.BrowserOf(a.env)

			server, serverErr := a.client.Capabilities(cmd.Context())
			if serverErr != nil && !isUnavailable(serverErr) {
				return serverErr
			}

			if jsonOutput {
				payload := map[string]any{
					"browser":      browser,
					"isSafari":     browser.IsSafari(),
					"capabilities": local,
				}
				if serverErr == nil {
					payload["server"] = server
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Browser: %s\n", browser)
			rows := [][]string{
				{"File input", yesNo(local.FileInputSupported)},
				{"Camera", yesNo(local.CameraSupported)},
				{"HEIC conversion", yesNo(local.HEICSupported)},
				{"File API", yesNo(local.FileAPISupported)},
			}
			fmt.Fprintln(out, renderTable([]string{"Feature", "Supported"}, rows, nil))

			if serverErr != nil {
				fmt.Fprintf(out, "Server: unreachable (%v)\n", serverErr)
				return nil
			}
			fmt.Fprintf(out, "Server classification: %s", server.Browser)
			if server.IsSafari {
				fmt.Fprint(out, " (Safari diagnostics enabled)")
			}
			fmt.Fprintln(out)
			if server.Report != local {
				fmt.Fprintf(out, "Server saw hints: %s\n", describeReport(server.Report))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cameraDir, "camera-dir", "", "Camera rig directory to probe")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func isUnavailable(err error) bool {
	return errors.Is(err, remote.ErrUnavailable)
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func describeReport(r capability.Report) string {
	parts := []string{
		"fileInput=" + yesNo(r.FileInputSupported),
		"camera=" + yesNo(r.CameraSupported),
		"heic=" + yesNo(r.HEICSupported),
		"fileApi=" + yesNo(r.FileAPISupported),
	}
	return strings.Join(parts, " ")
}
