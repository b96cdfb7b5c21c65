package main

import (
	"errors"
	"fmt"

	"inspection-capture/internal/capture"
	"inspection-capture/internal/memory"
	"inspection-capture/internal/metrics"

	"github.com/spf13/cobra"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var slotFlag string
	var cameraDir string
	var switches int
	var flash bool
	var fallback []string

	cmd := &cobra.Command{
		Use:   "capture --slot SLOT --camera-dir DIR",
		Short: "Capture one frame from a camera rig and upload it",
		Long: `Open a capture session on a directory-backed camera rig. Each
sub-directory of --camera-dir is one device and its newest image is the
live frame. When no camera can be opened the session falls back to the
file picker, which uploads the --fallback files instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sl, err := parseSlot(slotFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			a, err := newAgent(cfg, cmd.ErrOrStderr(), cameraDir)
			if err != nil {
				return err
			}
			defer a.Close()

			session := capture.NewSession(capture.Config{
				Devices:       capture.DirRig{Root: cameraDir},
				Picker:        capture.PathPicker{Paths: fallback, OnSkip: a.recordSkip},
				Handler:       a.uploader,
				Observer:      metrics.NewPipelineObserver(),
				FallbackDelay: cfg.FallbackDelay,
				Width:         cfg.CameraWidth,
				Height:        cfg.CameraHeight,
			})
			defer session.Close()

			out := cmd.OutOrStdout()
			attempted := 1
			var denied *capture.PermissionError
			err = session.Open(cmd.Context(), sl)
			switch {
			case errors.As(err, &denied):
				if len(fallback) == 0 {
					return fmt.Errorf("%w; pass --fallback files to upload instead", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%v, opening the file picker\n", err)
				session.Wait()
				attempted = len(fallback)
				if a.Skipped() == attempted {
					_ = batchError(a.Failures(), attempted, cmd.ErrOrStderr())
					return errors.New("no readable fallback files")
				}
			case err != nil:
				return err
			default:
				for i := 0; i < switches; i++ {
					if err := session.SwitchDevice(cmd.Context()); err != nil {
						return fmt.Errorf("failed to switch camera: %w", err)
					}
				}
				if flash {
					session.ToggleFlash()
				}

				snap := session.Snapshot()
				label := "default"
				if snap.CurrentDevice < len(snap.Devices) {
					label = snap.Devices[snap.CurrentDevice].Label
				}
				fmt.Fprintf(out, "Camera: %s (%d of %d)", label, snap.CurrentDevice+1, len(snap.Devices))
				if snap.FlashOn {
					if snap.FlashSupported {
						fmt.Fprint(out, ", flash on")
					} else {
						fmt.Fprint(out, ", flash unsupported")
					}
				}
				if sl.ShowsGuide() {
					fmt.Fprint(out, ", alignment guide")
				}
				fmt.Fprintln(out)

				f, err := session.Capture(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Captured %s (%s)\n", f.Name, memory.FormatBytes(f.Size))
				session.Wait()
			}

			fmt.Fprintln(out, renderGallery(a.gallery.Photos(sl)))
			return batchError(a.Failures(), attempted, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&slotFlag, "slot", "", "Inspection slot (see 'capturectl slots')")
	cmd.Flags().StringVar(&cameraDir, "camera-dir", "", "Camera rig directory, one sub-directory per device")
	cmd.Flags().IntVar(&switches, "switch", 0, "Switch to the next camera this many times before capturing")
	cmd.Flags().BoolVar(&flash, "flash", false, "Turn the flash on before capturing")
	cmd.Flags().StringSliceVar(&fallback, "fallback", nil, "Files to upload if the camera cannot be opened")
	_ = cmd.MarkFlagRequired("slot")
	return cmd
}
