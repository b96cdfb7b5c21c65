package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"inspection-capture/internal/capture"
	"inspection-capture/internal/gallery"
	"inspection-capture/internal/memory"
	"inspection-capture/internal/slot"

	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var slotFlag string
	var pickerFlag string

	cmd := &cobra.Command{
		Use:   "upload --slot SLOT FILE...",
		Short: "Upload local photos to an inspection slot",
		Long: `Run local files through the upload pipeline as if they were chosen in
the file picker: validation, HEIC conversion, normalization and upload.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sl, err := parseSlot(slotFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			a, err := newAgent(cfg, cmd.ErrOrStderr(), "")
			if err != nil {
				return err
			}
			defer a.Close()

			picked, err := capture.PickFiles(cmd.Context(), capture.PathPicker{Paths: args, OnSkip: a.recordSkip}, a.uploader, sl, capture.PickKind(pickerFlag))
			if err != nil {
				return err
			}
			attempted := picked + a.Skipped()
			if picked == 0 {
				_ = batchError(a.Failures(), attempted, cmd.ErrOrStderr())
				return errors.New("no readable files")
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderGallery(a.gallery.Photos(sl)))
			return batchError(a.Failures(), attempted, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&slotFlag, "slot", "", "Inspection slot (see 'capturectl slots')")
	cmd.Flags().StringVar(&pickerFlag, "picker", string(capture.PickChooseFile), "Picker entry point: library, tire or choose-file")
	_ = cmd.MarkFlagRequired("slot")
	return cmd
}

// batchError prints every failure and summarizes them as one error.
func batchError(failures []string, total int, w io.Writer) error {
	if len(failures) == 0 {
		return nil
	}
	for _, msg := range failures {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
	return fmt.Errorf("%d of %d files failed", len(failures), total)
}

func renderGallery(photos []gallery.ImageUpload) string {
	rows := make([][]string, 0, len(photos))
	for _, p := range photos {
		status := p.RemoteURL
		if p.Error != "" {
			status = "failed: " + p.Error
		} else if status == "" {
			status = strconv.Itoa(p.Progress) + "%"
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Position),
			p.Source.Name,
			memory.FormatBytes(p.Source.Size),
			status,
		})
	}
	return renderTable([]string{"#", "File", "Size", "Location"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft})
}

func parseSlot(name string) (slot.Slot, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("--slot is required")
	}
	return slot.Parse(name)
}
