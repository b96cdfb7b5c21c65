package main

import (
	"fmt"

	"inspection-capture/internal/gallery"
	"inspection-capture/internal/slot"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var slotFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list [--slot SLOT]",
		Short: "List the photos stored for one slot or all slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slots := make([]slot.Slot, 0)
			if slotFlag != "" {
				sl, err := slot.Parse(slotFlag)
				if err != nil {
					return err
				}
				slots = append(slots, sl)
			} else {
				for _, info := range slot.All() {
					slots = append(slots, info.Slot)
				}
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

			for _, sl := range slots {
				if err := a.loadSlot(cmd.Context(), sl); err != nil {
					return err
				}
			}

			listing := make(map[slot.Slot]any, len(slots))
			out := cmd.OutOrStdout()
			a.viewer = func(photos []gallery.ImageUpload, sl slot.Slot) {
				if jsonOutput {
					listing[sl] = photos
					return
				}
				if len(photos) == 0 && slotFlag == "" {
					return
				}
				fmt.Fprintf(out, "%s (%s)\n", sl.Label(), sl)
				if len(photos) == 0 {
					fmt.Fprintln(out, "No photos")
					return
				}
				fmt.Fprintln(out, renderGallery(photos))
			}
			for _, sl := range slots {
				a.gallery.Open(sl)
			}

			if jsonOutput {
				return writeJSON(cmd, listing)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&slotFlag, "slot", "", "Inspection slot; all slots when omitted")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var slotFlag string
	var index int

	cmd := &cobra.Command{
		Use:   "delete --slot SLOT --index N",
		Short: "Delete the photo at a 0-based position of a slot",
		Args:  cobra.NoArgs,
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

			if err := a.loadSlot(cmd.Context(), sl); err != nil {
				return err
			}
			if err := a.deletePhoto(sl, index); err != nil {
				return fmt.Errorf("failed to delete %s[%d]: %w", sl, index, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted photo %d from %s\n", index, sl)
			if photos := a.gallery.Photos(sl); len(photos) > 0 {
				fmt.Fprintln(out, renderGallery(photos))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&slotFlag, "slot", "", "Inspection slot")
	cmd.Flags().IntVar(&index, "index", -1, "0-based position of the photo within the slot")
	_ = cmd.MarkFlagRequired("slot")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}
