package main

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"inspection-capture/internal/startup"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// defaultProfile is read from the user's config directory when --profile
// is not given.
const defaultProfile = "capturectl.yaml"

type commandContext struct {
	profileFlag *string
	serverFlag  *string

	configOnce sync.Once
	config     *startup.AgentConfig
	configErr  error
}

func newCommandContext(profileFlag, serverFlag *string) *commandContext {
	return &commandContext{
		profileFlag: profileFlag,
		serverFlag:  serverFlag,
	}
}

func (c *commandContext) ensureConfig() (*startup.AgentConfig, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.profileFlag)
		explicit := path != ""
		if !explicit {
			path = defaultProfilePath()
		}
		cfg, err := startup.LoadAgentConfig(path, explicit)
		if err != nil {
			c.configErr = err
			return
		}
		if server := strings.TrimSpace(*c.serverFlag); server != "" {
			cfg.ServerURL = server
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "inspection-capture", defaultProfile)
}

func newRootCommand() *cobra.Command {
	var profileFlag string
	var serverFlag string

	ctx := newCommandContext(&profileFlag, &serverFlag)

	rootCmd := &cobra.Command{
		Use:           "capturectl",
		Short:         "Capture and upload vehicle inspection photos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A .env file in the working directory may carry CAPTURE_* settings.
			_ = godotenv.Load()
			if cmd.Name() == "version" || cmd.Name() == "slots" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&profileFlag, "profile", "p", "", "Agent profile (YAML)")
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "Storage server URL")

	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newCaptureCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newReportCommand(ctx))
	rootCmd.AddCommand(newSlotsCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
