package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/settings"
)

const keyServerURL = "server-url"

type configOutput struct {
	Stored    string `json:"serverUrl"`
	Effective string `json:"effective"`
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change local settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "get " + keyServerURL,
		Short:     "Show the stored and effective server URL",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{keyServerURL},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Settings()
			if err != nil {
				return err
			}
			stored, err := cfg.StoredServerURL()
			if err != nil {
				return err
			}
			return writeOut(cmd, app, configOutput{Stored: stored, Effective: cfg.BaseURL()})
		},
	})

	var check bool
	set := &cobra.Command{
		Use:       "set " + keyServerURL + " <url>",
		Short:     "Store the server URL",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{keyServerURL},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != keyServerURL {
				return fmt.Errorf("unknown setting %q", args[0])
			}
			if check {
				u, err := settings.NormalizeServerURL(args[1])
				if err != nil {
					return err
				}
				if _, err := apiclient.Probe(cmd.Context(), u); err != nil {
					return fmt.Errorf("server check failed: %w", err)
				}
			}
			cfg, err := app.Settings()
			if err != nil {
				return err
			}
			stored, err := cfg.SetServerURL(args[1])
			if err != nil {
				return err
			}
			return writeOut(cmd, app, configOutput{Stored: stored, Effective: cfg.BaseURL()})
		},
	}
	set.Flags().BoolVar(&check, "check", false, "Test the connection before saving")
	cmd.AddCommand(set)

	return cmd
}
