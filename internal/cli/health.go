package cli

import (
	"github.com/spf13/cobra"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/favorites"
)

func newHealthCmd(app *App) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				h   favorites.Health
				err error
			)
			if url != "" {
				h, err = apiclient.Probe(cmd.Context(), url)
			} else {
				client, cerr := app.Client()
				if cerr != nil {
					return cerr
				}
				h, err = client.Health(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeOut(cmd, app, h)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Check this server instead of the configured one")
	return cmd
}
