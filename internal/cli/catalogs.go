package cli

import (
	"github.com/spf13/cobra"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/catalog"
	"github.com/liubaotong/favsync/internal/notify"
)

// newCatalogCmd builds the list/add/rename/rm group for categories or tags.
func newCatalogCmd(app *App, r apiclient.Resource, use, singular string) *cobra.Command {
	manager := func() (*catalog.Manager, error) {
		client, err := app.Client()
		if err != nil {
			return nil, err
		}
		return catalog.New(client, r, notify.LogNotifier{}), nil
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: "Manage " + use,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all " + use,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			if err := m.Load(cmd.Context()); err != nil {
				return err
			}
			return writeOut(cmd, app, m.Entries())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a " + singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			if err := m.Add(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writeOut(cmd, app, m.Entries())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a " + singular,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			m, err := manager()
			if err != nil {
				return err
			}
			if err := m.Rename(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			return writeOut(cmd, app, m.Entries())
		},
	})

	var yes bool
	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a " + singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			m, err := manager()
			if err != nil {
				return err
			}
			deleted, err := m.Delete(cmd.Context(), id, confirmer(cmd, yes))
			if err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]any{"id": id, "deleted": deleted})
		},
	}
	rm.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(rm)

	return cmd
}
