package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liubaotong/favsync/internal/collection"
	"github.com/liubaotong/favsync/internal/editsession"
	"github.com/liubaotong/favsync/internal/favorites"
	"github.com/liubaotong/favsync/internal/logging"
	"github.com/liubaotong/favsync/internal/notify"
)

type listOutput struct {
	Items      []favorites.Item     `json:"items"`
	Total      int                  `json:"total"`
	Filter     favorites.Filter     `json:"filter"`
	Pagination favorites.Pagination `json:"pagination"`
}

func (a *App) controller(opts ...collection.Option) (*collection.Controller, error) {
	client, err := a.Client()
	if err != nil {
		return nil, err
	}
	opts = append([]collection.Option{
		collection.WithNotifier(notify.LogNotifier{}),
		collection.WithPageSize(a.PageSize),
	}, opts...)
	return collection.New(client, opts...), nil
}

func newListCmd(app *App) *cobra.Command {
	var (
		page     int
		perPage  int
		search   string
		category string
		tag      string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.controller()
			if err != nil {
				return err
			}
			defer c.Close()

			patch := collection.Patch{Search: &search, CategoryID: &category, TagID: &tag}
			if cmd.Flags().Changed("per-page") {
				patch.PageSize = &perPage
			}
			if err := c.SetFilter(cmd.Context(), patch); err != nil {
				return err
			}
			if page > 1 {
				if err := c.SetPage(cmd.Context(), page); err != nil {
					return err
				}
			}
			return writeOut(cmd, app, listOutput{
				Items:      c.Items(),
				Total:      c.Total(),
				Filter:     c.Filter(),
				Pagination: c.Pagination(),
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", favorites.DefaultPageSize, "Items per page (10|20|50|100)")
	cmd.Flags().StringVar(&search, "search", "", "Match text containing this")
	cmd.Flags().StringVar(&category, "category", "", "Category id")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag id")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	var (
		text     string
		url      string
		category string
		tags     []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a new favorite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.controller()
			if err != nil {
				return err
			}
			defer c.Close()

			d := favorites.Capture{Text: text, URL: url}.Draft()
			d.CategoryID = category
			d.Tags = tags
			item, err := c.Create(cmd.Context(), d)
			if err != nil {
				return err
			}
			if item == nil {
				return writeOut(cmd, app, map[string]string{"status": "saved"})
			}
			return writeOut(cmd, app, item)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "Text to save (required)")
	cmd.Flags().StringVar(&url, "url", "", "Source URL")
	cmd.Flags().StringVar(&category, "category", "", "Category id")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag name (repeatable)")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	var (
		text       string
		category   string
		tags       []string
		toggleTags []string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the text, category or tags of a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			c, err := app.controller()
			if err != nil {
				return err
			}
			defer c.Close()

			item, err := findFavorite(cmd.Context(), client, id)
			if err != nil {
				return err
			}

			m := editsession.NewManager(c, client,
				editsession.WithNotifier(notify.LogNotifier{}),
				editsession.WithSaveDelay(0),
				editsession.WithContext(cmd.Context()),
			)
			defer m.Close()

			s, err := m.Open(item)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("text") {
				_ = s.SetText(text)
			}
			if cmd.Flags().Changed("category") {
				_ = s.SetCategory(category)
			}
			if cmd.Flags().Changed("tag") {
				_ = s.SetTags(tags)
			}
			for _, t := range toggleTags {
				_ = s.ToggleTag(t)
			}

			if err := s.WaitCatalogs(cmd.Context()); err == nil {
				if orphans := s.OrphanTags(); len(orphans) > 0 {
					logging.Warn("tags not in the tag list are kept", map[string]interface{}{"tags": orphans})
				}
			}

			draft := s.Draft()
			if err := m.Save(cmd.Context(), id); err != nil {
				return err
			}
			m.Wait()
			return writeOut(cmd, app, map[string]any{"id": id, "status": "saved", "draft": draft})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "New text")
	cmd.Flags().StringVar(&category, "category", "", "Category id (empty for none)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Replace tags (repeatable)")
	cmd.Flags().StringSliceVar(&toggleTags, "toggle-tag", nil, "Add or remove one tag (repeatable)")
	return cmd
}

// pageLister is the listing call findFavorite needs.
type pageLister interface {
	ListFavorites(ctx context.Context, f favorites.Filter) (favorites.Page, error)
}

// findFavorite walks the unfiltered listing until it finds id. The API has no
// single-item read.
func findFavorite(ctx context.Context, api pageLister, id int64) (favorites.Item, error) {
	f := favorites.DefaultFilter()
	f.PageSize = favorites.PageSizes[len(favorites.PageSizes)-1]
	for {
		page, err := api.ListFavorites(ctx, f)
		if err != nil {
			return favorites.Item{}, err
		}
		for _, it := range page.Items {
			if it.ID == id {
				return it, nil
			}
		}
		if len(page.Items) == 0 || f.Page >= favorites.LastPage(page.Total, f.PageSize) {
			return favorites.Item{}, fmt.Errorf("favorite %d not found", id)
		}
		f.Page++
	}
}

func newRmCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			c, err := app.controller()
			if err != nil {
				return err
			}
			defer c.Close()

			deleted, err := c.Remove(cmd.Context(), id, confirmer(cmd, yes))
			if err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]any{"id": id, "deleted": deleted})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// confirmer asks on stdin unless yes is set.
func confirmer(cmd *cobra.Command, yes bool) collection.Confirmer {
	if yes {
		return collection.AlwaysConfirm
	}
	return promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
}

func promptConfirmer(in io.Reader, out io.Writer) collection.Confirmer {
	r := bufio.NewReader(in)
	return collection.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, _ := r.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}

func parseIDArg(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
