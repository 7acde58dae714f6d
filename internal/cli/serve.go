package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/liubaotong/favsync/internal/devserver"
	"github.com/liubaotong/favsync/internal/logging"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		addr   string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local favorites server backed by sqlite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := devserver.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := devserver.New(addr, store)

			// Graceful shutdown
			done := make(chan os.Signal, 1)
			signal.Notify(done, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(done)

			serveErr := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case <-done:
			case <-cmd.Context().Done():
			case err := <-serveErr:
				if err != nil {
					return err
				}
			}
			logging.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logging.Error("server shutdown", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", orDefault(app.defaults.Addr, ":3000"), "Listen address")
	cmd.Flags().StringVar(&dbPath, "db", orDefault(app.defaults.DBPath, "favsync.db"), "sqlite database path")
	return cmd
}
