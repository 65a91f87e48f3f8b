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
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/verflow/internal/wire"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and sweep retention periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			noSweep, _ := cmd.Flags().GetBool("no-sweep")

			c, err := wire.Services()
			if err != nil {
				return err
			}
			defer c.Close()
			if addr == "" {
				addr = c.Config.HTTP.Address
			}

			ctx, stop := signal.NotifyContext(NewContext(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           c.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				c.Logger.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				c.Logger.Info("shutting down")
				return srv.Shutdown(shutdownCtx)
			})
			if !noSweep && c.Config.Retention.Interval > 0 {
				g.Go(func() error {
					sweep(ctx, c, c.Config.Retention.Interval)
					return nil
				})
			}

			return g.Wait()
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides http.address)")
	cmd.Flags().Bool("no-sweep", false, "Disable the periodic retention sweep (also off when retention.interval is 0)")
	return cmd
}

// sweep runs CleanAll every interval until ctx is done. A failed sweep is
// logged and retried at the next tick.
func sweep(ctx context.Context, c *wire.Container, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := c.Retention.CleanAll(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.Logger.Warn("retention sweep failed", zap.Error(err))
				}
				continue
			}
			c.Logger.Info("retention sweep finished",
				zap.Int("contents", summary.Contents),
				zap.Int("deleted", summary.Deleted),
				zap.Int("failed", len(summary.Failed)))
		}
	}
}
