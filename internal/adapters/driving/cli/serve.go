package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replica/internal/adapters/driving/webhook"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/ports/driving"
	"github.com/custodia-labs/replica/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the replica in sync",
	Long: `Runs until interrupted, keeping the local replica in sync:

  - the scheduler syncs every sync.interval
  - the webhook receiver accepts change notifications on webhook.addr
  - with an export directory, file changes trigger a sync`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr      string
	serveNoWebhook bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "webhook listen address (overrides webhook.addr)")
	serveCmd.Flags().BoolVar(&serveNoWebhook, "no-webhook", false, "do not start the webhook receiver")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if app == nil || app.Sync == nil {
		return errors.New("sync service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := stylesFor(cmd.OutOrStdout())

	if !serveNoWebhook {
		if app.Webhook == nil {
			return errors.New("webhook service not configured")
		}
		whCfg := cfg.Webhook
		if serveAddr != "" {
			whCfg.Addr = serveAddr
		}
		server := webhook.NewServer(app.Webhook, whCfg)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			if err := server.Stop(); err != nil {
				logger.Warn("stopping webhook server: %v", err)
			}
		}()
		cmd.Printf("Webhook receiver listening on http://%s%s\n", server.Addr(), webhook.Path)
		if whCfg.Secret == "" {
			cmd.Println(st.Warning.Render("  webhook.secret is not set; requests are not authenticated"))
		}
	}

	if sched := app.Scheduler; sched != nil {
		go func() {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler stopped: %v", err)
			}
		}()
		defer func() {
			if err := sched.Stop(); err != nil {
				logger.Warn("stopping scheduler: %v", err)
			}
		}()
		cmd.Printf("Scheduler syncing every %s\n", cfg.Sync.Interval.Std())
	}

	if app.Watcher != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			watch(ctx, app.Watcher, app.Sync, cmd.ErrOrStderr())
		}()
		defer func() { <-done }()
		cmd.Printf("Watching %s for changes\n", cfg.Export.Dir)
	}

	cmd.Println(st.Muted.Render("Press Ctrl+C to stop."))
	<-ctx.Done()
	cmd.Println("Shutting down...")
	return nil
}

// watch syncs up to every document the watcher reports as changed.
func watch(ctx context.Context, w driven.ChangeNotifier, syncSvc driving.SyncService, errOut io.Writer) {
	err := w.Watch(ctx, func(id string) {
		result, err := syncSvc.Sync(ctx, id)
		if err != nil {
			logger.Warn("sync after change to %s failed: %v", id, err)
			return
		}
		logger.Info("synced %d items after change to %s", result.ItemsSynced, id)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(errOut, "watcher stopped: %v\n", err)
	}
}
