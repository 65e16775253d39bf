package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexabank/bankfeed/export"
	"github.com/nexabank/bankfeed/logger"
	"github.com/nexabank/bankfeed/notify"
	"github.com/nexabank/bankfeed/pipeline"
	"github.com/nexabank/bankfeed/status"
	"github.com/nexabank/bankfeed/watcher"
)

// RunCmd starts the full ingestion pipeline: backlog sweep plus live watch.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the incoming directory and process files as they stabilize",
	Long: `Start the ingestion pipeline.

Pre-existing files under the watched root are swept through the same
processing path first, then the watcher takes over: every tracked file that
goes quiet for the debounce period is validated, transformed and exported.
Stop with SIGINT or SIGTERM; pending debounce timers are cancelled and
in-flight work drains before exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rules, err := loadRules(cfg)
		if err != nil {
			return err
		}

		exporter := export.New(cfg.Export.Container, cfg.Export.HDFSPath, cfg.Export.TempDir)
		if err := exporter.Verify(); err != nil {
			return err
		}

		notifier := notify.NewMailer(cfg.Notify.SMTPHost, cfg.Notify.SMTPPort,
			cfg.Notify.Recipient, cfg.Notify.Enabled)

		orch := pipeline.New(pipeline.Config{
			Root:     cfg.Watch.Root,
			Datasets: cfg.Watch.Datasets,
			Rules:    rules,
			Store:    status.NewStore(cfg.Watch.Datasets),
			Exporter: exporter,
			Notifier: notifier,
		})

		w, err := watcher.New(cfg.Watch.Root, cfg.Watch.Datasets,
			time.Duration(cfg.Watch.DebounceMS)*time.Millisecond,
			cfg.Pipeline.QueueBuffer)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		w.Start(ctx)
		orch.Run(ctx, w.Events(), cfg.Pipeline.Workers)

		logger.Infow("Pipeline stopped")
		return nil
	},
}
