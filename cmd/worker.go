package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amawa/backend/config"
	"github.com/amawa/backend/internal/database"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to deliver WhatsApp notifications and send maintenance reminders`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}

	deps, err := buildDependencies(cfg, db)
	if err != nil {
		return err
	}
	defer deps.close()

	// Queue processor: delivers notifications as they are enqueued
	if deps.bus != nil {
		g.Go(func() error {
			log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting Service Bus processor")
			return deps.bus.ProcessMessages(ctx, deps.notifications.ProcessMessage)
		})
	}

	// Cron jobs: maintenance reminders plus a delivery retry fallback
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		reminderInterval := cfg.Worker.ReminderInterval
		if reminderInterval <= 0 {
			reminderInterval = 24 * time.Hour
		}
		reminderWindow := time.Duration(cfg.Worker.ReminderDays) * 24 * time.Hour

		_, err = scheduler.NewJob(
			gocron.DurationJob(reminderInterval),
			gocron.NewTask(func() {
				log.Info().Msg("Running maintenance reminder job")
				if err := deps.notifications.RemindUpcoming(ctx, reminderWindow); err != nil {
					log.Error().Err(err).Msg("Failed to queue maintenance reminders")
				}
			}),
		)
		if err != nil {
			return err
		}

		retryInterval := cfg.Worker.RetryInterval
		if retryInterval <= 0 {
			retryInterval = 5 * time.Minute
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(retryInterval),
			gocron.NewTask(func() {
				log.Info().Msg("Running notification retry job to catch any missed deliveries")
				if err := deps.notifications.RetryPending(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to retry pending notifications")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
