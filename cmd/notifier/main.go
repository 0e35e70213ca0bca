package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/basobaas/plotline/internal/adapters/nats"
	"github.com/basobaas/plotline/internal/adapters/postgres"
	"github.com/basobaas/plotline/internal/core/domain"
	"github.com/basobaas/plotline/internal/pkg/config"
	"github.com/basobaas/plotline/internal/pkg/logging"
	"github.com/basobaas/plotline/internal/workflows"
)

// logNotifier is the default push sink until a real provider is wired.
type logNotifier struct{}

func (logNotifier) SendPush(ctx context.Context, recipientID, title, body string) error {
	slog.Info("push", "recipient", recipientID, "title", title, "body", body)
	return nil
}

func main() {
	cfg, err := config.Load("plotline-notifier")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup("plotline-notifier", "info", "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database (contractor lookups + notification ledger)
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.PlotNotifyWorkflow)
	w.RegisterActivity(&workflows.NotifyActivities{
		Contractors: postgres.NewContractorRepo(db),
		Notifier:    logNotifier{},
	})

	// Each submitted plot starts a notification workflow.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribePlotSubmitted(ctx, func(ctx context.Context, plot *domain.Plot) error {
		_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        "plot-notify-" + plot.ID,
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.PlotNotifyWorkflow, workflows.NotifyInput{
			PlotID:      plot.ID,
			CentroidLat: plot.Centroid.Lat,
			CentroidLon: plot.Centroid.Lon,
			City:        plot.City,
			AreaSqFeet:  plot.AreaSqFeet,
		})
		if err != nil {
			slog.Error("start notify workflow", "plot_id", plot.ID, "error", err)
			return err
		}
		slog.Info("notify workflow started", "plot_id", plot.ID)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("notifier worker started", "task_queue", cfg.Temporal.TaskQueue)

	go func() {
		if err := w.Run(worker.InterruptCh()); err != nil {
			log.Fatalf("worker: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("notifier stopped")
}
