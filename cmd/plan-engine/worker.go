// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/plan-engine/internal/progress"
	"github.com/pdiddy/plan-engine/internal/queue"
	"github.com/pdiddy/plan-engine/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the job-queue worker and progress server",
	Long: `Worker consumes generation jobs from the durable queue, runs the
pipeline for each, saves the result to the owning service, and serves job
progress over HTTP and WebSocket. It runs until SIGINT or SIGTERM, then
drains in-flight jobs before exiting.`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.Worker.Concurrency = n
	}
	if addr, _ := cmd.Flags().GetString("listen-addr"); addr != "" {
		cfg.Worker.ListenAddr = addr
	}
	if cfg.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url is required to fetch payloads and save plans")
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q, err := queue.Open(cfg.Queue, log)
	if err != nil {
		return err
	}
	defer q.Close()

	orch, cleanup, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	hub := progress.NewHub()
	defer hub.Close()

	server := progress.NewServer(q, hub, log)
	go func() {
		if err := server.Start(cfg.Worker.ListenAddr); err != nil {
			log.Error("progress server", zap.Error(err))
		}
	}()

	client := worker.NewServiceClient(cfg.Service)
	w := worker.New(q, orch, client, hub, log, cfg.Worker, cfg.Queue.PollInterval)

	runErr := w.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("progress server shutdown", zap.Error(err))
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		return runErr
	}
	return nil
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
