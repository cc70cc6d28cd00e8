// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/plan-engine/internal/queue"
	"github.com/pdiddy/plan-engine/pkg/types"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the durable job queue (enqueue, deadletters)",
	Long: `Queue manages the SQLite-backed job queue consumed by the worker.
Use subcommands to submit generation jobs or inspect dead-lettered ones.`,
}

// --- enqueue subcommand ---

var queueEnqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Submit a meal-plan generation job",
	Long: `Enqueue submits a job for the worker to pick up. The full path runs
all pipeline stages; the fast path reuses an existing draft named by
--draft-ref and skips recipe curation.`,
	RunE: runQueueEnqueue,
}

func runQueueEnqueue(cmd *cobra.Command, args []string) error {
	pathFlag, _ := cmd.Flags().GetString("path")
	draftRef, _ := cmd.Flags().GetString("draft-ref")

	var path types.PipelinePath
	switch pathFlag {
	case "full", "":
		path = types.PathFull
	case "fast":
		path = types.PathFast
		if draftRef == "" {
			return fmt.Errorf("the fast path requires --draft-ref")
		}
	default:
		return fmt.Errorf("unsupported path %q: use full or fast", pathFlag)
	}

	cfg := loadConfig()
	q, err := queue.Open(cfg.Queue, nil)
	if err != nil {
		return err
	}
	defer q.Close()

	job := types.Job{
		ID:       uuid.NewString(),
		Path:     path,
		DraftRef: draftRef,
	}
	if err := q.Enqueue(context.Background(), job); err != nil {
		return err
	}

	fmt.Println(job.ID)
	return nil
}

// --- deadletters subcommand ---

var queueDeadlettersCmd = &cobra.Command{
	Use:   "deadletters",
	Short: "List jobs that exhausted their retry budget",
	RunE:  runQueueDeadletters,
}

func runQueueDeadletters(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	q, err := queue.Open(cfg.Queue, nil)
	if err != nil {
		return err
	}
	defer q.Close()

	letters, err := q.DeadLetters(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatDeadletterOutput(letters, jsonOutput)
}

func formatDeadletterOutput(letters []queue.DeadLetter, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(letters)
	}

	if len(letters) == 0 {
		fmt.Println("No dead letters.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-5s  %-8s  %-20s  %s\n",
		"Job", "Path", "Attempts", "Failed At", "Reason")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, dl := range letters {
		reason := dl.Reason
		if len(reason) > 40 {
			reason = reason[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-5s  %-8d  %-20s  %s\n",
			dl.JobID, dl.Path, dl.Attempts,
			dl.CreatedAt.Format("2006-01-02 15:04:05"), reason)
	}

	fmt.Fprintf(os.Stdout, "\n%d dead letter(s)\n", len(letters))
	return nil
}

func init() {
	queueEnqueueCmd.Flags().String("path", "full", "pipeline path: full or fast")
	queueEnqueueCmd.Flags().String("draft-ref", "", "existing draft ID for the fast path")

	queueDeadlettersCmd.Flags().Bool("json", false, "output dead letters as JSON")

	queueCmd.AddCommand(queueEnqueueCmd)
	queueCmd.AddCommand(queueDeadlettersCmd)

	rootCmd.AddCommand(queueCmd)
}
