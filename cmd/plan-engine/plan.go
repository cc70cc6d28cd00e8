// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/plan-engine/pkg/types"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a meal plan from an intake form in one shot",
	Long: `Plan runs the full pipeline — intake validation, metabolic calculation,
recipe curation, nutrition compilation, QA, and rendering — against a YAML
intake form, without going through the job queue. The compiled plan is written
to the output directory along with the rendered artifact.`,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	intakePath, _ := cmd.Flags().GetString("intake")
	if intakePath == "" {
		return fmt.Errorf("--intake is required")
	}
	outDir, _ := cmd.Flags().GetString("output-dir")

	raw, err := readIntake(intakePath)
	if err != nil {
		return err
	}

	cfg := loadConfig()
	if useLLM, _ := cmd.Flags().GetBool("llm"); cmd.Flags().Changed("llm") {
		cfg.Curator.UseLLM = useLLM
	}
	if mode, _ := cmd.Flags().GetString("render"); mode != "" {
		cfg.Render.Mode = types.RenderMode(mode)
	}

	ctx := context.Background()
	orch, cleanup, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Generating plan from %s\n", intakePath)
	result := orch.Run(ctx, raw, progressPrinter())
	if !result.Success {
		return fmt.Errorf("pipeline failed: %s", result.Error)
	}

	if err := writeResult(outDir, result); err != nil {
		return err
	}

	fmt.Printf("\nQA: %s (score %.1f, threshold %.0f)\n",
		result.QA.Status, result.QA.Score, result.QA.Threshold)
	fmt.Printf("Week totals: %.0f kcal, %.1fg protein, %.1fg carbs, %.1fg fat\n",
		result.Plan.WeekTotals.Kcal, result.Plan.WeekTotals.ProteinG,
		result.Plan.WeekTotals.CarbsG, result.Plan.WeekTotals.FatG)
	fmt.Printf("Wrote plan.json and meal-plan.%s to %s\n", result.Artifact.Format, outDir)
	return nil
}

func readIntake(path string) (types.RawIntakeForm, error) {
	var raw types.RawIntakeForm
	data, err := os.ReadFile(path)
	if err != nil {
		return raw, fmt.Errorf("reading intake form: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("parsing intake form %s: %w", path, err)
	}
	return raw, nil
}

func writeResult(outDir string, result types.PipelineResult) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	// Artifact bytes go to their own file; the JSON result omits them.
	artifact := result.Artifact
	result.Artifact = nil

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "plan.json"), data, 0o644); err != nil {
		return err
	}

	name := fmt.Sprintf("meal-plan.%s", artifact.Format)
	return os.WriteFile(filepath.Join(outDir, name), artifact.Data, 0o644)
}

func init() {
	planCmd.Flags().String("intake", "", "path to the intake form (YAML)")
	planCmd.Flags().String("output-dir", "output", "directory for the compiled plan and artifact")
	planCmd.Flags().Bool("llm", false, "force the model-backed generator on or off")
	planCmd.Flags().String("render", "", "override renderer: chromium or noop")

	rootCmd.AddCommand(planCmd)
}
