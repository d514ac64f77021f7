package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/querypilot/querypilot/internal/executor"
	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/orchestrator"
	"github.com/querypilot/querypilot/internal/server"
	"github.com/querypilot/querypilot/internal/service"
)

var askCmd = &cobra.Command{
	Use:   "ask \"question\"",
	Short: "Answer a natural-language question against a configured source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := args[0]
		sourceFlag, _ := cmd.Flags().GetString("source")
		rowLimit, _ := cmd.Flags().GetInt("row-limit")
		unsafe, _ := cmd.Flags().GetBool("unsafe")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.AskTimeout)*time.Second)
		defer cancel()

		registry := server.BuildRegistry(ctx, cfg)
		if registry.Len() == 0 {
			return errors.New("no data sources configured")
		}
		defer registry.CloseAll()

		analyzer := service.NewIntentAnalyzer(registry)
		var explicit *string
		if sourceFlag != "" {
			explicit = &sourceFlag
		}
		routing, err := analyzer.RouteSource(question, explicit)
		if err != nil {
			return err
		}
		runner, err := registry.Get(routing.Source)
		if err != nil {
			return err
		}

		descriptor, err := runner.Schema(ctx)
		if err != nil {
			return fmt.Errorf("schema introspection failed: %w", err)
		}

		var spinner *pterm.SpinnerPrinter
		if !asJSON {
			spinner, _ = pterm.DefaultSpinner.Start("Generating and reviewing SQL...")
		}

		pipeline := server.BuildPipeline(cfg)
		report := pipeline.Run(ctx, orchestrator.Request{
			Question:   question,
			Descriptor: descriptor,
			Intent:     analyzer.Analyze(question, descriptor),
			Executor:   executor.New(runner),
			Options:    executor.Options{SafeMode: !unsafe, RowLimit: rowLimit},
			DryRun:     dryRun,
		})

		if spinner != nil {
			_ = spinner.Stop()
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(models.AskResponse{
				Status:       string(report.Status),
				Question:     question,
				Source:       routing.Source,
				GeneratedSQL: report.SQL,
				Result:       report.Result,
				Candidates:   report.Candidates,
				Verdicts:     report.Verdicts,
				Metadata: map[string]interface{}{
					"routing_confidence": routing.Confidence,
					"routing_reasoning":  routing.Reasoning,
					"improvements":       report.Improvements,
					"elapsed_ms":         report.ElapsedMs,
				},
			}); err != nil {
				return err
			}
		} else {
			renderReport(question, routing.Source, report)
		}

		if report.Status == models.RunFailed {
			return errors.New(report.Error)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("source", "", "Data source to query (default: routed from the question)")
	askCmd.Flags().Int("row-limit", 100, "Maximum rows to return")
	askCmd.Flags().Bool("unsafe", false, "Allow statements beyond read-only SELECT")
	askCmd.Flags().Bool("dry-run", false, "Generate and review SQL without executing it")
	askCmd.Flags().Bool("json", false, "Print the full run report as JSON")
}

func renderReport(question, source string, report *models.RunReport) {
	pterm.Println()
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Question: ") + question)
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Source:   ") + source)
	if report.SQL != nil {
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ SQL:      ") + pterm.NewStyle(pterm.FgCyan).Sprint(*report.SQL))
	}
	if n := len(report.Verdicts); n > 0 {
		v := report.Verdicts[n-1]
		pterm.Printf("→ Review:   score %d/10, %d improvement cycle(s)\n", v.CorrectnessScore, report.Improvements)
	}
	pterm.Println()

	if report.Status == models.RunDryRun {
		pterm.Println("Dry run: SQL was generated and reviewed but not executed.")
		return
	}
	if report.Result == nil || !report.Result.Success {
		return
	}
	renderRows(report.Result)
}

func renderRows(result *models.ExecutionResult) {
	if result.RowCount == 0 {
		pterm.Println("No rows returned.")
		return
	}

	data := pterm.TableData{result.Columns}
	for _, row := range result.Rows {
		line := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			line[i] = fmt.Sprintf("%v", row[col])
		}
		data = append(data, line)
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Printf("%d row(s) in %dms\n", result.RowCount, result.ExecutionTimeMs)
}
