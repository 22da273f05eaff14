package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkarpov/annotext/internal/annotation"
	"github.com/dkarpov/annotext/internal/llm"
	"github.com/dkarpov/annotext/internal/model"
	"github.com/dkarpov/annotext/internal/pipeline"
)

var (
	outJSON     string
	runTimeout  time.Duration
	skipVerify  bool
	demo        bool
	batchFile   string
	concurrency int
	llmEnabled  bool
	llmModel    string
)

// demoText is the built-in demo document, used with --demo when no source
// is given. The configured demo seed hints anchor into it.
const demoText = `I really enjoy living in my city, because the parks are clean and people are usually friendly on the streets. However, the new public transport app is incredibly frustrating, it crashes almost every day and often shows the wrong departure times.

Some users on social media keep posting comments like "immigrants are ruining our country and should all go home", which is a harmful stereotype and completely ignores how much many newcomers contribute to the local economy and culture. I strongly disagree with that kind of message and I think platforms should react more quickly when such content spreads.

There are also a lot of factual claims going around. One viral post says that the city has more than ten million inhabitants, even though official statistics put the population far below that. Another blog article claimed that our metro system first opened in 1895, but the transport authority's own website lists a much more recent opening date. Finally, a local news site recently reported that unemployment in the region has dropped for three years in a row, which sounds positive but should still be checked carefully.`

var runCmd = &cobra.Command{
	Use:   "run [file|url|-]",
	Short: "Run the analysis pipeline over one document",
	Long: `Run loads a document (local file, URL, or stdin with "-"), seeds the
configured claim/fact pairs into its annotation store, executes the
configured stages in order and prints the per-type summary.

Exit status is 0 when the run completes and 1 when it fails; a failed run
still prints the summary of whatever the earlier stages committed.

Example:
  annotext run document.txt
  annotext run https://example.com/article --json report.json
  annotext run --demo
  annotext run --batch sources.txt --concurrency 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&outJSON, "json", "", "write the report as JSON to this path")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "run-level deadline (overrides config)")
	runCmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "skip the pre-run stage health probes")
	runCmd.Flags().BoolVar(&demo, "demo", false, "run the built-in demo document and seed pairs")
	runCmd.Flags().StringVar(&batchFile, "batch", "", "file listing one document source per line")
	runCmd.Flags().IntVar(&concurrency, "concurrency", 2, "documents processed in parallel with --batch")
	runCmd.Flags().BoolVar(&llmEnabled, "llm", false, "append an LLM-generated prose summary (needs OPENAI_API_KEY)")
	runCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runTimeout > 0 {
		cfg.Run.Timeout = runTimeout
	}
	if skipVerify {
		cfg.Run.SkipVerify = true
	}
	if llmEnabled {
		cfg.LLM.Enabled = true
		if llmModel != "" {
			cfg.LLM.Model = llmModel
		}
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	logf := func(string, ...any) {}
	if cfg.Output.Verbose {
		logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}

	p, err := pipeline.NewPipeline(cfg, logf)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if batchFile != "" {
		return runBatch(p, cfg, batchFile)
	}

	seeds := cfg.Seeds
	var (
		report *model.Report
		doc    *annotation.Document
	)
	switch {
	case demo:
		if len(seeds) == 0 {
			seeds = pipeline.DemoSeeds()
		}
		report, doc, err = p.RunText(context.Background(), "demo", demoText, seeds)
	case len(args) == 1:
		report, doc, err = p.Run(context.Background(), args[0], seeds)
	default:
		return fmt.Errorf("a document source is required (or pass --demo)")
	}
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if cfg.LLM.Enabled {
		attachLLMSummary(cfg, report, logf)
	}

	renderer := pipeline.NewRenderer(os.Stdout, cfg.Output.MaxCovered)
	renderer.RenderReport(doc, report)
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return err
		}
		logf("wrote JSON report: %s", outJSON)
	}

	if report.Status != string(pipeline.StatusCompleted) {
		return fmt.Errorf("pipeline %s", report.Status)
	}
	return nil
}

func runBatch(p *pipeline.Pipeline, cfg *model.Config, listPath string) error {
	sources, err := readSources(listPath)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("batch file %s lists no sources", listPath)
	}

	results := pipeline.NewBatchProcessor(p, concurrency).Process(context.Background(), sources, cfg.Seeds)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("✗ %s: %v\n", res.Source, res.Err)
			continue
		}
		if res.Report.Status != string(pipeline.StatusCompleted) {
			failed++
		}
		fmt.Printf("%s %s: %s, %d annotations\n",
			statusMark(res.Report.Status), res.Source, res.Report.Status, res.Report.Summary.Total)
	}
	fmt.Printf("\n%d/%d documents completed\n", len(results)-failed, len(results))

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func statusMark(status string) string {
	if status == string(pipeline.StatusCompleted) {
		return "✓"
	}
	return "✗"
}

func readSources(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sources []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return sources, nil
}

func attachLLMSummary(cfg *model.Config, report *model.Report, logf func(string, ...any)) {
	provider, err := llm.NewOpenAIProvider(llm.Config{
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: LLM summary disabled: %v\n", err)
		return
	}
	summary, err := provider.Summarize(context.Background(), report)
	if err != nil {
		// The run result stands on its own; a summary failure is a warning.
		fmt.Fprintf(os.Stderr, "Warning: LLM summary failed: %v\n", err)
		return
	}
	report.LLMSummary = summary
	logf("LLM summary generated with %s", provider.Name())
}

// loadConfig resolves the effective configuration: defaults, then the
// config file and environment, in viper's precedence order.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
