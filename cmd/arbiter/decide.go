package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"carelogic/arbiter/pkg/arbiter"
	"carelogic/arbiter/pkg/config"
	"carelogic/arbiter/pkg/facts"
	"carelogic/arbiter/pkg/rules"
)

var decideFlags struct {
	factsFile string
	trigger   string
	ruleSets  []string
	category  string
	caller    string
	timeout   time.Duration
	format    string
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run a one-shot decision over a facts file",
	Long: `Run a single decision pass over a patient facts document.

The decide command loads configuration and rule sets, evaluates the
registered decision pipeline against the facts document, and prints
the resulting recommendations.

Examples:
  # Decide over a facts file with the built-in rule library
  arbiter decide --facts patient.yaml

  # Restrict evaluation to specific rule sets
  arbiter decide --facts patient.yaml --rule-set medication-safety

  # JSON output for downstream tooling
  arbiter decide --facts patient.yaml --format json`,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideFlags.factsFile, "facts", "f", "", "facts document (YAML or JSON)")
	decideCmd.Flags().StringVarP(&decideFlags.trigger, "trigger", "t", "patient-view", "trigger type for service selection")
	decideCmd.Flags().StringSliceVar(&decideFlags.ruleSets, "rule-set", nil, "rule sets to evaluate (default: all)")
	decideCmd.Flags().StringVar(&decideFlags.category, "category", "", "restrict evaluation to one rule category")
	decideCmd.Flags().StringVar(&decideFlags.caller, "caller", "", "caller key for rate limiting")
	decideCmd.Flags().DurationVar(&decideFlags.timeout, "timeout", 0, "per-service timeout override")
	decideCmd.Flags().StringVar(&decideFlags.format, "format", "text", "output format: text, json")

	decideCmd.MarkFlagRequired("facts")
}

func runDecide(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, err := arbiter.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	factsCtx, err := loadFacts(decideFlags.factsFile)
	if err != nil {
		return err
	}

	result, err := engine.Decide(cmd.Context(), decideFlags.trigger, factsCtx, nil, arbiter.DecideOptions{
		CallerKey:      decideFlags.caller,
		RuleSets:       decideFlags.ruleSets,
		Category:       decideFlags.category,
		ServiceTimeout: decideFlags.timeout,
	})
	if err != nil {
		return fmt.Errorf("decision failed: %w", err)
	}

	if decideFlags.format == "json" {
		return writeJSON(os.Stdout, result)
	}
	printDecision(result)
	return nil
}

// loadConfig reads the configured file, falling back to built-in defaults
// when the default config path does not exist.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) && !rootCmd.PersistentFlags().Changed("config") {
		cfg := config.Default()
		applyVerbose(cfg)
		return cfg, nil
	}

	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}
	applyVerbose(cfg)
	return cfg, nil
}

func applyVerbose(cfg *config.Config) {
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
}

// loadFacts parses a YAML or JSON facts document into a fact context.
func loadFacts(path string) (facts.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts file %q: %w", path, err)
	}

	var ctx facts.Context
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("parse facts file %q: %w", path, err)
	}
	return ctx, nil
}

func printDecision(result *arbiter.DecideResult) {
	fmt.Printf("Request %s (%s)\n", result.RequestID, result.Elapsed.Round(time.Microsecond))

	if result.Orchestration != nil {
		o := result.Orchestration
		fmt.Printf("Services: %d executed, %d skipped, %d failed\n",
			o.ExecutedCount, o.SkippedCount, o.FailedCount)
	}
	if result.RuleBatch != nil {
		b := result.RuleBatch
		fmt.Printf("Rules: %d evaluated, %d triggered\n", b.EvaluatedRules, b.TriggeredRules)
	}

	if len(result.Recommendations) == 0 {
		fmt.Println("No recommendations.")
		return
	}

	fmt.Printf("\n%d recommendation(s):\n", len(result.Recommendations))
	for i, rec := range result.Recommendations {
		fmt.Printf("%d. [%s] %s\n", i+1, severityOf(rec), rec.Action.Summary)
		if rec.Action.Detail != "" {
			fmt.Printf("   %s\n", rec.Action.Detail)
		}
		fmt.Printf("   source: %s\n", sourceOf(rec))
		for _, s := range rec.Action.Suggestions {
			fmt.Printf("   - %s\n", s)
		}
	}
}

func severityOf(rec rules.Recommendation) string {
	if rec.Action.Severity == "" {
		return string(rules.SeverityInfo)
	}
	return string(rec.Action.Severity)
}

func sourceOf(rec rules.Recommendation) string {
	if rec.ServiceID != "" {
		return "service " + rec.ServiceID
	}
	return fmt.Sprintf("rule %s/%s", rec.RuleSet, rec.RuleID)
}

func writeJSON(w *os.File, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
