package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"carelogic/arbiter/pkg/rules"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule files",
	Long: `Validate clinical rule files for syntax and structural errors.

The lint command parses rule files and performs validation:
  - YAML syntax validation
  - Rule set structure validation (names, duplicate rule IDs)
  - Condition validation (operators, operand requirements)
  - Action validation (every rule needs at least one action)

Examples:
  # Lint single file
  arbiter lint --file rules.yaml

  # Lint directory
  arbiter lint --dir rules/

  # JSON output for CI/CD
  arbiter lint --file rules.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rule files")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult is the validation outcome for a single rule file.
type LintResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	RuleSets int      `json:"rule_sets"`
	Rules    int      `json:"rules"`
	Errors   []string `json:"errors,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list rule files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no rule files found")
	}

	results := make([]LintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintRuleFile(file))
	}

	if lintFlags.format == "json" {
		return writeJSON(os.Stdout, results)
	}
	return printLintResults(results)
}

func lintRuleFile(path string) LintResult {
	result := LintResult{File: path, Valid: true}

	fail := func(msg string) {
		result.Valid = false
		result.Errors = append(result.Errors, msg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fail(err.Error())
		return result
	}

	sets, err := rules.ParseRuleSets(data)
	if err != nil {
		fail(err.Error())
		return result
	}

	result.RuleSets = len(sets)
	for _, set := range sets {
		result.Rules += len(set.Rules)
		if err := set.Validate(); err != nil {
			var verr *rules.ValidationError
			if errors.As(err, &verr) {
				for _, problem := range verr.Errors {
					fail(fmt.Sprintf("rule set %q: %s", set.Name, problem))
				}
			} else {
				fail(err.Error())
			}
		}
	}
	return result
}

func printLintResults(results []LintResult) error {
	totalErrors := 0

	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.File)
		if result.Valid {
			fmt.Printf("✓ %d rule set(s), %d rule(s), no problems\n", result.RuleSets, result.Rules)
			continue
		}
		for _, msg := range result.Errors {
			fmt.Printf("✗ Error: %s\n", msg)
			totalErrors++
		}
	}

	if totalErrors > 0 {
		return fmt.Errorf("validation failed with %d error(s)", totalErrors)
	}
	fmt.Printf("\nAll %d file(s) valid\n", len(results))
	return nil
}
