package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/nxml/internal/astcache"
	"github.com/conneroisu/nxml/internal/compiler"
	"github.com/conneroisu/nxml/internal/config"
)

var validateFormat string

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:     "validate [files...]",
	Aliases: []string{"v"},
	Short:   "Validate NXML panels and print a diagnostics summary",
	Long: `Validate one or more NXML panel files without executing anything.
Every diagnostic is printed with its location and hint, followed by a
summary table. The exit code is non-zero when any file has errors.

Examples:
  nxml validate counter.nxml
  nxml validate panels/*.nxml
  nxml validate counter.nxml --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
	addFlagValidation(validateCmd, "format", validateOutputFormat)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()
	comp := compiler.New(compiler.Options{
		Cache:  astcache.New(cfg.Cache.MaxEntries),
		Logger: newLogger(cfg),
	})

	reports := compileFiles(ctx, comp, args)
	failed := 0
	for _, report := range reports {
		if !report.Valid {
			failed++
		}
	}

	if validateFormat == "json" {
		if err := printJSON(reports); err != nil {
			return err
		}
	} else {
		printValidationText(reports)
	}

	if failed > 0 {
		return fmt.Errorf("validation failed for %d of %d files", failed, len(reports))
	}
	return nil
}

func printValidationText(reports []compileReport) {
	totalErrors := 0
	totalWarnings := 0

	for _, report := range reports {
		totalErrors += len(report.Errors)
		totalWarnings += len(report.Warnings)
		if report.Error == "" && len(report.Errors) == 0 && len(report.Warnings) == 0 {
			continue
		}
		if report.Error != "" {
			fmt.Printf("%s: %s\n", report.File, report.Error)
			continue
		}
		fmt.Printf("%s:\n", report.File)
		for _, d := range report.Errors {
			fmt.Printf("   %s\n", formatDiagnostic(d))
		}
		for _, d := range report.Warnings {
			fmt.Printf("   %s\n", formatDiagnostic(d))
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "FILE\tPANEL\tSTATUS\tERRORS\tWARNINGS")
	fmt.Fprintln(w, strings.Repeat("-", 4)+"\t"+strings.Repeat("-", 5)+"\t"+strings.Repeat("-", 6)+"\t"+strings.Repeat("-", 6)+"\t"+strings.Repeat("-", 8))
	valid := 0
	for _, report := range reports {
		status := "valid"
		if !report.Valid {
			status = "invalid"
		} else {
			valid++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			report.File, report.PanelID, status, len(report.Errors), len(report.Warnings))
	}

	fmt.Fprintf(w, "\n%d file(s) checked: %d valid, %d invalid, %d error(s), %d warning(s)\n",
		len(reports), valid, len(reports)-valid, totalErrors, totalWarnings)
}
