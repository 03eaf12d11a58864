package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/nxml/internal/astcache"
	"github.com/conneroisu/nxml/internal/compiler"
	"github.com/conneroisu/nxml/internal/config"
	"github.com/conneroisu/nxml/internal/types"
)

var (
	compileFormat string
	compileAST    bool
)

// compileCmd represents the compile command
var compileCmd = &cobra.Command{
	Use:     "compile [files...]",
	Aliases: []string{"c"},
	Short:   "Compile NXML panels and report diagnostics",
	Long: `Compile one or more NXML panel files through the full pipeline:
tokenize, parse, validate. Each file gets a per-file report with errors,
warnings and cache status. The exit code is non-zero when any file fails.

Examples:
  nxml compile counter.nxml            # Compile a single panel
  nxml compile panels/*.nxml           # Compile several panels
  nxml compile counter.nxml --ast      # Dump the parsed AST as JSON
  nxml compile counter.nxml --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileFormat, "format", "f", "text", "Output format (text, json)")
	compileCmd.Flags().BoolVar(&compileAST, "ast", false, "Include the parsed AST in the output")
	addFlagValidation(compileCmd, "format", validateOutputFormat)
}

// compileReport is the per-file outcome in JSON output.
type compileReport struct {
	File       string             `json:"file"`
	PanelID    string             `json:"panel_id,omitempty"`
	Valid      bool               `json:"valid"`
	SourceHash string             `json:"source_hash,omitempty"`
	CacheHit   bool               `json:"cache_hit,omitempty"`
	Errors     []types.Diagnostic `json:"errors,omitempty"`
	Warnings   []types.Diagnostic `json:"warnings,omitempty"`
	Panel      *types.Panel       `json:"panel,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func runCompile(cmd *cobra.Command, args []string) error {
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

	if compileFormat == "json" {
		if err := printJSON(reports); err != nil {
			return err
		}
	} else {
		fmt.Printf("🔨 Compiling %d panel(s)...\n", len(args))
		for _, report := range reports {
			printCompileReport(report)
		}
	}

	if failed > 0 {
		return fmt.Errorf("compilation failed for %d of %d files", failed, len(reports))
	}
	return nil
}

// compileFiles runs every file through the compiler and collects the
// per-file reports. Read and parse failures become reports too, so one
// broken file never hides the others.
func compileFiles(ctx context.Context, comp *compiler.Compiler, files []string) []compileReport {
	reports := make([]compileReport, 0, len(files))
	for _, file := range files {
		result, err := comp.CompileFile(ctx, file)
		if err != nil {
			reports = append(reports, compileReport{File: file, Error: err.Error()})
			continue
		}
		report := compileReport{
			File:       file,
			PanelID:    result.Panel.Meta.ID,
			Valid:      result.Valid,
			SourceHash: result.SourceHash,
			CacheHit:   result.CacheHit,
			Errors:     result.Errors,
			Warnings:   result.Warnings,
		}
		if compileAST {
			report.Panel = result.Panel
		}
		reports = append(reports, report)
	}
	return reports
}

func printCompileReport(report compileReport) {
	switch {
	case report.Error != "":
		fmt.Printf("❌ %s: %s\n", report.File, report.Error)
	case !report.Valid:
		fmt.Printf("❌ %s: %d error(s), %d warning(s)\n", report.File, len(report.Errors), len(report.Warnings))
	default:
		fmt.Printf("✅ %s compiled\n", report.File)
	}
	for _, d := range report.Errors {
		fmt.Printf("   %s\n", formatDiagnostic(d))
	}
	for _, d := range report.Warnings {
		fmt.Printf("   %s\n", formatDiagnostic(d))
	}
	if report.Panel != nil {
		data, err := json.MarshalIndent(report.Panel, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
	}
}

// formatDiagnostic renders one diagnostic as a single line with severity,
// optional source location and optional hint.
func formatDiagnostic(d types.Diagnostic) string {
	var b strings.Builder
	b.WriteString(string(d.Severity))
	if d.Location != nil {
		fmt.Fprintf(&b, " at %s", d.Location)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Hint != "" {
		fmt.Fprintf(&b, " (hint: %s)", d.Hint)
	}
	return b.String()
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
