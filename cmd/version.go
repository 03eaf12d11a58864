package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/nxml/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for nxml including:

- Semantic version number
- Git commit hash
- Build timestamp
- Go version used for compilation
- Target platform (OS/architecture)

Examples:
  nxml version                 # Show version info
  nxml version --short         # One-line version
  nxml version --format json   # Output as JSON`,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	addFlagValidation(versionCmd, "format", validateOutputFormat)
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()

	if versionFormat == "json" {
		return printJSON(info)
	}
	if versionShort {
		fmt.Println(info.Short())
		return nil
	}
	fmt.Printf("nxml %s", info.Version)
	if info.GitCommit != "unknown" && len(info.GitCommit) >= 7 {
		fmt.Printf(" (%s)", info.GitCommit[:7])
	}
	if info.Dirty {
		fmt.Print(" (dirty)")
	}
	fmt.Println()
	if !info.BuildTime.IsZero() {
		fmt.Printf("Built: %s\n", info.BuildTime.Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Printf("Go: %s\n", info.GoVersion)
	fmt.Printf("Platform: %s\n", info.Platform)
	return nil
}
