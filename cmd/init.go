package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:     "init [name]",
	Aliases: []string{"i"},
	Short:   "Scaffold a starter panel and configuration",
	Long: `Scaffold a starter NXML panel with reactive state, a tool handler,
a lifecycle hook and a view. The panel name defaults to "counter" and
becomes both the file name and the panel id; the title is derived from
it. A default .nxml.yml configuration file is written when none exists.

Examples:
  nxml init                            # Scaffold counter.nxml
  nxml init task-list                  # Scaffold task-list.nxml titled "Task List"
  nxml init counter --dir panels/      # Scaffold into a subdirectory
  nxml init counter --force            # Overwrite an existing file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initDir   string
	initForce bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVarP(&initDir, "dir", "d", ".", "Directory to scaffold into")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing panel file")
}

func runInit(cmd *cobra.Command, args []string) error {
	name := "counter"
	if len(args) > 0 {
		name = panelName(args[0])
	}
	if name == "" {
		return fmt.Errorf("invalid panel name %q", args[0])
	}

	if err := os.MkdirAll(initDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", initDir, err)
	}

	panelPath := filepath.Join(initDir, name+".nxml")
	if _, err := os.Stat(panelPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", panelPath)
	}

	if err := os.WriteFile(panelPath, []byte(starterPanel(name)), 0644); err != nil {
		return fmt.Errorf("failed to write panel file: %w", err)
	}
	fmt.Printf("✓ Created %s\n", panelPath)

	if err := createDefaultConfig(initDir); err != nil {
		return err
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. nxml compile %s\n", panelPath)
	fmt.Printf("  2. nxml run %s --tool increment --arg amount=1\n", panelPath)
	fmt.Println("  3. nxml watch")

	return nil
}

// panelName normalizes a user-supplied name into a panel id: lowercase,
// with spaces and underscores turned into hyphens.
func panelName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "_", "-")
	return strings.Trim(name, "-")
}

// panelTitle derives a display title from the panel id ("task-list"
// becomes "Task List").
func panelTitle(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "-", " "))
}

func starterPanel(name string) string {
	return fmt.Sprintf(`<NexusPanel id=%q title=%q version="1.0">
  <Data>
    <State name="count" type="number" default="0" description="Number of increments so far" />
    <State name="label" type="string" default="ready" />
    <Computed name="doubled" value="$state.count * 2" deps="count" />
  </Data>

  <Logic>
    <Tool name="increment" description="Add an amount to the counter">
      <Arg name="amount" type="number" required="true" description="How much to add" />
      <Handler capabilities="state:read:count,state:write:count">
        let next = $state.count + $args.amount;
        $state.count = next;
        return next;
      </Handler>
    </Tool>

    <Tool name="reset" description="Reset the counter to zero">
      <Handler capabilities="state:read:count,state:read:label,state:write:count,state:write:label">
        $state.count = 0;
        $state.label = "reset";
      </Handler>
    </Tool>

    <Lifecycle event="mount">
      <Handler capabilities="state:read:label,state:write:label">
        $state.label = "mounted";
      </Handler>
    </Lifecycle>
  </Logic>

  <View>
    <Container layout="column">
      <Text content="{$state.label}" />
      <Text content="{$state.count}" />
      <Button label="Increment" onClick="increment" />
    </Container>
  </View>
</NexusPanel>
`, name, panelTitle(name))
}

func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, ".nxml.yml")

	// Don't overwrite existing config
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("⚠ Configuration file already exists, skipping")
		return nil
	}

	configContent := `# NXML configuration file
cache:
  max_entries: 1024

sandbox:
  timeout_ms: 5000
  memory_limit_bytes: 134217728
  max_host_calls: 1000

pool:
  size: 10
  prewarm: false

# capabilities:
#   patterns_file: capability-patterns.yml

watch:
  debounce_ms: 300
  paths:
    - "."

log:
  level: info
  format: text
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println("✓ Created .nxml.yml configuration file")
	return nil
}
