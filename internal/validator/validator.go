// Package validator performs semantic checks on parsed panel definitions.
//
// Validation never short-circuits: every check runs so callers see all
// problems at once. Errors make a panel invalid; warnings do not.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/types"
)

// validLifecycleEvents is kept sorted for stable hint output.
var validLifecycleEvents = []string{"blur", "error", "focus", "mount", "unmount", "update"}

// dangerousCapabilities require review before a panel is trusted.
var dangerousCapabilities = map[string]struct{}{
	"exec":                 {},
	"fs:delete":            {},
	"fs:write":             {},
	"network:unrestricted": {},
	"system":               {},
}

var validTypeNames = []string{
	types.TypeAny,
	types.TypeArray,
	types.TypeBoolean,
	types.TypeList,
	types.TypeNumber,
	types.TypeObject,
	types.TypeString,
}

// Result is the outcome of validating one panel.
type Result struct {
	// Valid is true exactly when Errors is empty
	Valid bool `json:"valid"`

	// Errors are problems that make the panel unusable
	Errors []types.Diagnostic `json:"errors"`

	// Warnings are suspicious constructs that still compile
	Warnings []types.Diagnostic `json:"warnings"`
}

// Diagnostics returns errors followed by warnings.
func (r Result) Diagnostics() []types.Diagnostic {
	out := make([]types.Diagnostic, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// Validator checks panel definitions for semantic correctness.
type Validator struct{}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate runs every semantic check against panel.
func (v *Validator) Validate(panel *types.Panel) Result {
	c := &collector{}

	v.checkPanelID(panel, c)
	v.checkStateNames(panel, c)
	v.checkComputedNames(panel, c)
	v.checkNameConflicts(panel, c)
	v.checkComputedDeps(panel, c)
	v.checkToolNames(panel, c)
	v.checkLifecycleEvents(panel, c)
	v.checkDangerousCapabilities(panel, c)
	v.checkArgs(panel, c)
	v.checkHandlers(panel, c)
	v.checkDeclaredTypes(panel, c)

	return Result{
		Valid:    len(c.errors) == 0,
		Errors:   c.errors,
		Warnings: c.warnings,
	}
}

func (v *Validator) checkPanelID(panel *types.Panel, c *collector) {
	if panel.Meta.ID == "" {
		c.warn("Panel has no id", "Set the id attribute on <NexusPanel>")
	}
}

func (v *Validator) checkStateNames(panel *types.Panel, c *collector) {
	names := make([]string, 0, len(panel.Data.States))
	for _, state := range panel.Data.States {
		if state.Name == "" {
			c.errorAt(state.Location, "State variable without a name", "All state variables must have a name")
			continue
		}
		names = append(names, state.Name)
	}
	if dups := findDuplicates(names); len(dups) > 0 {
		c.error(
			fmt.Sprintf("Duplicate state variable names: %s", strings.Join(dups, ", ")),
			"Each state variable must have a unique name",
		)
	}
}

func (v *Validator) checkComputedNames(panel *types.Panel, c *collector) {
	names := make([]string, 0, len(panel.Data.Computed))
	for _, computed := range panel.Data.Computed {
		if computed.Name == "" {
			c.errorAt(computed.Location, "Computed variable without a name", "All computed variables must have a name")
			continue
		}
		names = append(names, computed.Name)
	}
	if dups := findDuplicates(names); len(dups) > 0 {
		c.error(
			fmt.Sprintf("Duplicate computed variable names: %s", strings.Join(dups, ", ")),
			"Each computed variable must have a unique name",
		)
	}
}

func (v *Validator) checkNameConflicts(panel *types.Panel, c *collector) {
	stateSet := make(map[string]struct{}, len(panel.Data.States))
	for _, state := range panel.Data.States {
		stateSet[state.Name] = struct{}{}
	}
	var conflicts []string
	for _, name := range panel.ComputedNames() {
		if _, clash := stateSet[name]; clash {
			conflicts = append(conflicts, name)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		c.error(
			fmt.Sprintf("Variable name conflicts between state and computed: %s", strings.Join(conflicts, ", ")),
			"State and computed variables must have distinct names",
		)
	}
}

func (v *Validator) checkToolNames(panel *types.Panel, c *collector) {
	names := make([]string, 0, len(panel.Logic.Tools))
	for _, tool := range panel.Logic.Tools {
		if tool.Name == "" {
			c.errorAt(tool.Location, "Tool declared without a name", "All tools must have a name")
			continue
		}
		names = append(names, tool.Name)
	}
	if dups := findDuplicates(names); len(dups) > 0 {
		c.error(
			fmt.Sprintf("Duplicate tool names: %s", strings.Join(dups, ", ")),
			"Each tool must have a unique name",
		)
	}
}

func (v *Validator) checkLifecycleEvents(panel *types.Panel, c *collector) {
	for _, lc := range panel.Logic.Lifecycle {
		if isValidLifecycleEvent(lc.Event) {
			continue
		}
		hint := fmt.Sprintf("Valid events are: %s", strings.Join(validLifecycleEvents, ", "))
		if suggestion := nxmlerrors.DidYouMean(lc.Event, validLifecycleEvents); suggestion != "" {
			hint = suggestion
		}
		c.warnAt(lc.Location, fmt.Sprintf("Unknown lifecycle event: %s", lc.Event), hint)
	}
}

func (v *Validator) checkDangerousCapabilities(panel *types.Panel, c *collector) {
	var used []string
	for _, name := range panel.RequiredCapabilities() {
		if _, dangerous := dangerousCapabilities[name]; dangerous {
			used = append(used, name)
		}
	}
	if len(used) > 0 {
		c.warn(
			fmt.Sprintf("Panel uses dangerous capabilities: %s", strings.Join(used, ", ")),
			"Ensure these capabilities are necessary and properly restricted",
		)
	}
}

func (v *Validator) checkArgs(panel *types.Panel, c *collector) {
	for _, tool := range panel.Logic.Tools {
		for _, arg := range tool.Args {
			if arg.Name == "" {
				c.errorAt(arg.Location,
					fmt.Sprintf("Tool '%s' has an argument without a name", tool.Name),
					"All tool arguments must have a name",
				)
			}
		}
	}
}

func (v *Validator) checkHandlers(panel *types.Panel, c *collector) {
	for _, tool := range panel.Logic.Tools {
		v.checkHandler(c, fmt.Sprintf("Tool '%s'", tool.Name), tool.Handler)
	}
	for _, lc := range panel.Logic.Lifecycle {
		v.checkHandler(c, fmt.Sprintf("Lifecycle '%s'", lc.Event), lc.Handler)
	}
}

func (v *Validator) checkHandler(c *collector, owner string, handler *types.Handler) {
	if handler == nil {
		return
	}
	if strings.TrimSpace(handler.Code) == "" {
		c.warnAt(handler.Location,
			fmt.Sprintf("%s has an empty handler", owner),
			"Handler code should not be empty",
		)
	}
	if handler.TimeoutMS <= 0 {
		c.errorAt(handler.Location,
			fmt.Sprintf("%s handler timeout_ms must be positive, got %d", owner, handler.TimeoutMS),
			"Use a positive millisecond budget",
		)
	}
}

func (v *Validator) checkDeclaredTypes(panel *types.Panel, c *collector) {
	for _, state := range panel.Data.States {
		v.checkDeclaredType(c, fmt.Sprintf("State '%s'", state.Name), state.Type, state.Default, state.Location)
	}
	for _, computed := range panel.Data.Computed {
		if computed.Type != "" {
			v.checkDeclaredType(c, fmt.Sprintf("Computed '%s'", computed.Name), computed.Type, nil, computed.Location)
		}
	}
	for _, tool := range panel.Logic.Tools {
		for _, arg := range tool.Args {
			owner := fmt.Sprintf("Tool '%s' argument '%s'", tool.Name, arg.Name)
			v.checkDeclaredType(c, owner, arg.Type, arg.Default, arg.Location)
		}
	}
}

// checkDeclaredType flags unknown type names and defaults that cannot be
// converted to the declared type.
func (v *Validator) checkDeclaredType(c *collector, owner, typeName string, defaultValue any, loc types.SourceLocation) {
	if !types.IsPrimitiveType(typeName) {
		hint := fmt.Sprintf("Valid types are: %s", strings.Join(validTypeNames, ", "))
		if suggestion := nxmlerrors.DidYouMean(typeName, validTypeNames); suggestion != "" {
			hint = suggestion
		}
		c.warnAt(loc, fmt.Sprintf("%s has unknown type '%s'", owner, typeName), hint)
		return
	}
	if defaultValue == nil {
		return
	}
	want, checkable := ctyTypeFor(typeName)
	if !checkable {
		return
	}
	value, ok := ctyValueOf(defaultValue)
	if !ok {
		return
	}
	if _, err := convert.Convert(value, want); err != nil {
		c.warnAt(loc,
			fmt.Sprintf("%s default value does not fit declared type '%s'", owner, typeName),
			"Change the default or the declared type so they agree",
		)
	}
}

// ctyTypeFor maps a declared type name to its cty type. object and any
// accept every value and are not checked.
func ctyTypeFor(name string) (cty.Type, bool) {
	switch name {
	case types.TypeString:
		return cty.String, true
	case types.TypeNumber:
		return cty.Number, true
	case types.TypeBoolean:
		return cty.Bool, true
	case types.TypeArray, types.TypeList:
		return cty.List(cty.DynamicPseudoType), true
	default:
		return cty.NilType, false
	}
}

func ctyValueOf(v any) (cty.Value, bool) {
	switch value := v.(type) {
	case int:
		return cty.NumberIntVal(int64(value)), true
	case int64:
		return cty.NumberIntVal(value), true
	case float64:
		return cty.NumberFloatVal(value), true
	case bool:
		return cty.BoolVal(value), true
	case string:
		return cty.StringVal(value), true
	default:
		return cty.NilVal, false
	}
}

func isValidLifecycleEvent(event string) bool {
	for _, valid := range validLifecycleEvents {
		if event == valid {
			return true
		}
	}
	return false
}

// findDuplicates returns the sorted set of names appearing more than once.
func findDuplicates(names []string) []string {
	seen := make(map[string]int, len(names))
	for _, name := range names {
		seen[name]++
	}
	var dups []string
	for name, count := range seen {
		if count > 1 {
			dups = append(dups, name)
		}
	}
	sort.Strings(dups)
	return dups
}

// collector accumulates diagnostics during a validation pass.
type collector struct {
	errors   []types.Diagnostic
	warnings []types.Diagnostic
}

func (c *collector) error(message, hint string) {
	c.errors = append(c.errors, types.Diagnostic{
		Severity: types.SeverityError,
		Message:  message,
		Hint:     hint,
	})
}

func (c *collector) errorAt(loc types.SourceLocation, message, hint string) {
	c.errors = append(c.errors, types.Diagnostic{
		Severity: types.SeverityError,
		Message:  message,
		Location: &loc,
		Hint:     hint,
	})
}

func (c *collector) warn(message, hint string) {
	c.warnings = append(c.warnings, types.Diagnostic{
		Severity: types.SeverityWarning,
		Message:  message,
		Hint:     hint,
	})
}

func (c *collector) warnAt(loc types.SourceLocation, message, hint string) {
	c.warnings = append(c.warnings, types.Diagnostic{
		Severity: types.SeverityWarning,
		Message:  message,
		Location: &loc,
		Hint:     hint,
	})
}
