package capability

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
)

// rule pairs a capability with the code patterns that demand it.
type rule struct {
	capability string
	patterns   []*regexp.Regexp
}

// defaultTable lists capability names with the handler-code patterns
// that require them. Order is fixed so violations report
// deterministically.
var defaultTable = []struct {
	capability string
	patterns   []string
}{
	{KindStateRead, []string{`\$state\.`, `state\[`, `state\.get`}},
	{KindStateWrite, []string{`\$state\.\w+\s*=`, `state\[.+\]\s*=`, `state\.set`}},
	{"http:request", []string{`fetch\(`, `http\.`, `axios\.`}},
	{"fs:read", []string{`fs\.read`, `readFile`}},
	{"fs:write", []string{`fs\.write`, `writeFile`}},
	{"fs:delete", []string{`fs\.delete`, `fs\.unlink`, `deleteFile`}},
	{"exec", []string{`exec\(`, `spawn\(`, `system\(`}},
	{"network:unrestricted", []string{`socket\(`, `connect\(`}},
	{KindEventsEmit, []string{`\$emit\(`}},
	{KindExtension, []string{`\$ext\.`}},
}

var defaultRules = compileDefaultRules()

func compileDefaultRules() []rule {
	rules := make([]rule, 0, len(defaultTable))
	for _, row := range defaultTable {
		r := rule{capability: row.capability}
		for _, pattern := range row.patterns {
			r.patterns = append(r.patterns, regexp.MustCompile(pattern))
		}
		rules = append(rules, r)
	}
	return rules
}

// Checker matches handler code against a capability pattern table.
type Checker struct {
	rules []rule
}

// NewChecker returns a checker using the built-in pattern table.
func NewChecker() *Checker {
	return &Checker{rules: defaultRules}
}

// NewCheckerFromPatterns builds a checker from a custom table. Rules
// are ordered by capability name for deterministic output.
func NewCheckerFromPatterns(table map[string][]string) (*Checker, error) {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]rule, 0, len(names))
	for _, name := range names {
		r := rule{capability: name}
		for _, pattern := range table[name] {
			compiled, err := regexp.Compile(pattern)
			if err != nil {
				return nil, nxmlerrors.NewConfigError(nxmlerrors.ErrCodeConfigInvalid,
					fmt.Sprintf("invalid pattern %q for capability %q: %v", pattern, name, err))
			}
			r.patterns = append(r.patterns, compiled)
		}
		rules = append(rules, r)
	}
	return &Checker{rules: rules}, nil
}

// LoadChecker reads a YAML pattern table (capability name to pattern
// list) and builds a checker from it.
func LoadChecker(path string) (*Checker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nxmlerrors.FileReadError(path, err)
	}
	var table map[string][]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, nxmlerrors.NewConfigError(nxmlerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid capability patterns file %s: %v", path, err))
	}
	return NewCheckerFromPatterns(table)
}

// Check returns the capabilities whose patterns match code but which
// are missing from granted. An empty result means compliant.
func (c *Checker) Check(code string, granted []string) []string {
	grants := NewGrants(granted)
	var violations []string
	for _, r := range c.rules {
		if grants.AllowsAny(r.capability) {
			continue
		}
		for _, pattern := range r.patterns {
			if pattern.MatchString(code) {
				violations = append(violations, r.capability)
				break
			}
		}
	}
	return violations
}

// Requires returns every capability whose patterns match code.
func (c *Checker) Requires(code string) []string {
	var required []string
	for _, r := range c.rules {
		for _, pattern := range r.patterns {
			if pattern.MatchString(code) {
				required = append(required, r.capability)
				break
			}
		}
	}
	return required
}

// IsDangerous reports whether any of the capabilities requires review
// before a panel is trusted.
func IsDangerous(capabilities []string) bool {
	dangerous := map[string]struct{}{
		"fs:write":             {},
		"fs:delete":            {},
		"exec":                 {},
		"network:unrestricted": {},
		"system":               {},
	}
	for _, name := range capabilities {
		if _, bad := dangerous[name]; bad {
			return true
		}
	}
	return false
}
