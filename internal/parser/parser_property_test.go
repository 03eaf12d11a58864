//go:build property
// +build property

package parser

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/nxml/internal/lexer"
)

// TestParserProperties verifies invariants that must hold for any input.
func TestParserProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("parsing is deterministic", prop.ForAll(
		func(source string) bool {
			first, firstErr := Parse(source)
			second, secondErr := Parse(source)
			if (firstErr == nil) != (secondErr == nil) {
				return false
			}
			if firstErr != nil {
				return firstErr.Error() == secondErr.Error()
			}
			return reflect.DeepEqual(first, second)
		},
		gen.AnyString(),
	))

	properties.Property("parsing leaves the token stream intact", prop.ForAll(
		func(id, title string) bool {
			source := fmt.Sprintf(`<NexusPanel id="%s" title="%s"/>`, id, title)
			tokens, err := lexer.New(source).Tokenize()
			if err != nil {
				return false
			}
			before := make([]lexer.Token, len(tokens))
			copy(before, tokens)

			firstPanel, err := New(tokens).Parse()
			if err != nil {
				return false
			}
			if !reflect.DeepEqual(before, tokens) {
				return false
			}
			secondPanel, err := New(tokens).Parse()
			if err != nil {
				return false
			}
			return reflect.DeepEqual(firstPanel, secondPanel)
		},
		genMetaWord(),
		gen.AlphaString(),
	))

	properties.Property("generated panels round-trip their declarations", prop.ForAll(
		func(id string, stateNames []string) bool {
			var b strings.Builder
			fmt.Fprintf(&b, `<NexusPanel id="%s"><Data>`, id)
			seen := make(map[string]struct{})
			var unique []string
			for _, name := range stateNames {
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				unique = append(unique, name)
				fmt.Fprintf(&b, `<State name="%s" type="string"/>`, name)
			}
			b.WriteString(`</Data></NexusPanel>`)

			panel, err := Parse(b.String())
			if err != nil {
				return false
			}
			if len(panel.Data.States) != len(unique) {
				return false
			}
			for i, name := range unique {
				if panel.Data.States[i].Name != name {
					return false
				}
			}
			return true
		},
		genMetaWord(),
		gen.SliceOf(genMetaWord()),
	))

	properties.TestingRun(t)
}

// TestCoerceScalarProperties pins the attribute coercion rules.
func TestCoerceScalarProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("coercion is deterministic", prop.ForAll(
		func(raw string) bool {
			return reflect.DeepEqual(CoerceScalar(raw), CoerceScalar(raw))
		},
		gen.AnyString(),
	))

	properties.Property("integers survive a format round trip", prop.ForAll(
		func(n int) bool {
			got, ok := CoerceScalar(strconv.Itoa(n)).(int)
			return ok && got == n
		},
		gen.Int(),
	))

	properties.Property("dotted decimals coerce to float", prop.ForAll(
		func(f float64) bool {
			raw := fmt.Sprintf("%.3f", f)
			want, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return false
			}
			got, ok := CoerceScalar(raw).(float64)
			return ok && got == want
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("true and false match in any case", prop.ForAll(
		func(upper []bool) bool {
			for _, word := range []string{"true", "false"} {
				mixed := mixCase(word, upper)
				got, ok := CoerceScalar(mixed).(bool)
				if !ok || got != (word == "true") {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.Bool()),
	))

	properties.Property("plain words stay strings", prop.ForAll(
		func(raw string) bool {
			switch strings.ToLower(raw) {
			case "true", "false":
				return true
			}
			got, ok := CoerceScalar(raw).(string)
			return ok && got == raw
		},
		gen.RegexMatch(`[a-zA-Z][a-zA-Z_-]{0,12}`),
	))

	properties.TestingRun(t)
}

func genMetaWord() gopter.Gen {
	return gen.RegexMatch(`[a-z][a-z0-9_]{0,8}`)
}

func mixCase(word string, upper []bool) string {
	out := []byte(word)
	for i := range out {
		if upper[i%len(upper)] {
			out[i] = byte(strings.ToUpper(string(out[i]))[0])
		}
	}
	return string(out)
}
