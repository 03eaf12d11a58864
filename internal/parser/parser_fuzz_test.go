package parser

import (
	"testing"
)

// FuzzParse checks that arbitrary input never panics the parser and that
// every successfully parsed panel has all sections populated.
func FuzzParse(f *testing.F) {
	seeds := []string{
		`<NexusPanel id="p"></NexusPanel>`,
		`<NexusPanel id="p"/>`,
		counterPanel,
		`<NexusPanel id="p"><Data><State name="x" default="3.14"/></Data></NexusPanel>`,
		`<NexusPanel id="p"><Logic><Tool name="t"><Handler capabilities="a,b">x;</Handler></Tool></Logic></NexusPanel>`,
		`<NexusPanel id="p"><View><Text>hi {$state.x}</Text></View></NexusPanel>`,
		`<NexusPanel id="p"><Unknown><Unknown/></Unknown></NexusPanel>`,
		`<Panel></Panel>`,
		`<NexusPanel id="p"><Data><Data>`,
		`<NexusPanel`,
		``,
		`text only`,
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, source string) {
		if len(source) > 10000 {
			t.Skip("skipping oversized input")
		}

		panel, err := Parse(source)
		if err != nil {
			return
		}

		if panel == nil {
			t.Fatal("nil panel without error")
		}
		if panel.Data == nil || panel.Logic == nil || panel.View == nil {
			t.Fatal("parsed panel has a nil section")
		}
		for _, tool := range panel.Logic.Tools {
			if tool.Handler == nil {
				t.Fatalf("tool %q parsed without a handler", tool.Name)
			}
		}
		for _, lc := range panel.Logic.Lifecycle {
			if lc.Handler == nil {
				t.Fatalf("lifecycle %q parsed without a handler", lc.Event)
			}
		}
		for _, tool := range panel.Logic.Tools {
			seen := make(map[string]bool)
			for _, name := range tool.Handler.Capabilities {
				if seen[name] {
					t.Fatalf("capability %q duplicated after parse", name)
				}
				seen[name] = true
			}
		}
	})
}
