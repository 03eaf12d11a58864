package lexer

import (
	"testing"
)

// FuzzTokenize checks that arbitrary input never panics the lexer and that
// every successful tokenization produces an EOF-terminated stream with
// locations inside the source.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		"",
		"plain text",
		`<NexusPanel id="p1"></NexusPanel>`,
		`<State name="count" type="number" default="0"/>`,
		`<Handler capabilities="state:read">return 1;</Handler>`,
		`<Text>Count: {$state.count}</Text>`,
		"{$fmt({a: {b: 1}})}",
		"<Handler/>text after",
		"<<<>>>",
		"</",
		`<State name="x`,
		"{$unclosed",
		"<Handler>no close",
		"<a b='c' d=\"e\">{$f}</a>",
		"\x00\xff<View>",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, source string) {
		if len(source) > 10000 {
			t.Skip("skipping oversized input")
		}

		tokens, err := New(source).Tokenize()
		if err != nil {
			return
		}

		if len(tokens) == 0 {
			t.Fatal("successful tokenization returned no tokens")
		}
		if last := tokens[len(tokens)-1]; last.Type != TokenEOF {
			t.Fatalf("stream does not end with EOF, got %v", last.Type)
		}
		for i, tok := range tokens {
			if tok.Loc.Line < 1 || tok.Loc.Column < 1 {
				t.Fatalf("token %v has invalid location %v", tok.Type, tok.Loc)
			}
			if tok.Type == TokenEOF && i != len(tokens)-1 {
				t.Fatal("EOF token before end of stream")
			}
		}
	})
}
