package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
)

func tokenTypes(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestTokenizeMinimalPanel(t *testing.T) {
	tokens, err := New(`<NexusPanel id="p1"></NexusPanel>`).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenTagOpen, TokenTagName, TokenAttrName, TokenEquals, TokenAttrValue, TokenTagClose,
		TokenTagEndOpen, TokenTagName, TokenTagClose,
		TokenEOF,
	}, tokenTypes(tokens))

	assert.Equal(t, "NexusPanel", tokens[1].Value)
	assert.Equal(t, "id", tokens[2].Value)
	assert.Equal(t, "p1", tokens[4].Value)
}

func TestTokenizeSelfClosingTag(t *testing.T) {
	tokens, err := New(`<State name="count" type="number" default="0"/>`).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenTagOpen, TokenTagName,
		TokenAttrName, TokenEquals, TokenAttrValue,
		TokenAttrName, TokenEquals, TokenAttrValue,
		TokenAttrName, TokenEquals, TokenAttrValue,
		TokenTagSelfClose,
		TokenEOF,
	}, tokenTypes(tokens))

	assert.Equal(t, "count", tokens[4].Value)
	assert.Equal(t, "number", tokens[7].Value)
	assert.Equal(t, "0", tokens[10].Value)
}

func TestTokenizeSingleQuotedValue(t *testing.T) {
	tokens, err := New(`<State name='x'/>`).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, TokenAttrValue, tokens[4].Type)
	assert.Equal(t, "x", tokens[4].Value)
}

func TestTokenizeBareAttribute(t *testing.T) {
	tokens, err := New(`<State name="a" readonly/>`).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenTagOpen, TokenTagName,
		TokenAttrName, TokenEquals, TokenAttrValue,
		TokenAttrName,
		TokenTagSelfClose,
		TokenEOF,
	}, tokenTypes(tokens))
	assert.Equal(t, "readonly", tokens[5].Value)
}

func TestTokenizeHandlerBodyVerbatim(t *testing.T) {
	source := `<Handler>if (a < b) { return {x: 1}; }</Handler>`
	tokens, err := New(source).Tokenize()
	require.NoError(t, err)

	var code *Token
	for i := range tokens {
		if tokens[i].Type == TokenCodeBlock {
			code = &tokens[i]
			break
		}
	}
	require.NotNil(t, code, "expected a CODE_BLOCK token")
	assert.Equal(t, "if (a < b) { return {x: 1}; }", code.Value)
}

func TestTokenizeHandlerWithAttributes(t *testing.T) {
	source := `<Handler capabilities="state:read, state:write" timeout_ms="100">
		$state.count = $state.count + 1;
		return { success: true };
	</Handler>`
	tokens, err := New(source).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenTagOpen, TokenTagName,
		TokenAttrName, TokenEquals, TokenAttrValue,
		TokenAttrName, TokenEquals, TokenAttrValue,
		TokenTagClose,
		TokenCodeBlock,
		TokenTagEndOpen, TokenTagName, TokenTagClose,
		TokenEOF,
	}, tokenTypes(tokens))

	assert.Equal(t, "state:read, state:write", tokens[4].Value)
	assert.Equal(t, "100", tokens[7].Value)
	assert.True(t, strings.HasPrefix(tokens[9].Value, "$state.count"))
	assert.True(t, strings.HasSuffix(tokens[9].Value, "return { success: true };"))
}

func TestTokenizeEmptyHandlerBody(t *testing.T) {
	tokens, err := New(`<Handler></Handler>`).Tokenize()
	require.NoError(t, err)

	for _, tok := range tokens {
		assert.NotEqual(t, TokenCodeBlock, tok.Type)
	}
}

func TestTokenizeSelfClosedHandlerDoesNotCapture(t *testing.T) {
	tokens, err := New(`<Tool name="t"><Handler/>after</Tool>`).Tokenize()
	require.NoError(t, err)

	var sawText, sawCode bool
	for _, tok := range tokens {
		switch tok.Type {
		case TokenText:
			sawText = true
			assert.Equal(t, "after", tok.Value)
		case TokenCodeBlock:
			sawCode = true
		}
	}
	assert.True(t, sawText)
	assert.False(t, sawCode)
}

func TestTokenizeExpression(t *testing.T) {
	testCases := []struct {
		name   string
		source string
		want   string
	}{
		{"simple", `{$state.count}`, `{$state.count}`},
		{"member chain", `{$state.user.profile}`, `{$state.user.profile}`},
		{"nested braces", `{$fmt({a: 1})}`, `{$fmt({a: 1})}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := New(tc.source).Tokenize()
			require.NoError(t, err)
			require.Len(t, tokens, 2)
			assert.Equal(t, TokenExpression, tokens[0].Type)
			assert.Equal(t, tc.want, tokens[0].Value)
			assert.Equal(t, TokenEOF, tokens[1].Type)
		})
	}
}

func TestTokenizeTextAndExpression(t *testing.T) {
	tokens, err := New(`<Text>Count: {$state.count}</Text>`).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenTagOpen, TokenTagName, TokenTagClose,
		TokenText, TokenExpression,
		TokenTagEndOpen, TokenTagName, TokenTagClose,
		TokenEOF,
	}, tokenTypes(tokens))

	assert.Equal(t, "Count:", tokens[3].Value)
	assert.Equal(t, "{$state.count}", tokens[4].Value)
}

func TestTokenizeTextTrimmed(t *testing.T) {
	tokens, err := New("<Text>   hello world  \n</Text>").Tokenize()
	require.NoError(t, err)

	assert.Equal(t, TokenText, tokens[3].Type)
	assert.Equal(t, "hello world", tokens[3].Value)
}

func TestTokenizeWhitespaceOnlyTextDropped(t *testing.T) {
	tokens, err := New("<View>\n\t \n</View>").Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenTagOpen, TokenTagName, TokenTagClose,
		TokenTagEndOpen, TokenTagName, TokenTagClose,
		TokenEOF,
	}, tokenTypes(tokens))
}

func TestTokenizeAlwaysEndsWithEOF(t *testing.T) {
	sources := []string{
		"",
		"plain text",
		`<NexusPanel id="p"></NexusPanel>`,
		"{$x}",
	}
	for _, source := range sources {
		tokens, err := New(source).Tokenize()
		require.NoError(t, err)
		require.NotEmpty(t, tokens)
		assert.Equal(t, TokenEOF, tokens[len(tokens)-1].Type)
	}
}

func TestTokenizeLocations(t *testing.T) {
	tokens, err := New("<NexusPanel id=\"p1\">\n  <Data>").Tokenize()
	require.NoError(t, err)

	// "<" at 1:1, name at 1:2, id at 1:13, "=" at 1:15, value at 1:16, ">" at 1:20
	assert.Equal(t, 1, tokens[0].Loc.Line)
	assert.Equal(t, 1, tokens[0].Loc.Column)
	assert.Equal(t, 2, tokens[1].Loc.Column)
	assert.Equal(t, 13, tokens[2].Loc.Column)
	assert.Equal(t, 15, tokens[3].Loc.Column)
	assert.Equal(t, 16, tokens[4].Loc.Column)
	assert.Equal(t, 20, tokens[5].Loc.Column)

	// "<Data" on line 2 column 3
	assert.Equal(t, 2, tokens[6].Loc.Line)
	assert.Equal(t, 3, tokens[6].Loc.Column)
}

func TestTokenizeErrors(t *testing.T) {
	testCases := []struct {
		name   string
		source string
		code   string
	}{
		{"unterminated attribute value", `<State name="x`, nxmlerrors.ErrCodeUnterminatedString},
		{"unterminated tag", `<State name="x"`, nxmlerrors.ErrCodeUnterminatedTag},
		{"unterminated expression", `{$state.count`, nxmlerrors.ErrCodeUnterminatedExpr},
		{"unterminated handler body", `<Handler>let x = 1;`, nxmlerrors.ErrCodeUnterminatedCode},
		{"unterminated closing tag", `<View></View`, nxmlerrors.ErrCodeUnterminatedTag},
		{"bad character in tag", `<State &>`, nxmlerrors.ErrCodeUnexpectedChar},
		{"missing tag name", `< name="x">`, nxmlerrors.ErrCodeUnexpectedChar},
		{"missing closing tag name", `</>`, nxmlerrors.ErrCodeUnexpectedChar},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.source).Tokenize()
			require.Error(t, err)

			var ne *nxmlerrors.NXMLError
			require.ErrorAs(t, err, &ne)
			assert.Equal(t, nxmlerrors.ErrorTypeLex, ne.Type)
			assert.Equal(t, tc.code, ne.Code)
			assert.Greater(t, ne.Line, 0, "lex errors carry a location")
		})
	}
}

func TestTokenizeErrorLocation(t *testing.T) {
	_, err := New("<View>\n  {$broken").Tokenize()
	require.Error(t, err)

	var ne *nxmlerrors.NXMLError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 2, ne.Line)
	assert.Equal(t, 3, ne.Column)
}

func TestTokenizeCanonicalPanel(t *testing.T) {
	source := `<NexusPanel id="test" title="Test">
    <Data>
        <State name="count" type="number" default="0"/>
    </Data>
    <Logic>
        <Tool name="increment">
            <Handler>
                $state.count = $state.count + 1;
                return { success: true };
            </Handler>
        </Tool>
    </Logic>
    <View>
        <Container>
            <Text>Count: {$state.count}</Text>
        </Container>
    </View>
</NexusPanel>`

	tokens, err := New(source).Tokenize()
	require.NoError(t, err)

	var codeBlocks, expressions int
	for _, tok := range tokens {
		switch tok.Type {
		case TokenCodeBlock:
			codeBlocks++
			assert.Contains(t, tok.Value, "$state.count = $state.count + 1;")
		case TokenExpression:
			expressions++
		}
	}
	assert.Equal(t, 1, codeBlocks)
	assert.Equal(t, 1, expressions)
	assert.Equal(t, TokenEOF, tokens[len(tokens)-1].Type)
}
