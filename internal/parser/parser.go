// Package parser builds panel definitions from NXML token streams.
//
// Parsing is single-pass recursive descent. The three panel sections may
// appear in any order, at most once each; missing sections are filled with
// empty defaults so later stages never see a nil section. Unknown elements
// inside Data and Logic are skipped whole, staying balanced even when
// same-named elements nest.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/lexer"
	"github.com/conneroisu/nxml/internal/types"
)

const (
	rootElement     = "NexusPanel"
	defaultViewType = "Layout"
)

// DefaultTimeoutMS is the handler timeout applied when timeout_ms is absent.
const DefaultTimeoutMS = 5000

// Parser consumes an EOF-terminated token stream and produces a typed
// panel definition.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse tokenizes source and parses the result into a panel definition.
func Parse(source string) (*types.Panel, error) {
	tokens, err := lexer.New(source).Tokenize()
	if err != nil {
		return nil, err
	}
	return New(tokens).Parse()
}

// New returns a parser over tokens.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse builds the panel definition rooted at <NexusPanel>.
func (p *Parser) Parse() (*types.Panel, error) {
	openTok, err := p.expect(lexer.TokenTagOpen)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.TokenTagName)
	if err != nil {
		return nil, err
	}
	if nameTok.Value != rootElement {
		return nil, p.errAt(nameTok.Loc, nxmlerrors.ErrCodeRootMismatch,
			"root element must be <%s>, got <%s>", rootElement, nameTok.Value)
	}

	panel := &types.Panel{Meta: panelMeta(p.parseAttributes())}

	if p.check(lexer.TokenTagSelfClose) {
		p.advance()
		fillDefaults(panel)
		return p.finish(panel)
	}
	if _, err := p.expect(lexer.TokenTagClose); err != nil {
		return nil, err
	}

	for !p.checkClosingTag(rootElement) {
		if p.isAtEnd() {
			return nil, p.errAt(openTok.Loc, nxmlerrors.ErrCodeUnclosedTag,
				"unclosed <%s>, missing </%s>", rootElement, rootElement)
		}
		switch name := p.peekElementName(); name {
		case "Data":
			if panel.Data != nil {
				return nil, p.duplicateSection("Data")
			}
			if panel.Data, err = p.parseDataSection(); err != nil {
				return nil, err
			}
		case "Logic":
			if panel.Logic != nil {
				return nil, p.duplicateSection("Logic")
			}
			if panel.Logic, err = p.parseLogicSection(); err != nil {
				return nil, err
			}
		case "View":
			if panel.View != nil {
				return nil, p.duplicateSection("View")
			}
			if panel.View, err = p.parseViewSection(); err != nil {
				return nil, err
			}
		case "":
			return nil, p.unexpected("a <Data>, <Logic>, or <View> section")
		default:
			return nil, p.errAt(p.peek().Loc, nxmlerrors.ErrCodeUnexpectedToken,
				"unknown section <%s> in <%s>", name, rootElement).
				WithHint("panel sections are <Data>, <Logic>, and <View>")
		}
	}

	if err := p.consumeClosingTag(rootElement); err != nil {
		return nil, err
	}
	fillDefaults(panel)
	return p.finish(panel)
}

// finish rejects trailing content after the closing root tag.
func (p *Parser) finish(panel *types.Panel) (*types.Panel, error) {
	if !p.isAtEnd() {
		return nil, p.errAt(p.peek().Loc, nxmlerrors.ErrCodeUnexpectedToken,
			"unexpected content after </%s>", rootElement)
	}
	return panel, nil
}

func fillDefaults(panel *types.Panel) {
	if panel.Data == nil {
		panel.Data = &types.DataSection{}
	}
	if panel.Logic == nil {
		panel.Logic = &types.LogicSection{}
	}
	if panel.View == nil {
		panel.View = &types.ViewNode{Type: defaultViewType}
	}
}

func panelMeta(attrs attributeList) types.PanelMeta {
	meta := types.PanelMeta{
		ID:          attrs.lookup("id", ""),
		Title:       attrs.lookup("title", ""),
		Type:        attrs.lookup("type", "custom"),
		Version:     attrs.lookup("version", "1.0.0"),
		Description: attrs.lookup("description", ""),
		Author:      attrs.lookup("author", ""),
		Icon:        attrs.lookup("icon", ""),
	}
	if raw, ok := attrs.get("tags"); ok {
		meta.Tags = splitList(raw)
	}
	return meta
}

// Sections

func (p *Parser) parseDataSection() (*types.DataSection, error) {
	open, err := p.consumeElementOpen("Data")
	if err != nil {
		return nil, err
	}
	section := &types.DataSection{}
	if open.selfClosed {
		return section, nil
	}
	for !p.checkClosingTag("Data") {
		if p.isAtEnd() {
			return nil, p.errAt(open.loc, nxmlerrors.ErrCodeUnclosedTag, "unclosed <Data> section")
		}
		switch p.peekElementName() {
		case "State":
			decl, err := p.parseStateDecl()
			if err != nil {
				return nil, err
			}
			section.States = append(section.States, decl)
		case "Computed":
			decl, err := p.parseComputedDecl()
			if err != nil {
				return nil, err
			}
			section.Computed = append(section.Computed, decl)
		default:
			if err := p.skipUnknown("Data"); err != nil {
				return nil, err
			}
		}
	}
	if err := p.consumeClosingTag("Data"); err != nil {
		return nil, err
	}
	return section, nil
}

func (p *Parser) parseLogicSection() (*types.LogicSection, error) {
	open, err := p.consumeElementOpen("Logic")
	if err != nil {
		return nil, err
	}
	section := &types.LogicSection{}
	if open.selfClosed {
		return section, nil
	}
	for !p.checkClosingTag("Logic") {
		if p.isAtEnd() {
			return nil, p.errAt(open.loc, nxmlerrors.ErrCodeUnclosedTag, "unclosed <Logic> section")
		}
		switch p.peekElementName() {
		case "Extension":
			decl, err := p.parseExtensionDecl()
			if err != nil {
				return nil, err
			}
			section.Extensions = append(section.Extensions, decl)
		case "Tool":
			decl, err := p.parseToolDecl()
			if err != nil {
				return nil, err
			}
			section.Tools = append(section.Tools, decl)
		case "Lifecycle":
			decl, err := p.parseLifecycleDecl()
			if err != nil {
				return nil, err
			}
			section.Lifecycle = append(section.Lifecycle, decl)
		default:
			if err := p.skipUnknown("Logic"); err != nil {
				return nil, err
			}
		}
	}
	if err := p.consumeClosingTag("Logic"); err != nil {
		return nil, err
	}
	return section, nil
}

func (p *Parser) parseViewSection() (*types.ViewNode, error) {
	open, err := p.consumeElementOpen("View")
	if err != nil {
		return nil, err
	}
	if open.selfClosed {
		return &types.ViewNode{Type: defaultViewType, Location: open.loc}, nil
	}

	var root *types.ViewNode
	for !p.checkClosingTag("View") {
		switch {
		case p.isAtEnd():
			return nil, p.errAt(open.loc, nxmlerrors.ErrCodeUnclosedTag, "unclosed <View> section")
		case p.check(lexer.TokenTagEndOpen):
			return nil, p.mismatchedClose("View")
		case !p.check(lexer.TokenTagOpen):
			return nil, p.unexpected("a view component")
		case root != nil:
			return nil, p.errAt(p.peek().Loc, nxmlerrors.ErrCodeUnexpectedToken,
				"view section must contain a single root component").
				WithHint("wrap sibling components in a <Container>")
		default:
			if root, err = p.parseViewNode(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.consumeClosingTag("View"); err != nil {
		return nil, err
	}
	if root == nil {
		root = &types.ViewNode{Type: defaultViewType, Location: open.loc}
	}
	return root, nil
}

// Data declarations

func (p *Parser) parseStateDecl() (types.StateDecl, error) {
	open, err := p.parseLeafElement("State")
	if err != nil {
		return types.StateDecl{}, err
	}
	decl := types.StateDecl{
		Name:        open.attrs.lookup("name", ""),
		Type:        open.attrs.lookup("type", "any"),
		Description: open.attrs.lookup("description", ""),
		Validation:  open.attrs.rest("name", "type", "default", "description"),
		Location:    open.loc,
	}
	if raw, ok := open.attrs.get("default"); ok {
		decl.Default = CoerceScalar(raw)
	}
	return decl, nil
}

func (p *Parser) parseComputedDecl() (types.ComputedDecl, error) {
	open, err := p.parseLeafElement("Computed")
	if err != nil {
		return types.ComputedDecl{}, err
	}
	decl := types.ComputedDecl{
		Name:        open.attrs.lookup("name", ""),
		Expression:  open.attrs.lookup("value", ""),
		Type:        open.attrs.lookup("type", ""),
		Description: open.attrs.lookup("description", ""),
		Location:    open.loc,
	}
	if raw, ok := open.attrs.get("deps"); ok {
		decl.Deps = splitList(raw)
	}
	return decl, nil
}

// Logic declarations

func (p *Parser) parseExtensionDecl() (types.ExtensionDecl, error) {
	open, err := p.parseLeafElement("Extension")
	if err != nil {
		return types.ExtensionDecl{}, err
	}
	return types.ExtensionDecl{
		Name:     open.attrs.lookup("name", ""),
		Config:   open.attrs.rest("name"),
		Location: open.loc,
	}, nil
}

func (p *Parser) parseToolDecl() (types.ToolDecl, error) {
	open, err := p.consumeElementOpen("Tool")
	if err != nil {
		return types.ToolDecl{}, err
	}
	decl := types.ToolDecl{
		Name:        open.attrs.lookup("name", ""),
		Description: open.attrs.lookup("description", ""),
		Icon:        open.attrs.lookup("icon", ""),
		Location:    open.loc,
	}
	if !open.selfClosed {
		for !p.checkClosingTag("Tool") {
			if p.isAtEnd() {
				return types.ToolDecl{}, p.errAt(open.loc, nxmlerrors.ErrCodeUnclosedTag, "unclosed <Tool> element")
			}
			switch p.peekElementName() {
			case "Arg":
				arg, err := p.parseArgDecl()
				if err != nil {
					return types.ToolDecl{}, err
				}
				decl.Args = append(decl.Args, arg)
			case "Handler":
				if decl.Handler != nil {
					return types.ToolDecl{}, p.errAt(p.peek().Loc, nxmlerrors.ErrCodeDuplicateSection,
						"tool %q declares more than one <Handler>", decl.Name)
				}
				if decl.Handler, err = p.parseHandler(); err != nil {
					return types.ToolDecl{}, err
				}
			default:
				if err := p.skipUnknown("Tool"); err != nil {
					return types.ToolDecl{}, err
				}
			}
		}
		if err := p.consumeClosingTag("Tool"); err != nil {
			return types.ToolDecl{}, err
		}
	}
	if decl.Handler == nil {
		return types.ToolDecl{}, p.errAt(open.loc, nxmlerrors.ErrCodeMissingHandler,
			"tool %q must declare a <Handler>", decl.Name)
	}
	return decl, nil
}

func (p *Parser) parseArgDecl() (types.ArgDecl, error) {
	open, err := p.parseLeafElement("Arg")
	if err != nil {
		return types.ArgDecl{}, err
	}
	decl := types.ArgDecl{
		Name:        open.attrs.lookup("name", ""),
		Type:        open.attrs.lookup("type", "any"),
		Required:    strings.EqualFold(open.attrs.lookup("required", "true"), "true"),
		Description: open.attrs.lookup("description", ""),
		Location:    open.loc,
	}
	if raw, ok := open.attrs.get("default"); ok {
		decl.Default = CoerceScalar(raw)
	}
	return decl, nil
}

func (p *Parser) parseLifecycleDecl() (types.LifecycleDecl, error) {
	open, err := p.consumeElementOpen("Lifecycle")
	if err != nil {
		return types.LifecycleDecl{}, err
	}
	decl := types.LifecycleDecl{
		Event:    open.attrs.lookup("on", ""),
		Location: open.loc,
	}
	if !open.selfClosed {
		for !p.checkClosingTag("Lifecycle") {
			if p.isAtEnd() {
				return types.LifecycleDecl{}, p.errAt(open.loc, nxmlerrors.ErrCodeUnclosedTag, "unclosed <Lifecycle> element")
			}
			switch p.peekElementName() {
			case "Handler":
				if decl.Handler != nil {
					return types.LifecycleDecl{}, p.errAt(p.peek().Loc, nxmlerrors.ErrCodeDuplicateSection,
						"lifecycle %q declares more than one <Handler>", decl.Event)
				}
				if decl.Handler, err = p.parseHandler(); err != nil {
					return types.LifecycleDecl{}, err
				}
			default:
				if err := p.skipUnknown("Lifecycle"); err != nil {
					return types.LifecycleDecl{}, err
				}
			}
		}
		if err := p.consumeClosingTag("Lifecycle"); err != nil {
			return types.LifecycleDecl{}, err
		}
	}
	if decl.Handler == nil {
		return types.LifecycleDecl{}, p.errAt(open.loc, nxmlerrors.ErrCodeMissingHandler,
			"lifecycle %q must declare a <Handler>", decl.Event)
	}
	return decl, nil
}

func (p *Parser) parseHandler() (*types.Handler, error) {
	open, err := p.consumeElementOpen("Handler")
	if err != nil {
		return nil, err
	}
	handler := &types.Handler{
		TimeoutMS: DefaultTimeoutMS,
		Location:  open.loc,
	}
	if raw, ok := open.attrs.get("capabilities"); ok {
		handler.Capabilities = splitCapabilities(raw)
	}
	if attr, ok := open.attrs.find("timeout_ms"); ok {
		ms, err := strconv.Atoi(attr.value)
		if err != nil {
			return nil, p.errAt(attr.loc, nxmlerrors.ErrCodeBadAttribute,
				"timeout_ms must be an integer, got %q", attr.value)
		}
		handler.TimeoutMS = ms
	}
	if open.selfClosed {
		return handler, nil
	}
	if p.check(lexer.TokenCodeBlock) {
		handler.Code = p.advance().Value
	}
	if err := p.consumeClosingTag("Handler"); err != nil {
		return nil, err
	}
	return handler, nil
}

// View nodes

func (p *Parser) parseViewNode() (*types.ViewNode, error) {
	openTok, err := p.expect(lexer.TokenTagOpen)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.TokenTagName)
	if err != nil {
		return nil, err
	}
	node := &types.ViewNode{Type: nameTok.Value, Location: openTok.Loc}
	routeViewAttributes(node, p.parseAttributes())

	if p.check(lexer.TokenTagSelfClose) {
		p.advance()
		return node, nil
	}
	if _, err := p.expect(lexer.TokenTagClose); err != nil {
		return nil, err
	}

	for !p.checkClosingTag(node.Type) {
		switch {
		case p.isAtEnd():
			return nil, p.errAt(openTok.Loc, nxmlerrors.ErrCodeUnclosedTag,
				"unclosed <%s> element", node.Type)
		case p.check(lexer.TokenTagOpen):
			child, err := p.parseViewNode()
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		case p.check(lexer.TokenText):
			node.Children = append(node.Children, textNode(p.advance()))
		case p.check(lexer.TokenExpression):
			node.Children = append(node.Children, boundTextNode(p.advance()))
		case p.check(lexer.TokenTagEndOpen):
			return nil, p.mismatchedClose(node.Type)
		default:
			p.advance()
		}
	}
	if err := p.consumeClosingTag(node.Type); err != nil {
		return nil, err
	}
	return node, nil
}

func textNode(tok lexer.Token) *types.ViewNode {
	return &types.ViewNode{
		Type:     "Text",
		Props:    types.PropList{{Name: "value", Value: tok.Value}},
		Location: tok.Loc,
	}
}

// boundTextNode wraps a bare {$...} expression in a Text node bound to it.
func boundTextNode(tok lexer.Token) *types.ViewNode {
	return &types.ViewNode{
		Type:     "Text",
		Bindings: map[string]string{"value": tok.Value},
		Location: tok.Loc,
	}
}

// routeViewAttributes splits raw attributes into static props, {$...}
// bindings, and on* event wirings. Props keep their source order.
func routeViewAttributes(node *types.ViewNode, attrs attributeList) {
	for _, attr := range attrs {
		switch {
		case isEventName(attr.name):
			if node.Events == nil {
				node.Events = make(map[string]string)
			}
			node.Events[attr.name] = attr.value
		case isBindingExpr(attr.value):
			if node.Bindings == nil {
				node.Bindings = make(map[string]string)
			}
			node.Bindings[attr.name] = attr.value
		default:
			node.Props = append(node.Props, types.Prop{Name: attr.name, Value: attr.value})
		}
	}
}

// isEventName matches camel-case event attributes such as onClick, but
// not ordinary prop names that merely start with "on".
func isEventName(name string) bool {
	return len(name) > 2 && strings.HasPrefix(name, "on") && name[2] >= 'A' && name[2] <= 'Z'
}

func isBindingExpr(value string) bool {
	return strings.HasPrefix(value, "{$") && strings.HasSuffix(value, "}")
}

// Attribute handling

type attribute struct {
	name  string
	value string
	loc   types.SourceLocation
}

// attributeList preserves source order; lookups favor the last
// occurrence when an attribute repeats.
type attributeList []attribute

func (a attributeList) get(name string) (string, bool) {
	if attr, ok := a.find(name); ok {
		return attr.value, true
	}
	return "", false
}

func (a attributeList) find(name string) (attribute, bool) {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i].name == name {
			return a[i], true
		}
	}
	return attribute{}, false
}

func (a attributeList) lookup(name, fallback string) string {
	if value, ok := a.get(name); ok {
		return value
	}
	return fallback
}

// rest returns the attributes whose names are not in known, or nil.
func (a attributeList) rest(known ...string) map[string]string {
	var out map[string]string
	for _, attr := range a {
		recognized := false
		for _, name := range known {
			if attr.name == name {
				recognized = true
				break
			}
		}
		if recognized {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[attr.name] = attr.value
	}
	return out
}

// parseAttributes consumes attribute tokens. A name without a value is
// treated as the boolean shorthand name="true".
func (p *Parser) parseAttributes() attributeList {
	var attrs attributeList
	for p.check(lexer.TokenAttrName) {
		nameTok := p.advance()
		value := "true"
		if p.check(lexer.TokenEquals) {
			p.advance()
			if p.check(lexer.TokenAttrValue) {
				value = p.advance().Value
			}
		}
		attrs = append(attrs, attribute{name: nameTok.Value, value: value, loc: nameTok.Loc})
	}
	return attrs
}

// CoerceScalar converts an attribute string to its natural Go value.
// Values containing a dot try float first, other values try int, then
// the literals true/false match case-insensitively, and anything else
// stays a string.
func CoerceScalar(raw string) any {
	if strings.Contains(raw, ".") {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	} else if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// splitCapabilities splits, trims, and deduplicates a capability list,
// preserving first-occurrence order.
func splitCapabilities(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, name := range splitList(raw) {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Element plumbing

// openElement records a consumed opening tag.
type openElement struct {
	loc        types.SourceLocation
	attrs      attributeList
	selfClosed bool
}

func (p *Parser) consumeElementOpen(name string) (openElement, error) {
	openTok, err := p.expect(lexer.TokenTagOpen)
	if err != nil {
		return openElement{}, err
	}
	nameTok, err := p.expect(lexer.TokenTagName)
	if err != nil {
		return openElement{}, err
	}
	if nameTok.Value != name {
		return openElement{}, p.errAt(nameTok.Loc, nxmlerrors.ErrCodeUnexpectedToken,
			"expected <%s>, got <%s>", name, nameTok.Value)
	}
	open := openElement{loc: openTok.Loc, attrs: p.parseAttributes()}
	if p.check(lexer.TokenTagSelfClose) {
		p.advance()
		open.selfClosed = true
		return open, nil
	}
	if _, err := p.expect(lexer.TokenTagClose); err != nil {
		return openElement{}, err
	}
	return open, nil
}

func (p *Parser) consumeClosingTag(name string) error {
	if _, err := p.expect(lexer.TokenTagEndOpen); err != nil {
		return err
	}
	nameTok, err := p.expect(lexer.TokenTagName)
	if err != nil {
		return err
	}
	if nameTok.Value != name {
		return p.errAt(nameTok.Loc, nxmlerrors.ErrCodeUnclosedTag,
			"expected </%s>, got </%s>", name, nameTok.Value)
	}
	_, err = p.expect(lexer.TokenTagClose)
	return err
}

// parseLeafElement consumes an element whose body carries no meaning,
// returning its location and attributes. Body content is skipped.
func (p *Parser) parseLeafElement(name string) (openElement, error) {
	open, err := p.consumeElementOpen(name)
	if err != nil {
		return openElement{}, err
	}
	if open.selfClosed {
		return open, nil
	}
	for !p.checkClosingTag(name) {
		switch {
		case p.isAtEnd():
			return openElement{}, p.errAt(open.loc, nxmlerrors.ErrCodeUnclosedTag, "unclosed <%s> element", name)
		case p.check(lexer.TokenTagOpen):
			if err := p.skipElement(); err != nil {
				return openElement{}, err
			}
		case p.check(lexer.TokenTagEndOpen):
			return openElement{}, p.mismatchedClose(name)
		default:
			p.advance()
		}
	}
	if err := p.consumeClosingTag(name); err != nil {
		return openElement{}, err
	}
	return open, nil
}

// skipUnknown consumes one unit of unrecognized content inside parent:
// a whole element, stray text, or a stray expression. A closing tag
// that does not match parent is an error.
func (p *Parser) skipUnknown(parent string) error {
	switch {
	case p.check(lexer.TokenTagOpen):
		return p.skipElement()
	case p.check(lexer.TokenTagEndOpen):
		return p.mismatchedClose(parent)
	default:
		p.advance()
		return nil
	}
}

// skipElement consumes one complete element and its content, staying
// balanced when same-named elements nest.
func (p *Parser) skipElement() error {
	openTok, err := p.expect(lexer.TokenTagOpen)
	if err != nil {
		return err
	}
	nameTok, err := p.expect(lexer.TokenTagName)
	if err != nil {
		return err
	}
	p.parseAttributes()
	if p.check(lexer.TokenTagSelfClose) {
		p.advance()
		return nil
	}
	if _, err := p.expect(lexer.TokenTagClose); err != nil {
		return err
	}
	for !p.checkClosingTag(nameTok.Value) {
		switch {
		case p.isAtEnd():
			return p.errAt(openTok.Loc, nxmlerrors.ErrCodeUnclosedTag, "unclosed <%s> element", nameTok.Value)
		case p.check(lexer.TokenTagOpen):
			if err := p.skipElement(); err != nil {
				return err
			}
		case p.check(lexer.TokenTagEndOpen):
			return p.mismatchedClose(nameTok.Value)
		default:
			p.advance()
		}
	}
	return p.consumeClosingTag(nameTok.Value)
}

// Token plumbing

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if tok.Type != lexer.TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) check(tt lexer.TokenType) bool {
	return p.peek().Type == tt
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if !p.check(tt) {
		tok := p.peek()
		return lexer.Token{}, p.errAt(tok.Loc, nxmlerrors.ErrCodeUnexpectedToken,
			"expected %s, got %s", tt, describeToken(tok))
	}
	return p.advance(), nil
}

func (p *Parser) checkClosingTag(name string) bool {
	if !p.check(lexer.TokenTagEndOpen) || p.pos+1 >= len(p.tokens) {
		return false
	}
	next := p.tokens[p.pos+1]
	return next.Type == lexer.TokenTagName && next.Value == name
}

// peekElementName returns the tag name of the element opening at the
// current position, or "" when the next token is not an opening tag.
func (p *Parser) peekElementName() string {
	if !p.check(lexer.TokenTagOpen) || p.pos+1 >= len(p.tokens) {
		return ""
	}
	if next := p.tokens[p.pos+1]; next.Type == lexer.TokenTagName {
		return next.Value
	}
	return ""
}

// Errors

func (p *Parser) errAt(loc types.SourceLocation, code, format string, args ...any) *nxmlerrors.NXMLError {
	return nxmlerrors.NewParseError(code, fmt.Sprintf(format, args...), loc.Line, loc.Column)
}

func (p *Parser) unexpected(want string) error {
	tok := p.peek()
	return p.errAt(tok.Loc, nxmlerrors.ErrCodeUnexpectedToken,
		"expected %s, got %s", want, describeToken(tok))
}

func (p *Parser) duplicateSection(name string) error {
	return p.errAt(p.peek().Loc, nxmlerrors.ErrCodeDuplicateSection,
		"duplicate <%s> section", name).
		WithHint(fmt.Sprintf("a panel may declare at most one <%s> section", name))
}

// mismatchedClose reports a closing tag that does not match the element
// being parsed. The stray </ token is consumed so the location points
// at it.
func (p *Parser) mismatchedClose(expected string) error {
	endTok := p.advance()
	name := "?"
	if p.check(lexer.TokenTagName) {
		name = p.peek().Value
	}
	return p.errAt(endTok.Loc, nxmlerrors.ErrCodeUnclosedTag,
		"expected </%s>, got </%s>", expected, name)
}

func describeToken(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokenEOF:
		return "end of input"
	case lexer.TokenText:
		return fmt.Sprintf("text %q", tok.Value)
	case lexer.TokenTagName:
		return fmt.Sprintf("<%s>", tok.Value)
	default:
		return tok.Type.String()
	}
}
