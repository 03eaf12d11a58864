// Package types provides shared type definitions used across the nxml
// codebase to avoid circular dependencies between the compiler, the
// sandbox runtime, and the CLI.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Panel is the root of a compiled NXML document. A panel always has
// metadata, a data section, a logic section, and a view tree; the parser
// substitutes empty sections and a default view when the source omits them.
type Panel struct {
	// Meta holds the root element attributes
	Meta PanelMeta `json:"meta"`

	// Data declares reactive state and computed values
	Data *DataSection `json:"data"`

	// Logic declares tools and lifecycle hooks
	Logic *LogicSection `json:"logic"`

	// View is the root of the UI tree
	View *ViewNode `json:"view"`
}

// PanelMeta carries the attributes of the root NexusPanel element.
type PanelMeta struct {
	// ID uniquely identifies the panel within a workspace
	ID string `json:"id"`

	// Title is the human-readable panel name
	Title string `json:"title"`

	// Type categorizes the panel, defaulting to "custom"
	Type string `json:"type"`

	// Version is the panel version string, defaulting to "1.0.0"
	Version string `json:"version"`

	// Description is an optional free-form summary
	Description string `json:"description,omitempty"`

	// Author is the optional panel author
	Author string `json:"author,omitempty"`

	// Tags are optional comma-separated labels from the source
	Tags []string `json:"tags,omitempty"`

	// Icon is an optional icon identifier
	Icon string `json:"icon,omitempty"`
}

// DataSection groups the state and computed declarations of a panel.
type DataSection struct {
	States   []StateDecl    `json:"states"`
	Computed []ComputedDecl `json:"computed"`
}

// Primitive type names recognized in State, Computed and Arg declarations.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeList    = "list"
	TypeObject  = "object"
	TypeAny     = "any"
)

// IsPrimitiveType reports whether name is a recognized type name.
func IsPrimitiveType(name string) bool {
	switch name {
	case TypeString, TypeNumber, TypeBoolean, TypeArray, TypeList, TypeObject, TypeAny:
		return true
	}
	return false
}

// StateDecl declares one reactive state variable.
type StateDecl struct {
	// Name is the state variable name, unique within the panel
	Name string `json:"name"`

	// Type is the declared type name, defaulting to "any"
	Type string `json:"type"`

	// Default is the coerced default value
	Default any `json:"default"`

	// Description is an optional human-readable summary
	Description string `json:"description,omitempty"`

	// Validation holds optional validation metadata attributes
	Validation map[string]string `json:"validation,omitempty"`

	// Location points at the declaring element
	Location SourceLocation `json:"location"`
}

// ComputedDecl declares one derived value. The expression is stored raw
// and never evaluated by the compiler.
type ComputedDecl struct {
	// Name is the computed value name, unique within the panel
	Name string `json:"name"`

	// Expression is the raw source expression
	Expression string `json:"expression"`

	// Type is the optional declared result type
	Type string `json:"type,omitempty"`

	// Deps lists the state names the expression depends on
	Deps []string `json:"deps,omitempty"`

	// Description is an optional human-readable summary
	Description string `json:"description,omitempty"`

	// Location points at the declaring element
	Location SourceLocation `json:"location"`
}

// LogicSection groups the extension, tool and lifecycle declarations of
// a panel.
type LogicSection struct {
	Extensions []ExtensionDecl `json:"extensions"`
	Tools      []ToolDecl      `json:"tools"`
	Lifecycle  []LifecycleDecl `json:"lifecycle"`
}

// ExtensionDecl declares an external capability provider the panel uses.
type ExtensionDecl struct {
	// Name is the extension name (http, fs, ...)
	Name string `json:"name"`

	// Config holds the remaining declaration attributes verbatim
	Config map[string]string `json:"config,omitempty"`

	// Location points at the declaring element
	Location SourceLocation `json:"location"`
}

// ToolDecl declares one callable tool with its arguments and handler.
type ToolDecl struct {
	// Name is the tool name, unique within the panel
	Name string `json:"name"`

	// Description is an optional human-readable summary
	Description string `json:"description,omitempty"`

	// Args declares the tool arguments in source order
	Args []ArgDecl `json:"args"`

	// Handler is the tool body; never nil after a successful parse
	Handler *Handler `json:"handler"`

	// Icon is an optional icon identifier
	Icon string `json:"icon,omitempty"`

	// Location points at the declaring element
	Location SourceLocation `json:"location"`
}

// ArgDecl declares one tool argument.
type ArgDecl struct {
	// Name is the argument name
	Name string `json:"name"`

	// Type is the declared type name, defaulting to "any"
	Type string `json:"type"`

	// Required marks the argument as mandatory; defaults to true
	Required bool `json:"required"`

	// Default is the coerced default value, if any
	Default any `json:"default,omitempty"`

	// Description is an optional human-readable summary
	Description string `json:"description,omitempty"`

	// Location points at the declaring element
	Location SourceLocation `json:"location"`
}

// LifecycleDecl binds a handler to a panel lifecycle event.
type LifecycleDecl struct {
	// Event is the lifecycle event name (mount, unmount, update, ...)
	Event string `json:"event"`

	// Handler is the hook body; never nil after a successful parse
	Handler *Handler `json:"handler"`

	// Location points at the declaring element
	Location SourceLocation `json:"location"`
}

// Handler is an executable code block with its sandbox requirements.
type Handler struct {
	// Code is the verbatim handler source
	Code string `json:"code"`

	// Capabilities lists the granted capability tokens, deduplicated
	// and in declaration order
	Capabilities []string `json:"capabilities"`

	// TimeoutMS is the wall-clock budget in milliseconds, always > 0
	// after validation
	TimeoutMS int `json:"timeout_ms"`

	// Location points at the Handler element
	Location SourceLocation `json:"location"`
}

// ViewNode is one element of the UI tree. A node owns its children; the
// tree contains no parent references.
type ViewNode struct {
	// Type is the element name (Container, Text, Button, ...)
	Type string `json:"type"`

	// Props holds plain attributes in source order
	Props PropList `json:"props"`

	// Bindings maps prop names to raw {$...} expressions
	Bindings map[string]string `json:"bindings,omitempty"`

	// Events maps event names (onClick, ...) to handler references
	Events map[string]string `json:"events,omitempty"`

	// Children are the child nodes in source order
	Children []*ViewNode `json:"children"`

	// Location points at the opening tag
	Location SourceLocation `json:"location"`
}

// Prop is a single name/value attribute pair.
type Prop struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PropList stores view attributes preserving source order while allowing
// name lookup.
type PropList []Prop

// Get returns the value for name and whether it was present.
func (p PropList) Get(name string) (string, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return "", false
}

// Set replaces the value for name, appending when absent.
func (p *PropList) Set(name, value string) {
	for i, prop := range *p {
		if prop.Name == name {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Prop{Name: name, Value: value})
}

// MarshalJSON renders the list as a JSON object in source order.
func (p PropList) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON restores the list from a JSON object. Key order follows
// the encoded object.
func (p *PropList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("props: expected object, got %v", tok)
	}
	out := PropList{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("props: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, Prop{Name: key, Value: value})
	}
	*p = out
	return nil
}

// StateNames returns the declared state variable names in source order.
func (p *Panel) StateNames() []string {
	if p.Data == nil {
		return nil
	}
	names := make([]string, 0, len(p.Data.States))
	for _, s := range p.Data.States {
		names = append(names, s.Name)
	}
	return names
}

// ComputedNames returns the declared computed value names in source order.
func (p *Panel) ComputedNames() []string {
	if p.Data == nil {
		return nil
	}
	names := make([]string, 0, len(p.Data.Computed))
	for _, c := range p.Data.Computed {
		names = append(names, c.Name)
	}
	return names
}

// ToolNames returns the declared tool names in source order.
func (p *Panel) ToolNames() []string {
	if p.Logic == nil {
		return nil
	}
	names := make([]string, 0, len(p.Logic.Tools))
	for _, t := range p.Logic.Tools {
		names = append(names, t.Name)
	}
	return names
}

// LifecycleEvents returns the bound lifecycle event names in source order.
func (p *Panel) LifecycleEvents() []string {
	if p.Logic == nil {
		return nil
	}
	events := make([]string, 0, len(p.Logic.Lifecycle))
	for _, l := range p.Logic.Lifecycle {
		events = append(events, l.Event)
	}
	return events
}

// RequiredCapabilities returns the union of all handler capability lists,
// deduplicated and sorted.
func (p *Panel) RequiredCapabilities() []string {
	if p.Logic == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, t := range p.Logic.Tools {
		if t.Handler == nil {
			continue
		}
		for _, c := range t.Handler.Capabilities {
			seen[c] = struct{}{}
		}
	}
	for _, l := range p.Logic.Lifecycle {
		if l.Handler == nil {
			continue
		}
		for _, c := range l.Handler.Capabilities {
			seen[c] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	caps := make([]string, 0, len(seen))
	for c := range seen {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	return caps
}

// FindTool returns the tool declaration with the given name, or nil.
func (p *Panel) FindTool(name string) *ToolDecl {
	if p.Logic == nil {
		return nil
	}
	for i := range p.Logic.Tools {
		if p.Logic.Tools[i].Name == name {
			return &p.Logic.Tools[i]
		}
	}
	return nil
}

// FindLifecycle returns the lifecycle declaration for the given event,
// or nil.
func (p *Panel) FindLifecycle(event string) *LifecycleDecl {
	if p.Logic == nil {
		return nil
	}
	for i := range p.Logic.Lifecycle {
		if p.Logic.Lifecycle[i].Event == event {
			return &p.Logic.Lifecycle[i]
		}
	}
	return nil
}
