// Package capability implements the two halves of handler permission
// enforcement: an advisory static checker that pattern-matches handler
// code against a capability table, and the Grants set consulted at the
// host-function boundary during execution. The static checker can both
// over- and under-approximate; only the host boundary is authoritative.
package capability

import (
	"sort"
	"strings"
)

// Capability kinds consulted at the host boundary.
const (
	KindStateRead  = "state:read"
	KindStateWrite = "state:write"
	KindEventsEmit = "events:emit"
	KindExtension  = "ext"
)

// scopedKinds accept an optional :scope suffix narrowing the grant to
// one state key or event type.
var scopedKinds = []string{KindStateRead, KindStateWrite, KindEventsEmit}

// Token is one parsed capability grant. An empty Scope grants every
// scope of the Kind; a bare kind and an explicit "*" are equivalent.
type Token struct {
	Kind  string
	Scope string
}

// String renders the token in canonical form.
func (t Token) String() string {
	if t.Scope == "" {
		return t.Kind
	}
	return t.Kind + ":" + t.Scope
}

// ParseToken splits a raw capability string into kind and scope.
func ParseToken(raw string) Token {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, KindExtension+":"); ok {
		if rest == "*" {
			rest = ""
		}
		return Token{Kind: KindExtension, Scope: rest}
	}
	for _, kind := range scopedKinds {
		if raw == kind {
			return Token{Kind: kind}
		}
		if rest, ok := strings.CutPrefix(raw, kind+":"); ok {
			if rest == "*" {
				rest = ""
			}
			return Token{Kind: kind, Scope: rest}
		}
	}
	return Token{Kind: raw}
}

// Grants indexes a handler's declared capabilities for fast lookup at
// the host boundary.
type Grants struct {
	wildcard map[string]struct{}
	scoped   map[string]map[string]struct{}
}

// NewGrants parses raw capability strings into a grant set. Empty
// strings are dropped.
func NewGrants(raw []string) *Grants {
	g := &Grants{
		wildcard: make(map[string]struct{}),
		scoped:   make(map[string]map[string]struct{}),
	}
	for _, item := range raw {
		tok := ParseToken(item)
		if tok.Kind == "" {
			continue
		}
		if tok.Scope == "" {
			g.wildcard[tok.Kind] = struct{}{}
			continue
		}
		set := g.scoped[tok.Kind]
		if set == nil {
			set = make(map[string]struct{})
			g.scoped[tok.Kind] = set
		}
		set[tok.Scope] = struct{}{}
	}
	return g
}

// Allows reports whether kind is granted for the given scope.
func (g *Grants) Allows(kind, scope string) bool {
	if _, ok := g.wildcard[kind]; ok {
		return true
	}
	set, ok := g.scoped[kind]
	if !ok {
		return false
	}
	_, ok = set[scope]
	return ok
}

// AllowsAny reports whether any scope of kind is granted. The static
// checker uses this because patterns cannot recover the scope.
func (g *Grants) AllowsAny(kind string) bool {
	if _, ok := g.wildcard[kind]; ok {
		return true
	}
	return len(g.scoped[kind]) > 0
}

// List returns the granted capabilities in canonical sorted form.
func (g *Grants) List() []string {
	out := make([]string, 0, len(g.wildcard)+len(g.scoped))
	for kind := range g.wildcard {
		out = append(out, kind)
	}
	for kind, scopes := range g.scoped {
		for scope := range scopes {
			out = append(out, kind+":"+scope)
		}
	}
	sort.Strings(out)
	return out
}
