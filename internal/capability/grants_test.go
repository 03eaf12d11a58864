package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseToken(t *testing.T) {
	testCases := []struct {
		raw  string
		want Token
	}{
		{"state:read", Token{Kind: "state:read"}},
		{"state:read:*", Token{Kind: "state:read"}},
		{"state:read:count", Token{Kind: "state:read", Scope: "count"}},
		{"state:write:user.name", Token{Kind: "state:write", Scope: "user.name"}},
		{"events:emit", Token{Kind: "events:emit"}},
		{"events:emit:refresh", Token{Kind: "events:emit", Scope: "refresh"}},
		{"ext:http", Token{Kind: "ext", Scope: "http"}},
		{"ext:*", Token{Kind: "ext"}},
		{"exec", Token{Kind: "exec"}},
		{"fs:write", Token{Kind: "fs:write"}},
		{" state:read ", Token{Kind: "state:read"}},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseToken(tc.raw))
		})
	}
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "state:read", Token{Kind: "state:read"}.String())
	assert.Equal(t, "state:read:count", Token{Kind: "state:read", Scope: "count"}.String())
}

func TestGrantsWildcard(t *testing.T) {
	g := NewGrants([]string{"state:read"})

	assert.True(t, g.Allows(KindStateRead, "count"))
	assert.True(t, g.Allows(KindStateRead, "anything"))
	assert.False(t, g.Allows(KindStateWrite, "count"))
}

func TestGrantsScoped(t *testing.T) {
	g := NewGrants([]string{"state:write:count", "events:emit:refresh"})

	assert.True(t, g.Allows(KindStateWrite, "count"))
	assert.False(t, g.Allows(KindStateWrite, "other"))
	assert.True(t, g.Allows(KindEventsEmit, "refresh"))
	assert.False(t, g.Allows(KindEventsEmit, "delete"))
}

func TestGrantsStarEqualsBare(t *testing.T) {
	bare := NewGrants([]string{"state:read"})
	star := NewGrants([]string{"state:read:*"})

	for _, scope := range []string{"a", "b", ""} {
		assert.Equal(t, bare.Allows(KindStateRead, scope), star.Allows(KindStateRead, scope))
	}
}

func TestGrantsExtension(t *testing.T) {
	g := NewGrants([]string{"ext:http"})

	assert.True(t, g.Allows(KindExtension, "http"))
	assert.False(t, g.Allows(KindExtension, "fs"))
	assert.True(t, NewGrants([]string{"ext:*"}).Allows(KindExtension, "fs"))
}

func TestGrantsAllowsAny(t *testing.T) {
	g := NewGrants([]string{"state:read:count"})

	assert.True(t, g.AllowsAny(KindStateRead))
	assert.False(t, g.AllowsAny(KindStateWrite))
	assert.True(t, NewGrants([]string{"state:write"}).AllowsAny(KindStateWrite))
}

func TestGrantsList(t *testing.T) {
	g := NewGrants([]string{"state:write:b", "state:write:a", "exec", ""})

	assert.Equal(t, []string{"exec", "state:write:a", "state:write:b"}, g.List())
}

func TestGrantsEmpty(t *testing.T) {
	g := NewGrants(nil)

	assert.False(t, g.Allows(KindStateRead, "x"))
	assert.False(t, g.AllowsAny(KindStateRead))
	assert.Empty(t, g.List())
}
