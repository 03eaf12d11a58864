// Package compiler ties the lexer, parser, validator and AST cache into a
// single compile pipeline: source in, panel plus diagnostics out.
package compiler

import (
	"context"
	"os"
	"time"

	"github.com/conneroisu/nxml/internal/astcache"
	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/logging"
	"github.com/conneroisu/nxml/internal/parser"
	"github.com/conneroisu/nxml/internal/types"
	"github.com/conneroisu/nxml/internal/validator"
)

// Result is the outcome of compiling one NXML document.
type Result struct {
	// Panel is the parsed definition, present even when invalid
	Panel *types.Panel `json:"panel"`

	// SourceHash is the content-addressed key of the source bytes
	SourceHash string `json:"source_hash"`

	// Valid is true exactly when Errors is empty
	Valid bool `json:"valid"`

	Errors   []types.Diagnostic `json:"errors"`
	Warnings []types.Diagnostic `json:"warnings"`

	// CacheHit reports whether tokenizing and parsing were skipped
	CacheHit bool `json:"cache_hit"`
}

// Compiler memoizes parsed panels by content hash. Cached panels are shared;
// callers must treat them as immutable.
type Compiler struct {
	cache     *astcache.Cache
	validator *validator.Validator
	logger    logging.Logger
}

// Options configures a Compiler. Zero values select defaults.
type Options struct {
	// Cache memoizes parses; nil gets a default-sized private cache
	Cache *astcache.Cache

	Logger logging.Logger
}

// New returns a Compiler wired per opts.
func New(opts Options) *Compiler {
	cache := opts.Cache
	if cache == nil {
		cache = astcache.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Compiler{
		cache:     cache,
		validator: validator.New(),
		logger:    logger.WithComponent("compiler"),
	}
}

// Cache exposes the underlying AST cache for statistics and reset.
func (c *Compiler) Cache() *astcache.Cache {
	return c.cache
}

// Compile tokenizes, parses and validates source. Parsing is memoized by
// content hash; validation is pure over the AST, so a cache hit re-runs it
// to reproduce the exact diagnostics. Lex and parse failures return an
// error and no Result, since there is no tree to report on.
func (c *Compiler) Compile(ctx context.Context, source string) (*Result, error) {
	start := time.Now()
	key := astcache.Key(source)

	panel, hit := c.cache.Get(key)
	if !hit {
		var err error
		panel, err = parser.Parse(source)
		if err != nil {
			return nil, err
		}
		c.cache.Put(key, panel)
	}

	verdict := c.validator.Validate(panel)
	c.logger.Debug(ctx, "panel compiled",
		"panel_id", panel.Meta.ID,
		"valid", verdict.Valid,
		"errors", len(verdict.Errors),
		"warnings", len(verdict.Warnings),
		"cache_hit", hit,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		Panel:      panel,
		SourceHash: key,
		Valid:      verdict.Valid,
		Errors:     verdict.Errors,
		Warnings:   verdict.Warnings,
		CacheHit:   hit,
	}, nil
}

// CompileFile reads path and compiles its contents.
func (c *Compiler) CompileFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nxmlerrors.FileReadError(path, err)
	}
	return c.Compile(ctx, string(data))
}
