// Package internal contains the core implementation packages for nxml.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the nxml CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - lexer: Context-sensitive tokenizer that captures handler code blocks raw
//   - parser: Recursive-descent parser producing the panel AST
//   - validator: Semantic validation with errors, warnings and hints
//   - astcache: Content-addressed LRU cache of parsed panels
//   - compiler: Pipeline facade tying lexing, parsing, caching and validation
//   - capability: Grant parsing and the advisory static capability checker
//   - script: Tree-walking interpreter for handler code with fuel accounting
//   - sandbox: Executors with limits, failure classing and the instance pool
//   - runtime: Request orchestration, state snapshots, scopes and metrics
//   - registry: Active panel registry with state and event broadcasting
//   - config: Configuration management with validation and security
//   - watcher: File system monitoring with debouncing
//   - types: Panel AST, diagnostics and execution result types
//   - errors: Coded error types shared across the pipeline
//   - logging: Structured logging over slog
//   - version: Build version information
//
// # Inter-Package Communication
//
// Packages communicate through well-defined boundaries:
//
//   - Compiler turns source text into validated panels and reports
//   - Runtime resolves handlers, borrows sandbox instances and applies
//     resulting state changes to the registry
//   - Sandbox executes handler programs against a host interface without
//     ever touching registry state directly
//   - Watcher monitors panel trees and feeds recompilation
//
// # Security Considerations
//
// Handler code is untrusted. The sandbox enforces wall-clock timeouts,
// allocation budgets and host-call caps; the capability layer scopes
// which state keys and host facilities a handler may touch. The config
// package validates paths against traversal and shell metacharacters.
//
// For detailed documentation, see the individual package documentation.
package internal
