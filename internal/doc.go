// Package internal holds helpers shared across the engine that must not
// become part of the public API surface: random identifier generation and
// nothing else. It imports no sibling packages.
package internal
