// Package executor runs single instructions.
//
// Each execution consults the result cache by instruction hash first; a hit
// is returned verbatim without dispatch. On a miss the instruction is
// dispatched by type to its handler, retried according to its retry policy,
// bounded by its timeout, and a successful result is cached for the
// configured TTL.
package executor
