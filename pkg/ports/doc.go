// Package ports declares the narrow interfaces the application layer uses to
// reach its adapters: result cache, event bus, metrics and effect substrates.
package ports
