// Package services defines shared utilities consumed by the pipeline stages
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, dataset keys, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run statuses (failed vs config_error vs cancelled).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
