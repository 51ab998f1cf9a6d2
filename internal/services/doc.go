// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, segment indices,
//     and correlation identifiers for logging.
//   - Sentinel error markers, the Wrap helper, and StageError, which together
//     let callers classify failures without parsing messages.
//
// The subpackages hold thin adapters over external tools and HTTP services.
package services
