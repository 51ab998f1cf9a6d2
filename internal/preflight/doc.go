// Package preflight provides readiness checks for the external services and
// filesystem paths vidlore depends on.
//
// The CLI "vidlore deps" command renders every check as a table. The pipeline
// runs DirectoryChecks and CheckSystemDeps before extraction so a missing
// binary or unwritable directory fails fast instead of after transcription.
//
// Network checks are gated by config: a disabled provider is skipped.
package preflight
