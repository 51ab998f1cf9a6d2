// Package capturestore persists the URL capture cache in SQLite.
//
// Each row maps a captured URL onto an image blob stored on disk under the
// capture directory, so repeated selections of the same source across
// sessions skip the screenshot service. Rows whose blob disappeared are
// treated as misses and removed on lookup.
//
// The database is a cache, not an archive. Schema changes bump schemaVersion
// in schema.go; users delete captures.db to adopt the new schema.
package capturestore
