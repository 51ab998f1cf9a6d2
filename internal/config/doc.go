// Package config loads, normalizes, and validates vidlore configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and OPENAI_API_KEY. The Config type centralizes the knobs
// the pipeline and CLI need so work/output directories, provider endpoints,
// and render layout are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
