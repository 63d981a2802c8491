// Package config loads folio settings.
//
// Settings are assembled in layers, each overriding the one before:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file
//  3. FOLIO_* environment variables
//
// Environment names map onto paths by section and camel-cased setting:
// FOLIO_UPLOAD_MAX_CONCURRENT sets upload.maxConcurrent.
//
// Watch reloads the file when it changes on disk.
package config
