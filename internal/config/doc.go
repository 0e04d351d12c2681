// Package config loads pipeline settings from defaults, an optional TOML
// file, and environment variable overrides.
package config
