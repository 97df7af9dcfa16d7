// Package config loads, normalizes, and validates Loom's TOML configuration.
package config
