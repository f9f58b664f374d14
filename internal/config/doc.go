// Package config loads, normalizes, and validates the TOML configuration
// for the sorter daemon and CLI.
package config
