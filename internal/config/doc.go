// Package config loads, normalizes and validates the AVSync TOML configuration
// and converts it into service options.
package config
