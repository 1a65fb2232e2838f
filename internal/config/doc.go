// Package config loads, normalizes, and validates the TOML configuration
// shared by every pipeline stage. There is no ambient global configuration;
// callers load a Config once and pass it explicitly.
package config
