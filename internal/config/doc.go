// Package config loads, normalizes, and validates docflow's TOML
// configuration.
//
// Load resolves the config path (explicit flag, then the user config dir,
// then a project-local docflow.toml), applies defaults for missing values,
// expands ~ in paths, and rejects unusable settings up front so the daemon
// fails fast instead of at first use.
package config
