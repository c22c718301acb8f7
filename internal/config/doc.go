// Package config loads, validates, and normalizes the TOML configuration
// for the airlock daemon and CLI.
//
// Load resolves the config path (explicit flag, ~/.config/airlock, or a
// project-local airlock.toml), fills unset fields from Default, expands
// home-relative paths, and validates the result. A missing file is not an
// error; the defaults are usable for local operation.
package config
