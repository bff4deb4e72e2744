// Package config loads, normalizes, and validates dotsocr configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// DOTSOCR_* environment overrides for the storage and results roots. The
// Config type centralizes every knob the server and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
