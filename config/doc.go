// Package config loads service configuration from defaults, an optional
// YAML file, and RAGSERVE_* environment variables, in that order.
package config
