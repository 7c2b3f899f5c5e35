// Package config loads service configuration from YAML with environment
// overrides for secrets and the listener address.
package config
