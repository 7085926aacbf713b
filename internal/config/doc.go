// Package config defines the application configuration structure and
// loading logic. Configuration is read from an optional config file and
// environment variables with the SYNTHCAM_ prefix; environment variables
// take precedence.
package config
