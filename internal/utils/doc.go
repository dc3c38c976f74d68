// Package utils exposes the configuration and logging helpers shared by the tman commands.
//
// ConfigurationLoader layers embedded defaults, an optional configuration file, and
// TMAN_ prefixed environment variables through Viper. LoggerFactory builds zap loggers
// in structured or console form.
package utils
