// Package settings loads the declarative repository settings file used by the creation workflow.
package settings
