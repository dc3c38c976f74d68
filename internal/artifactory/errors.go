package artifactory

import (
	"errors"
	"fmt"
	"strings"
)

const (
	configurationErrorTemplateConstant        = "invalid %s: %v"
	configurationErrorNoCauseTemplateConstant = "invalid %s"
	remoteErrorTemplateConstant               = "%s %s %q failed with status %d"
	remoteErrorWithBodyTemplateConstant       = "%s %s %q failed with status %d: %s"
	resourceNotFoundMessageConstant           = "resource not found"
)

// ErrResourceNotFound indicates an operation required an existing resource that the registry does not report.
var ErrResourceNotFound = errors.New(resourceNotFoundMessageConstant)

// ConfigurationError reports locally detected invalid input. No request reaches the registry when it is returned.
type ConfigurationError struct {
	Field string
	Cause error
}

// Error describes the configuration problem.
func (configurationError *ConfigurationError) Error() string {
	if configurationError.Cause == nil {
		return fmt.Sprintf(configurationErrorNoCauseTemplateConstant, configurationError.Field)
	}
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Field, configurationError.Cause)
}

// Unwrap exposes the underlying cause.
func (configurationError *ConfigurationError) Unwrap() error {
	return configurationError.Cause
}

// RemoteError captures a registry response whose status did not match the expected success status.
type RemoteError struct {
	Operation    OperationName
	ResourceKind ResourceKind
	ResourceName string
	StatusCode   int
	Body         string
}

// Error describes the failed remote call including the response body.
func (remoteError *RemoteError) Error() string {
	trimmedBody := strings.TrimSpace(remoteError.Body)
	if len(trimmedBody) == 0 {
		return fmt.Sprintf(remoteErrorTemplateConstant, remoteError.Operation, remoteError.ResourceKind, remoteError.ResourceName, remoteError.StatusCode)
	}
	return fmt.Sprintf(remoteErrorWithBodyTemplateConstant, remoteError.Operation, remoteError.ResourceKind, remoteError.ResourceName, remoteError.StatusCode, trimmedBody)
}
