package artifactory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	resourceAlreadyExistsMessageConstant = "resource already exists"
	resourceCreatedMessageConstant       = "resource created"
	resourceMissingMessageConstant       = "resource does not exist"
	resourceRemovedMessageConstant       = "resource removed"
	resourceNameFieldTemplateConstant    = "%s name"
)

// resourceAccessor implements the existence, create, and remove contract shared by named registry entities.
type resourceAccessor struct {
	client         *Client
	kind           ResourceKind
	collectionPath string
	statusPolicy   StatusPolicy
}

func (accessor resourceAccessor) exists(executionContext context.Context, resourceName string) (bool, error) {
	response, fetchError := accessor.fetch(executionContext, resourceName)
	if fetchError != nil {
		return false, fetchError
	}
	return response.statusCode == accessor.statusPolicy.Exists, nil
}

func (accessor resourceAccessor) fetch(executionContext context.Context, resourceName string) (registryResponse, error) {
	if len(strings.TrimSpace(resourceName)) == 0 {
		return registryResponse{}, &ConfigurationError{
			Field: fmt.Sprintf(resourceNameFieldTemplateConstant, accessor.kind),
			Cause: errors.New(resourceNameMissingErrorMessageConstant),
		}
	}
	return accessor.client.execute(executionContext, registryRequest{
		method: http.MethodGet,
		path:   resourcePath(accessor.collectionPath, resourceName),
	})
}

func (accessor resourceAccessor) create(executionContext context.Context, resourceName string, payload any) (Outcome, error) {
	resourceExists, existsError := accessor.exists(executionContext, resourceName)
	if existsError != nil {
		return OutcomeFailed, existsError
	}
	if resourceExists {
		accessor.client.logger.Warn(
			resourceAlreadyExistsMessageConstant,
			zap.String(logFieldResourceKindConstant, string(accessor.kind)),
			zap.String(logFieldResourceNameConstant, resourceName),
		)
		return OutcomeAlreadyPresent, nil
	}

	response, executionError := accessor.client.executeJSON(executionContext, http.MethodPut, resourcePath(accessor.collectionPath, resourceName), payload)
	if executionError != nil {
		return OutcomeFailed, executionError
	}
	if response.statusCode != accessor.statusPolicy.Create {
		return OutcomeFailed, accessor.remoteError(OperationCreate, resourceName, response)
	}

	accessor.client.logger.Info(
		resourceCreatedMessageConstant,
		zap.String(logFieldResourceKindConstant, string(accessor.kind)),
		zap.String(logFieldResourceNameConstant, resourceName),
	)
	return OutcomeCreated, nil
}

func (accessor resourceAccessor) remove(executionContext context.Context, resourceName string) (Outcome, error) {
	resourceExists, existsError := accessor.exists(executionContext, resourceName)
	if existsError != nil {
		return OutcomeFailed, existsError
	}
	if !resourceExists {
		accessor.client.logger.Warn(
			resourceMissingMessageConstant,
			zap.String(logFieldResourceKindConstant, string(accessor.kind)),
			zap.String(logFieldResourceNameConstant, resourceName),
		)
		return OutcomeNotPresent, nil
	}

	response, executionError := accessor.client.execute(executionContext, registryRequest{
		method: http.MethodDelete,
		path:   resourcePath(accessor.collectionPath, resourceName),
	})
	if executionError != nil {
		return OutcomeFailed, executionError
	}
	if response.statusCode != accessor.statusPolicy.Remove {
		return OutcomeFailed, accessor.remoteError(OperationRemove, resourceName, response)
	}

	accessor.client.logger.Info(
		resourceRemovedMessageConstant,
		zap.String(logFieldResourceKindConstant, string(accessor.kind)),
		zap.String(logFieldResourceNameConstant, resourceName),
	)
	return OutcomeRemoved, nil
}

func (accessor resourceAccessor) remoteError(operation OperationName, resourceName string, response registryResponse) *RemoteError {
	return &RemoteError{
		Operation:    operation,
		ResourceKind: accessor.kind,
		ResourceName: resourceName,
		StatusCode:   response.statusCode,
		Body:         string(response.body),
	}
}
