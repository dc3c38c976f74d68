package artifactory

import (
	"context"
	"errors"
	"strings"
)

const (
	permissionNameFieldConstant         = "permission name"
	permissionActionsFieldConstant      = "permission actions"
	permissionActionsEmptyErrorConstant = "at least one action must be granted"
)

// PermissionAction is a permission bit granted to a principal.
type PermissionAction string

// Permission bits understood by the registry.
const (
	PermissionActionRead     PermissionAction = PermissionAction("r")
	PermissionActionDelete   PermissionAction = PermissionAction("d")
	PermissionActionWrite    PermissionAction = PermissionAction("w")
	PermissionActionAnnotate PermissionAction = PermissionAction("n")
	PermissionActionManage   PermissionAction = PermissionAction("m")
)

// DefaultPermissionActions returns the grant given to a repository group: read, delete, write, annotate.
func DefaultPermissionActions() []PermissionAction {
	return []PermissionAction{
		PermissionActionRead,
		PermissionActionDelete,
		PermissionActionWrite,
		PermissionActionAnnotate,
	}
}

type permissionPayload struct {
	Name         string               `json:"name"`
	Repositories []string             `json:"repositories"`
	Principals   permissionPrincipals `json:"principals"`
}

type permissionPrincipals struct {
	Groups map[string][]PermissionAction `json:"groups"`
}

// PermissionService manages permission targets binding groups to repositories.
type PermissionService struct {
	accessor resourceAccessor
	actions  []PermissionAction
}

// NewPermissionService constructs a PermissionService granting the provided actions.
// An empty action list selects DefaultPermissionActions.
func NewPermissionService(client *Client, actions []PermissionAction) *PermissionService {
	grantedActions := make([]PermissionAction, 0, len(actions))
	for _, action := range actions {
		trimmedAction := PermissionAction(strings.TrimSpace(string(action)))
		if len(trimmedAction) == 0 {
			continue
		}
		grantedActions = append(grantedActions, trimmedAction)
	}
	if len(grantedActions) == 0 {
		grantedActions = DefaultPermissionActions()
	}

	return &PermissionService{
		accessor: resourceAccessor{
			client:         client,
			kind:           ResourceKindPermission,
			collectionPath: securityPermissionsPathSegmentConstant,
			statusPolicy:   PermissionStatusPolicy,
		},
		actions: grantedActions,
	}
}

// Actions returns the permission bits granted by the service.
func (service *PermissionService) Actions() []PermissionAction {
	return append([]PermissionAction{}, service.actions...)
}

// Exists reports whether the permission target is present.
func (service *PermissionService) Exists(executionContext context.Context, permissionName string) (bool, error) {
	return service.accessor.exists(executionContext, permissionName)
}

// Create binds the permission target, named after its group, to the repository.
func (service *PermissionService) Create(executionContext context.Context, permissionName string, repositoryName string) (Outcome, error) {
	trimmedPermissionName := strings.TrimSpace(permissionName)
	if len(trimmedPermissionName) == 0 {
		return OutcomeFailed, &ConfigurationError{Field: permissionNameFieldConstant, Cause: errors.New(resourceNameMissingErrorMessageConstant)}
	}
	trimmedRepositoryName := strings.TrimSpace(repositoryName)
	if len(trimmedRepositoryName) == 0 {
		return OutcomeFailed, &ConfigurationError{Field: repositoryNameFieldConstant, Cause: errors.New(resourceNameMissingErrorMessageConstant)}
	}
	if len(service.actions) == 0 {
		return OutcomeFailed, &ConfigurationError{Field: permissionActionsFieldConstant, Cause: errors.New(permissionActionsEmptyErrorConstant)}
	}

	payload := permissionPayload{
		Name:         trimmedPermissionName,
		Repositories: []string{trimmedRepositoryName},
		Principals: permissionPrincipals{
			Groups: map[string][]PermissionAction{trimmedPermissionName: service.Actions()},
		},
	}

	return service.accessor.create(executionContext, trimmedPermissionName, payload)
}

// Remove deletes the permission target when present.
func (service *PermissionService) Remove(executionContext context.Context, permissionName string) (Outcome, error) {
	return service.accessor.remove(executionContext, permissionName)
}
