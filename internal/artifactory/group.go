package artifactory

import (
	"context"
	"errors"
	"strings"
)

const (
	defaultGroupRealmConstant = "ARTIFACTORY"
	groupNameFieldConstant    = "group name"
)

type groupPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Realm       string `json:"realm"`
}

// GroupService manages security groups.
type GroupService struct {
	accessor resourceAccessor
}

// NewGroupService constructs a GroupService bound to the client.
func NewGroupService(client *Client) *GroupService {
	return &GroupService{accessor: resourceAccessor{
		client:         client,
		kind:           ResourceKindGroup,
		collectionPath: securityGroupsPathSegmentConstant,
		statusPolicy:   GroupStatusPolicy,
	}}
}

// Exists reports whether the group is present.
func (service *GroupService) Exists(executionContext context.Context, groupName string) (bool, error) {
	return service.accessor.exists(executionContext, groupName)
}

// Create creates an internal group unless it already exists.
func (service *GroupService) Create(executionContext context.Context, groupName string) (Outcome, error) {
	trimmedGroupName := strings.TrimSpace(groupName)
	if len(trimmedGroupName) == 0 {
		return OutcomeFailed, &ConfigurationError{Field: groupNameFieldConstant, Cause: errors.New(resourceNameMissingErrorMessageConstant)}
	}

	payload := groupPayload{Name: trimmedGroupName, Realm: defaultGroupRealmConstant}
	return service.accessor.create(executionContext, trimmedGroupName, payload)
}

// Remove deletes the group when present.
func (service *GroupService) Remove(executionContext context.Context, groupName string) (Outcome, error) {
	return service.accessor.remove(executionContext, groupName)
}
