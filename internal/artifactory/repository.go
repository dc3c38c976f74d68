package artifactory

import (
	"context"
	"errors"
	"strings"
)

const (
	localRepositoryClassConstant            = "local"
	defaultPropertySetConstant              = "artifactory"
	repositoryNameFieldConstant             = "repository name"
	resourceNameMissingErrorMessageConstant = "name must be provided"
)

// RepositoryDefinition describes a repository to create.
type RepositoryDefinition struct {
	Name        string
	Class       string
	Type        RepositoryType
	Description string
	Notes       string
}

type repositoryPayload struct {
	Key                       string   `json:"key"`
	RepositoryClass           string   `json:"rclass"`
	PackageType               string   `json:"packageType"`
	Description               string   `json:"description"`
	Notes                     string   `json:"notes"`
	PropertySets              []string `json:"propertySets"`
	RepositoryLayoutReference string   `json:"repoLayoutRef"`
}

// RepositoryService manages repositories through the repositories endpoint.
type RepositoryService struct {
	accessor resourceAccessor
}

// NewRepositoryService constructs a RepositoryService bound to the client.
func NewRepositoryService(client *Client) *RepositoryService {
	return &RepositoryService{accessor: resourceAccessor{
		client:         client,
		kind:           ResourceKindRepository,
		collectionPath: repositoriesPathSegmentConstant,
		statusPolicy:   RepositoryStatusPolicy,
	}}
}

// Exists reports whether the repository is present.
func (service *RepositoryService) Exists(executionContext context.Context, repositoryName string) (bool, error) {
	return service.accessor.exists(executionContext, repositoryName)
}

// Create validates the definition and creates the repository unless it already exists.
func (service *RepositoryService) Create(executionContext context.Context, definition RepositoryDefinition) (Outcome, error) {
	repositoryName := strings.TrimSpace(definition.Name)
	if len(repositoryName) == 0 {
		return OutcomeFailed, &ConfigurationError{Field: repositoryNameFieldConstant, Cause: errors.New(resourceNameMissingErrorMessageConstant)}
	}

	repositoryType, parseError := ParseRepositoryType(string(definition.Type))
	if parseError != nil {
		return OutcomeFailed, parseError
	}
	layoutReference, _ := repositoryType.LayoutReference()

	repositoryClass := strings.TrimSpace(definition.Class)
	if len(repositoryClass) == 0 {
		repositoryClass = localRepositoryClassConstant
	}

	payload := repositoryPayload{
		Key:                       repositoryName,
		RepositoryClass:           repositoryClass,
		PackageType:               string(repositoryType),
		Description:               definition.Description,
		Notes:                     definition.Notes,
		PropertySets:              []string{defaultPropertySetConstant},
		RepositoryLayoutReference: layoutReference,
	}

	return service.accessor.create(executionContext, repositoryName, payload)
}

// Remove deletes the repository when present.
func (service *RepositoryService) Remove(executionContext context.Context, repositoryName string) (Outcome, error) {
	return service.accessor.remove(executionContext, repositoryName)
}
