package artifactory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	repositoryTypePyPIStringConstant        = "pypi"
	repositoryTypeDockerStringConstant      = "docker"
	repositoryTypeGenericStringConstant     = "generic"
	repositoryTypeRPMStringConstant         = "rpm"
	repositoryTypeNPMStringConstant         = "npm"
	repositoryTypeNuGetStringConstant       = "nuget"
	repositoryTypeMavenStringConstant       = "maven"
	simpleDefaultLayoutConstant             = "simple-default"
	npmDefaultLayoutConstant                = "npm-default"
	nugetDefaultLayoutConstant              = "nuget-default"
	mavenDefaultLayoutConstant              = "maven-2-default"
	repositoryTypeFieldConstant             = "repo_type"
	repositoryTypeEmptyErrorMessageConstant = "repository type must be provided"
	repositoryTypeInvalidTemplateConstant   = "repository type %q is not supported (supported: %s)"
	repositoryTypeListSeparatorConstant     = ", "
)

// RepositoryType enumerates the package types a local repository may be created with.
type RepositoryType string

// Supported repository types.
const (
	RepositoryTypePyPI    RepositoryType = RepositoryType(repositoryTypePyPIStringConstant)
	RepositoryTypeDocker  RepositoryType = RepositoryType(repositoryTypeDockerStringConstant)
	RepositoryTypeGeneric RepositoryType = RepositoryType(repositoryTypeGenericStringConstant)
	RepositoryTypeRPM     RepositoryType = RepositoryType(repositoryTypeRPMStringConstant)
	RepositoryTypeNPM     RepositoryType = RepositoryType(repositoryTypeNPMStringConstant)
	RepositoryTypeNuGet   RepositoryType = RepositoryType(repositoryTypeNuGetStringConstant)
	RepositoryTypeMaven   RepositoryType = RepositoryType(repositoryTypeMavenStringConstant)
)

var repositoryLayoutByType = map[RepositoryType]string{
	RepositoryTypePyPI:    simpleDefaultLayoutConstant,
	RepositoryTypeDocker:  simpleDefaultLayoutConstant,
	RepositoryTypeGeneric: simpleDefaultLayoutConstant,
	RepositoryTypeRPM:     simpleDefaultLayoutConstant,
	RepositoryTypeNPM:     npmDefaultLayoutConstant,
	RepositoryTypeNuGet:   nugetDefaultLayoutConstant,
	RepositoryTypeMaven:   mavenDefaultLayoutConstant,
}

// ParseRepositoryType normalizes textual repository type values.
func ParseRepositoryType(repositoryTypeValue string) (RepositoryType, error) {
	trimmedValue := strings.TrimSpace(repositoryTypeValue)
	if len(trimmedValue) == 0 {
		return "", &ConfigurationError{Field: repositoryTypeFieldConstant, Cause: errors.New(repositoryTypeEmptyErrorMessageConstant)}
	}

	candidateType := RepositoryType(strings.ToLower(trimmedValue))
	if !candidateType.Supported() {
		return "", &ConfigurationError{
			Field: repositoryTypeFieldConstant,
			Cause: fmt.Errorf(repositoryTypeInvalidTemplateConstant, repositoryTypeValue, strings.Join(SupportedRepositoryTypes(), repositoryTypeListSeparatorConstant)),
		}
	}

	return candidateType, nil
}

// Supported reports whether the repository type belongs to the enumeration.
func (repositoryType RepositoryType) Supported() bool {
	_, supported := repositoryLayoutByType[repositoryType]
	return supported
}

// LayoutReference resolves the repository layout identifier for the type.
func (repositoryType RepositoryType) LayoutReference() (string, bool) {
	layoutReference, supported := repositoryLayoutByType[repositoryType]
	return layoutReference, supported
}

// SupportedRepositoryTypes lists the supported repository types in lexical order.
func SupportedRepositoryTypes() []string {
	supportedTypes := make([]string, 0, len(repositoryLayoutByType))
	for repositoryType := range repositoryLayoutByType {
		supportedTypes = append(supportedTypes, string(repositoryType))
	}
	sort.Strings(supportedTypes)
	return supportedTypes
}
