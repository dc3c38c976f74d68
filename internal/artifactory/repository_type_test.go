package artifactory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tman/internal/artifactory"
)

func TestParseRepositoryType(testInstance *testing.T) {
	testCases := []struct {
		name             string
		input            string
		expectedType     artifactory.RepositoryType
		expectedLayout   string
		expectConfigFail bool
	}{
		{name: "rpm", input: "rpm", expectedType: artifactory.RepositoryTypeRPM, expectedLayout: "simple-default"},
		{name: "mixed_case_and_spaces", input: "  PyPI ", expectedType: artifactory.RepositoryTypePyPI, expectedLayout: "simple-default"},
		{name: "npm", input: "npm", expectedType: artifactory.RepositoryTypeNPM, expectedLayout: "npm-default"},
		{name: "nuget", input: "nuget", expectedType: artifactory.RepositoryTypeNuGet, expectedLayout: "nuget-default"},
		{name: "maven", input: "maven", expectedType: artifactory.RepositoryTypeMaven, expectedLayout: "maven-2-default"},
		{name: "unsupported", input: "helm", expectConfigFail: true},
		{name: "empty", input: "", expectConfigFail: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parsedType, parseError := artifactory.ParseRepositoryType(testCase.input)
			if testCase.expectConfigFail {
				var configurationError *artifactory.ConfigurationError
				require.ErrorAs(testInstance, parseError, &configurationError)
				require.Equal(testInstance, "repo_type", configurationError.Field)
				return
			}

			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedType, parsedType)
			layoutReference, supported := parsedType.LayoutReference()
			require.True(testInstance, supported)
			require.Equal(testInstance, testCase.expectedLayout, layoutReference)
		})
	}
}

func TestSupportedRepositoryTypesAreSorted(testInstance *testing.T) {
	require.Equal(testInstance,
		[]string{"docker", "generic", "maven", "npm", "nuget", "pypi", "rpm"},
		artifactory.SupportedRepositoryTypes(),
	)
}
