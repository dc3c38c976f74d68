package artifactory_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tman/internal/artifactory"
	"github.com/temirov/tman/internal/artifactory/artifactorytest"
)

func TestNewClientValidatesConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configuration artifactory.ClientConfiguration
		expectedField string
	}{
		{
			name:          "missing_base_url",
			configuration: artifactory.ClientConfiguration{Token: "token"},
			expectedField: "registry.base_url",
		},
		{
			name:          "relative_base_url",
			configuration: artifactory.ClientConfiguration{BaseURL: "artifactory/api", Token: "token"},
			expectedField: "registry.base_url",
		},
		{
			name:          "missing_token",
			configuration: artifactory.ClientConfiguration{BaseURL: "https://registry.example.com/artifactory/api/", Token: "  "},
			expectedField: "registry.token",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			client, clientError := artifactory.NewClient(zap.NewNop(), nil, testCase.configuration)
			require.Nil(testInstance, client)

			var configurationError *artifactory.ConfigurationError
			require.ErrorAs(testInstance, clientError, &configurationError)
			require.Equal(testInstance, testCase.expectedField, configurationError.Field)
		})
	}
}

func TestClientSendsAuthenticationHeader(testInstance *testing.T) {
	server := artifactorytest.NewServer(testInstance)
	server.SeedGroup("team")

	groupService := artifactory.NewGroupService(newTestClient(testInstance, server))
	groupExists, existsError := groupService.Exists(context.Background(), "team")
	require.NoError(testInstance, existsError)
	require.True(testInstance, groupExists)

	recordedRequests := server.Requests()
	require.Len(testInstance, recordedRequests, 1)
	require.Equal(testInstance, http.MethodGet, recordedRequests[0].Method)
	require.Equal(testInstance, "/security/groups/team", recordedRequests[0].Path)
	require.Equal(testInstance, artifactorytest.Token, recordedRequests[0].Header.Get(artifactorytest.AuthHeaderName))
}

func TestClientReportsRejectedCredentialsAsMissingResource(testInstance *testing.T) {
	server := artifactorytest.NewServer(testInstance)
	server.SeedRepository("team")

	client, clientError := artifactory.NewClient(zap.NewNop(), server.HTTPClient(), artifactory.ClientConfiguration{
		BaseURL: server.BaseURL(),
		Token:   "wrong-token",
	})
	require.NoError(testInstance, clientError)

	repositoryExists, existsError := artifactory.NewRepositoryService(client).Exists(context.Background(), "team")
	require.NoError(testInstance, existsError)
	require.False(testInstance, repositoryExists)
}
