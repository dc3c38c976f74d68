package artifactory_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tman/internal/artifactory"
	"github.com/temirov/tman/internal/artifactory/artifactorytest"
)

func newTestClient(testInstance *testing.T, server *artifactorytest.Server) *artifactory.Client {
	testInstance.Helper()
	client, clientError := artifactory.NewClient(zap.NewNop(), server.HTTPClient(), artifactory.ClientConfiguration{
		BaseURL:        server.BaseURL(),
		Token:          artifactorytest.Token,
		AuthHeaderName: artifactorytest.AuthHeaderName,
	})
	require.NoError(testInstance, clientError)
	return client
}

func newTestUserService(testInstance *testing.T, server *artifactorytest.Server) *artifactory.UserService {
	testInstance.Helper()
	passwordGenerator, generatorError := artifactory.NewPasswordGenerator(artifactory.DefaultPasswordLength, artifactory.DefaultPasswordCharset)
	require.NoError(testInstance, generatorError)
	userService, serviceError := artifactory.NewUserService(newTestClient(testInstance, server), artifactory.UserServiceConfiguration{PasswordGenerator: passwordGenerator})
	require.NoError(testInstance, serviceError)
	return userService
}
