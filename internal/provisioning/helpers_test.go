package provisioning_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tman/internal/artifactory"
	"github.com/temirov/tman/internal/artifactory/artifactorytest"
	"github.com/temirov/tman/internal/provisioning"
)

const testRunIdentifierConstant = "run-0001"

func newTestService(testInstance *testing.T, server *artifactorytest.Server, logger *zap.Logger, rollbackOnFailure bool) *provisioning.Service {
	testInstance.Helper()

	client, clientError := artifactory.NewClient(logger, server.HTTPClient(), artifactory.ClientConfiguration{
		BaseURL:        server.BaseURL(),
		Token:          artifactorytest.Token,
		AuthHeaderName: artifactorytest.AuthHeaderName,
	})
	require.NoError(testInstance, clientError)

	passwordGenerator, generatorError := artifactory.NewPasswordGenerator(artifactory.DefaultPasswordLength, artifactory.DefaultPasswordCharset)
	require.NoError(testInstance, generatorError)

	userService, userServiceError := artifactory.NewUserService(client, artifactory.UserServiceConfiguration{PasswordGenerator: passwordGenerator})
	require.NoError(testInstance, userServiceError)

	service, serviceError := provisioning.NewService(provisioning.Dependencies{
		Logger:         logger,
		Repositories:   artifactory.NewRepositoryService(client),
		Groups:         artifactory.NewGroupService(client),
		Permissions:    artifactory.NewPermissionService(client, nil),
		Users:          userService,
		RunIDGenerator: func() string { return testRunIdentifierConstant },
	}, provisioning.Options{RollbackOnFailure: rollbackOnFailure})
	require.NoError(testInstance, serviceError)

	return service
}
