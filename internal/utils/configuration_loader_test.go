package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tman/internal/utils"
)

const (
	testEnvironmentPrefixConstant     = "TESTTMAN"
	testConfigurationNameConstant     = "config"
	testConfigurationTypeConstant     = "yaml"
	testConfigFileNameConstant        = "config.yaml"
	testDefaultLogLevelConstant       = "info"
	testEmbeddedConfigurationConstant = `
common:
  log_level: debug
registry:
  base_url: https://embedded.example.com/artifactory/api/
permissions:
  actions: [r, d, w, n]
provisioning:
  rollback_on_failure: true
`
)

type configurationFixture struct {
	Common       configurationCommonFixture       `mapstructure:"common"`
	Registry     configurationRegistryFixture     `mapstructure:"registry"`
	Permissions  configurationPermissionsFixture  `mapstructure:"permissions"`
	Provisioning configurationProvisioningFixture `mapstructure:"provisioning"`
}

type configurationCommonFixture struct {
	LogLevel string `mapstructure:"log_level"`
}

type configurationRegistryFixture struct {
	BaseURL string `mapstructure:"base_url"`
}

type configurationPermissionsFixture struct {
	Actions []string `mapstructure:"actions"`
}

type configurationProvisioningFixture struct {
	RollbackOnFailure bool `mapstructure:"rollback_on_failure"`
}

func TestConfigurationLoaderLoadConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		fileContent          string
		environment          map[string]string
		expectedLogLevel     string
		expectedBaseURL      string
		expectedActions      []string
		expectedRollback     bool
		expectConfigFileUsed bool
	}{
		{
			name:             "embedded_configuration_applies",
			expectedLogLevel: "debug",
			expectedBaseURL:  "https://embedded.example.com/artifactory/api/",
			expectedActions:  []string{"r", "d", "w", "n"},
			expectedRollback: true,
		},
		{
			name:                 "file_overrides_embedded",
			fileContent:          "registry:\n  base_url: https://file.example.com/api/\nprovisioning:\n  rollback_on_failure: false\n",
			expectedLogLevel:     "debug",
			expectedBaseURL:      "https://file.example.com/api/",
			expectedActions:      []string{"r", "d", "w", "n"},
			expectedRollback:     false,
			expectConfigFileUsed: true,
		},
		{
			name:        "environment_overrides_file",
			fileContent: "common:\n  log_level: warn\n",
			environment: map[string]string{
				"TESTTMAN_COMMON_LOG_LEVEL":                 "error",
				"TESTTMAN_PERMISSIONS_ACTIONS":              "r,w",
				"TESTTMAN_PROVISIONING_ROLLBACK_ON_FAILURE": "false",
			},
			expectedLogLevel:     "error",
			expectedBaseURL:      "https://embedded.example.com/artifactory/api/",
			expectedActions:      []string{"r", "w"},
			expectedRollback:     false,
			expectConfigFileUsed: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			tempDirectory := testInstance.TempDir()
			configurationFilePath := ""
			if len(testCase.fileContent) > 0 {
				configurationFilePath = filepath.Join(tempDirectory, testConfigFileNameConstant)
				require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(testCase.fileContent), 0o600))
			}
			for environmentName, environmentValue := range testCase.environment {
				testInstance.Setenv(environmentName, environmentValue)
			}

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{tempDirectory})
			configurationLoader.SetEmbeddedConfiguration([]byte(testEmbeddedConfigurationConstant), testConfigurationTypeConstant)

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, map[string]any{"common.log_level": testDefaultLogLevelConstant}, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedLogLevel, loadedConfiguration.Common.LogLevel)
			require.Equal(testInstance, testCase.expectedBaseURL, loadedConfiguration.Registry.BaseURL)
			require.Equal(testInstance, testCase.expectedActions, loadedConfiguration.Permissions.Actions)
			require.Equal(testInstance, testCase.expectedRollback, loadedConfiguration.Provisioning.RollbackOnFailure)
			if testCase.expectConfigFileUsed {
				require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
			} else {
				require.Empty(testInstance, metadata.ConfigFileUsed)
			}
		})
	}
}

func TestConfigurationLoaderSearchesHomeConfigurationDirectory(testInstance *testing.T) {
	homeDirectoryPath := testInstance.TempDir()
	testInstance.Setenv("HOME", homeDirectoryPath)

	configurationDirectoryPath := filepath.Join(homeDirectoryPath, ".config", "tman")
	require.NoError(testInstance, os.MkdirAll(configurationDirectoryPath, 0o755))
	configurationFilePath := filepath.Join(configurationDirectoryPath, testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("common:\n  log_level: warn\n"), 0o600))

	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir(), "~/.config/tman"})

	loadedConfiguration := configurationFixture{}
	metadata, loadError := configurationLoader.LoadConfiguration("", map[string]any{"common.log_level": testDefaultLogLevelConstant}, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", loadedConfiguration.Common.LogLevel)
	require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
}

func TestConfigurationLoaderRejectsMissingExplicitFile(testInstance *testing.T) {
	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

	loadedConfiguration := configurationFixture{}
	_, loadError := configurationLoader.LoadConfiguration(filepath.Join(testInstance.TempDir(), "absent.yaml"), nil, &loadedConfiguration)
	require.Error(testInstance, loadError)
}

func TestHomeExpanderExpandsTildePaths(testInstance *testing.T) {
	expander := utils.NewHomeExpanderWithProvider(func() (string, error) { return "/home/tester", nil })

	require.Equal(testInstance, "/home/tester", expander.Expand("~"))
	require.Equal(testInstance, filepath.Join("/home/tester", ".env"), expander.Expand("~/.env"))
	require.Equal(testInstance, "relative/.env", expander.Expand("relative/.env"))
	require.Equal(testInstance, "~other/.env", expander.Expand("~other/.env"))
}
