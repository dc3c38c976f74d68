package credentials_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tman/internal/credentials"
)

const (
	testEnvironmentVariableConstant = "TMAN_TEST_REGISTRY_TOKEN"
	testTokenValueConstant          = "registry-token"
)

func TestParseSource(testInstance *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedSource credentials.Source
		expectError    bool
	}{
		{
			name:           "default_source",
			input:          credentials.DefaultTokenSource,
			expectedSource: credentials.Source{Kind: credentials.SourceKindEnvironment, Location: "ART_TOKEN"},
		},
		{
			name:           "bare_variable_name",
			input:          " ART_TOKEN ",
			expectedSource: credentials.Source{Kind: credentials.SourceKindEnvironment, Location: "ART_TOKEN"},
		},
		{
			name:           "file_source",
			input:          "FILE:/run/secrets/token",
			expectedSource: credentials.Source{Kind: credentials.SourceKindFile, Location: "/run/secrets/token"},
		},
		{name: "empty", input: "  ", expectError: true},
		{name: "missing_variable", input: "env:", expectError: true},
		{name: "missing_path", input: "file: ", expectError: true},
		{name: "unsupported_type", input: "vault:secret/token", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parsedSource, parseError := credentials.ParseSource(testCase.input)
			if testCase.expectError {
				var sourceError *credentials.SourceError
				require.ErrorAs(testInstance, parseError, &sourceError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedSource, parsedSource)
		})
	}
}

func TestResolverResolvesSources(testInstance *testing.T) {
	tokenFilePath := filepath.Join(testInstance.TempDir(), "token")
	require.NoError(testInstance, os.WriteFile(tokenFilePath, []byte(testTokenValueConstant+"\n"), 0o600))
	emptyTokenFilePath := filepath.Join(testInstance.TempDir(), "empty")
	require.NoError(testInstance, os.WriteFile(emptyTokenFilePath, []byte("  \n"), 0o600))

	environment := map[string]string{testEnvironmentVariableConstant: " " + testTokenValueConstant + " ", "BLANK": " "}
	resolver := credentials.NewResolver(credentials.ResolverOptions{
		LookupEnvironment: func(key string) (string, bool) {
			value, found := environment[key]
			return value, found
		},
	})

	testCases := []struct {
		name          string
		source        credentials.Source
		expectedToken string
		expectMissing bool
		expectError   bool
	}{
		{
			name:          "environment",
			source:        credentials.Source{Kind: credentials.SourceKindEnvironment, Location: testEnvironmentVariableConstant},
			expectedToken: testTokenValueConstant,
		},
		{
			name:          "environment_missing",
			source:        credentials.Source{Kind: credentials.SourceKindEnvironment, Location: "ABSENT"},
			expectMissing: true,
		},
		{
			name:          "environment_blank",
			source:        credentials.Source{Kind: credentials.SourceKindEnvironment, Location: "BLANK"},
			expectMissing: true,
		},
		{
			name:          "file",
			source:        credentials.Source{Kind: credentials.SourceKindFile, Location: tokenFilePath},
			expectedToken: testTokenValueConstant,
		},
		{
			name:          "file_empty",
			source:        credentials.Source{Kind: credentials.SourceKindFile, Location: emptyTokenFilePath},
			expectMissing: true,
		},
		{
			name:        "file_unreadable",
			source:      credentials.Source{Kind: credentials.SourceKindFile, Location: filepath.Join(testInstance.TempDir(), "absent")},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			token, resolutionError := resolver.Resolve(context.Background(), testCase.source)
			switch {
			case testCase.expectMissing:
				require.ErrorIs(testInstance, resolutionError, credentials.ErrTokenUnavailable)
			case testCase.expectError:
				require.Error(testInstance, resolutionError)
				require.False(testInstance, errors.Is(resolutionError, credentials.ErrTokenUnavailable))
			default:
				require.NoError(testInstance, resolutionError)
				require.Equal(testInstance, testCase.expectedToken, token)
			}
		})
	}
}

func TestResolverExpandsFileLocations(testInstance *testing.T) {
	secretsDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(secretsDirectory, "token"), []byte(testTokenValueConstant), 0o600))

	resolver := credentials.NewResolver(credentials.ResolverOptions{
		ExpandPath: func(path string) string {
			return filepath.Join(secretsDirectory, filepath.Base(path))
		},
	})

	source, parseError := credentials.ParseSource("file:~/token")
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, "file:~/token", source.String())

	token, resolutionError := resolver.Resolve(context.Background(), source)
	require.NoError(testInstance, resolutionError)
	require.Equal(testInstance, testTokenValueConstant, token)
}

func TestResolverHonorsCancelledContext(testInstance *testing.T) {
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, resolutionError := credentials.NewResolver(credentials.ResolverOptions{}).Resolve(cancelledContext, credentials.Source{Kind: credentials.SourceKindEnvironment, Location: "ART_TOKEN"})
	require.ErrorIs(testInstance, resolutionError, context.Canceled)
}

func TestDotenvLoaderDoesNotOverrideEnvironment(testInstance *testing.T) {
	dotenvFilePath := filepath.Join(testInstance.TempDir(), ".env")
	require.NoError(testInstance, os.WriteFile(dotenvFilePath, []byte("TMAN_TEST_DOTENV_TOKEN=from-file\nTMAN_TEST_DOTENV_PRESET=from-file\n"), 0o600))
	testInstance.Setenv("TMAN_TEST_DOTENV_PRESET", "from-environment")
	testInstance.Setenv("TMAN_TEST_DOTENV_TOKEN", "")
	require.NoError(testInstance, os.Unsetenv("TMAN_TEST_DOTENV_TOKEN"))

	applied, loadError := credentials.NewDotenvLoader().Load(dotenvFilePath)
	require.NoError(testInstance, loadError)
	require.True(testInstance, applied)
	require.Equal(testInstance, "from-file", os.Getenv("TMAN_TEST_DOTENV_TOKEN"))
	require.Equal(testInstance, "from-environment", os.Getenv("TMAN_TEST_DOTENV_PRESET"))
}

func TestDotenvLoaderIgnoresMissingFile(testInstance *testing.T) {
	applied, loadError := credentials.NewDotenvLoader().Load(filepath.Join(testInstance.TempDir(), ".env"))
	require.NoError(testInstance, loadError)
	require.False(testInstance, applied)

	applied, loadError = credentials.NewDotenvLoader().Load(" ")
	require.NoError(testInstance, loadError)
	require.False(testInstance, applied)
}
