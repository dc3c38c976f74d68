package settings_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tman/internal/artifactory"
	"github.com/temirov/tman/internal/settings"
)

const settingsFileNameConstant = "settings.yaml"

func writeSettingsFile(testInstance *testing.T, contents string) string {
	testInstance.Helper()
	settingsPath := filepath.Join(testInstance.TempDir(), settingsFileNameConstant)
	require.NoError(testInstance, os.WriteFile(settingsPath, []byte(contents), 0o600))
	return settingsPath
}

func TestLoadReadsRepositorySettings(testInstance *testing.T) {
	settingsPath := writeSettingsFile(testInstance, `
team-rpm:
  participants: [alice, " bob ", ""]
  responsible: carol
  ticket_id: JIRA-1
  repo_type: RPM
  ci: true
`)

	repositorySettings, loadError := settings.Load(settingsPath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, settings.RepositorySettings{
		Name:           "team-rpm",
		Participants:   []string{"alice", "bob"},
		Responsible:    "carol",
		TicketID:       "JIRA-1",
		RepositoryType: artifactory.RepositoryTypeRPM,
		CI:             true,
	}, repositorySettings)
}

func TestParseSelectsFirstRepositoryInDocumentOrder(testInstance *testing.T) {
	repositorySettings, parseError := settings.Parse(settingsFileNameConstant, []byte(`
zeta-docker:
  repo_type: docker
alpha-npm:
  repo_type: npm
`))
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, "zeta-docker", repositorySettings.Name)
	require.Equal(testInstance, artifactory.RepositoryTypeDocker, repositorySettings.RepositoryType)
}

func TestParseAcceptsLooseValues(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		contents             string
		expectedCI           bool
		expectedParticipants []string
		expectedTicketID     string
	}{
		{
			name:                 "string_boolean",
			contents:             "repo:\n  repo_type: generic\n  ci: \"True\"\n",
			expectedCI:           true,
			expectedParticipants: []string{},
		},
		{
			name:                 "yes_boolean",
			contents:             "repo:\n  repo_type: generic\n  ci: \"yes\"\n",
			expectedCI:           true,
			expectedParticipants: []string{},
		},
		{
			name:                 "numeric_boolean",
			contents:             "repo:\n  repo_type: generic\n  ci: 0\n",
			expectedCI:           false,
			expectedParticipants: []string{},
		},
		{
			name:                 "comma_separated_participants",
			contents:             "repo:\n  repo_type: generic\n  participants: alice, bob\n",
			expectedParticipants: []string{"alice", "bob"},
		},
		{
			name:                 "numeric_ticket",
			contents:             "repo:\n  repo_type: generic\n  ticket_id: 4521\n",
			expectedParticipants: []string{},
			expectedTicketID:     "4521",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositorySettings, parseError := settings.Parse(settingsFileNameConstant, []byte(testCase.contents))
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedCI, repositorySettings.CI)
			require.Equal(testInstance, testCase.expectedParticipants, repositorySettings.Participants)
			require.Equal(testInstance, testCase.expectedTicketID, repositorySettings.TicketID)
		})
	}
}

func TestParseRejectsInvalidDocuments(testInstance *testing.T) {
	testCases := []struct {
		name          string
		contents      string
		expectedError string
	}{
		{name: "empty_document", contents: "", expectedError: "does not declare a repository"},
		{name: "empty_mapping", contents: "{}\n", expectedError: "does not declare a repository"},
		{name: "sequence_root", contents: "- team-rpm\n", expectedError: "must contain a mapping"},
		{name: "scalar_repository", contents: "team-rpm: rpm\n", expectedError: "must be a mapping"},
		{name: "missing_type", contents: "team-rpm:\n  ci: true\n", expectedError: "must define repo_type"},
		{name: "invalid_boolean", contents: "team-rpm:\n  repo_type: rpm\n  ci: maybe\n", expectedError: "not a boolean"},
		{name: "malformed_yaml", contents: "team-rpm: [\n", expectedError: "failed to parse"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, parseError := settings.Parse(settingsFileNameConstant, []byte(testCase.contents))
			require.ErrorContains(testInstance, parseError, testCase.expectedError)
		})
	}
}

func TestParseReportsUnsupportedRepositoryType(testInstance *testing.T) {
	_, parseError := settings.Parse(settingsFileNameConstant, []byte("team-deb:\n  repo_type: debian\n"))

	var configurationError *artifactory.ConfigurationError
	require.True(testInstance, errors.As(parseError, &configurationError))
}

func TestLoadReportsMissingFile(testInstance *testing.T) {
	_, loadError := settings.Load(filepath.Join(testInstance.TempDir(), settingsFileNameConstant))
	require.ErrorIs(testInstance, loadError, settings.ErrSettingsNotFound)

	_, loadError = settings.Load(" ")
	require.Error(testInstance, loadError)
}
