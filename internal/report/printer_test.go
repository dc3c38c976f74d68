package report_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tman/internal/artifactory"
	"github.com/temirov/tman/internal/provisioning"
	"github.com/temirov/tman/internal/report"
)

func TestPrinterRendersCreationSummary(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	printer := report.NewPrinter(outputBuffer, false)

	printer.PrintCreation(provisioning.CreationResult{
		Repository: "team-rpm",
		Group:      "team-rpm",
		Permission: "team-rpm",
		User:       "team-rpm-ci",
		Token:      "api-key",
		Outcomes: []provisioning.ResourceOutcome{
			{Kind: artifactory.ResourceKindRepository, Name: "team-rpm", Outcome: artifactory.OutcomeCreated},
			{Kind: artifactory.ResourceKindGroup, Name: "team-rpm", Outcome: artifactory.OutcomeAlreadyPresent},
		},
		Membership: artifactory.MembershipReport{Unresolved: []string{"ghost"}},
	}, nil)

	require.Equal(testInstance, ""+
		"created          repository team-rpm\n"+
		"already_present  group team-rpm\n"+
		"unresolved user  ghost\n"+
		"Repo: team-rpm\n"+
		"Group: team-rpm\n"+
		"Permission: team-rpm\n"+
		"User: team-rpm-ci\n"+
		"Token: api-key\n", outputBuffer.String())
}

func TestPrinterRendersCreationFailure(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	printer := report.NewPrinter(outputBuffer, false)

	printer.PrintCreation(provisioning.CreationResult{
		Repository: "team-rpm",
		Outcomes: []provisioning.ResourceOutcome{
			{Kind: artifactory.ResourceKindRepository, Name: "team-rpm", Outcome: artifactory.OutcomeCreated},
		},
		RolledBack: []string{"repository"},
	}, errors.New("provisioning step group failed"))

	output := outputBuffer.String()
	require.Contains(testInstance, output, "rolled back      repository\n")
	require.Contains(testInstance, output, "error: provisioning step group failed\n")
	require.NotContains(testInstance, output, "Repo:")
}

func TestPrinterRendersRemovalAndToken(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	printer := report.NewPrinter(outputBuffer, false)

	printer.PrintRemoval(provisioning.RemovalResult{
		Name: "team-rpm",
		Outcomes: []provisioning.ResourceOutcome{
			{Kind: artifactory.ResourceKindPermission, Name: "team-rpm", Outcome: artifactory.OutcomeNotPresent},
		},
	}, nil)
	printer.PrintToken("alice", artifactory.AccessToken{AccessToken: "token-value"})

	require.Equal(testInstance, ""+
		"not_present      permission team-rpm\n"+
		"Token for alice: token-value (expires in 0)\n", outputBuffer.String())
}

func TestPrinterEmitsColorWhenEnabled(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	printer := report.NewPrinter(outputBuffer, true)

	printer.PrintOutcome(artifactory.ResourceKindUser, "alice", artifactory.OutcomeRemoved)

	require.Contains(testInstance, outputBuffer.String(), "\x1b[32m")
}
