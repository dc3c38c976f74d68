// Package report renders workflow results for operators.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/temirov/tman/internal/artifactory"
	"github.com/temirov/tman/internal/provisioning"
)

const (
	outcomeLineTemplateConstant         = "%-16s %s %s\n"
	resultLineTemplateConstant          = "%s: %s\n"
	rolledBackLineTemplateConstant      = "%-16s %s\n"
	compensationFailureTemplateConstant = "%-16s %s\n"
	failureLineTemplateConstant         = "%s %v\n"
	tokenLineTemplateConstant           = "%s: %s (expires in %d)\n"
	membershipLineTemplateConstant      = "%-16s %s\n"
	rolledBackLabelConstant             = "rolled back"
	compensationFailedLabelConstant     = "rollback failed"
	unresolvedLabelConstant             = "unresolved user"
	membershipFailedLabelConstant       = "not added"
	failureLabelConstant                = "error:"
	tokenUserLabelConstant              = "Token for"
)

var creationResultKeys = []string{"Repo", "Group", "Permission", "User", "Token"}

// Printer writes colorized summaries of provisioning results.
type Printer struct {
	writer   io.Writer
	success  *color.Color
	warning  *color.Color
	failure  *color.Color
	emphasis *color.Color
}

// NewPrinter constructs a Printer. Colors are emitted only when colorEnabled is true.
func NewPrinter(writer io.Writer, colorEnabled bool) *Printer {
	if writer == nil {
		writer = os.Stdout
	}

	printer := &Printer{
		writer:   writer,
		success:  color.New(color.FgGreen),
		warning:  color.New(color.FgYellow),
		failure:  color.New(color.FgRed, color.Bold),
		emphasis: color.New(color.Bold),
	}
	for _, palette := range []*color.Color{printer.success, printer.warning, printer.failure, printer.emphasis} {
		if colorEnabled {
			palette.EnableColor()
		} else {
			palette.DisableColor()
		}
	}
	return printer
}

// PrintCreation renders the per-resource outcomes, the resulting resource map, and any failure.
func (printer *Printer) PrintCreation(result provisioning.CreationResult, creationError error) {
	printer.printOutcomes(result.Outcomes)

	for _, failure := range result.Membership.Failed {
		fmt.Fprintf(printer.writer, membershipLineTemplateConstant, printer.warning.Sprint(membershipFailedLabelConstant), failure.UserName)
	}
	for _, unresolvedUser := range result.Membership.Unresolved {
		fmt.Fprintf(printer.writer, membershipLineTemplateConstant, printer.warning.Sprint(unresolvedLabelConstant), unresolvedUser)
	}
	for _, rolledBack := range result.RolledBack {
		fmt.Fprintf(printer.writer, rolledBackLineTemplateConstant, printer.warning.Sprint(rolledBackLabelConstant), rolledBack)
	}
	for _, failure := range result.CompensationFailures {
		fmt.Fprintf(printer.writer, compensationFailureTemplateConstant, printer.failure.Sprint(compensationFailedLabelConstant), failure.String())
	}

	if creationError != nil {
		printer.PrintFailure(creationError)
		return
	}

	resultMap := result.Map()
	for _, resultKey := range creationResultKeys {
		resultValue, present := resultMap[resultKey]
		if !present {
			continue
		}
		fmt.Fprintf(printer.writer, resultLineTemplateConstant, printer.emphasis.Sprint(resultKey), resultValue)
	}
}

// PrintRemoval renders the removal outcomes and any failure.
func (printer *Printer) PrintRemoval(result provisioning.RemovalResult, removalError error) {
	printer.printOutcomes(result.Outcomes)
	if removalError != nil {
		printer.PrintFailure(removalError)
	}
}

// PrintOutcome renders a single resource outcome.
func (printer *Printer) PrintOutcome(kind artifactory.ResourceKind, resourceName string, outcome artifactory.Outcome) {
	printer.printOutcomes([]provisioning.ResourceOutcome{{Kind: kind, Name: resourceName, Outcome: outcome}})
}

// PrintToken renders an issued access token.
func (printer *Printer) PrintToken(userName string, token artifactory.AccessToken) {
	fmt.Fprintf(printer.writer, tokenLineTemplateConstant, printer.emphasis.Sprint(tokenUserLabelConstant+" "+userName), token.AccessToken, token.ExpiresIn)
}

// PrintFailure renders an error line.
func (printer *Printer) PrintFailure(failure error) {
	fmt.Fprintf(printer.writer, failureLineTemplateConstant, printer.failure.Sprint(failureLabelConstant), failure)
}

func (printer *Printer) printOutcomes(outcomes []provisioning.ResourceOutcome) {
	for _, resourceOutcome := range outcomes {
		fmt.Fprintf(printer.writer, outcomeLineTemplateConstant, printer.colorFor(resourceOutcome.Outcome).Sprint(resourceOutcome.Outcome), resourceOutcome.Kind, resourceOutcome.Name)
	}
}

func (printer *Printer) colorFor(outcome artifactory.Outcome) *color.Color {
	switch outcome {
	case artifactory.OutcomeCreated, artifactory.OutcomeRemoved:
		return printer.success
	case artifactory.OutcomeFailed:
		return printer.failure
	default:
		return printer.warning
	}
}
