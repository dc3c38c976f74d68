package provisioning

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	stepExecutionErrorTemplateConstant     = "provisioning step %s failed: %w"
	stepStartedMessageConstant             = "Running provisioning step"
	stepCompletedMessageConstant           = "Provisioning step completed"
	stepFailedMessageConstant              = "Provisioning step failed"
	rollbackStartedMessageConstant         = "Rolling back provisioning steps"
	rollbackSkippedMessageConstant         = "Rollback disabled, leaving created resources in place"
	compensationCompletedMessageConstant   = "Compensated provisioning step"
	compensationFailedMessageConstant      = "Compensation failed"
	stepLogFieldConstant                   = "step"
	pendingCompensationsLogFieldConstant   = "pending_compensations"
	compensationTargetLogFieldConstant     = "compensated"
	compensationFailureLogFieldConstant    = "compensation_error"
	rollbackEnabledLogFieldConstant        = "rollback"
	compensationFailureDescriptionTemplate = "%s: %v"
)

// Compensation undoes the effect of a completed step.
type Compensation func(executionContext context.Context) error

// Step is a single named unit of provisioning work. Action returns a nil Compensation when it changed nothing.
type Step struct {
	Name   string
	Action func(executionContext context.Context) (Compensation, error)
}

// CompensationFailure records a compensation that could not be applied.
type CompensationFailure struct {
	StepName string
	Cause    error
}

// String renders the failure for reports.
func (failure CompensationFailure) String() string {
	return fmt.Sprintf(compensationFailureDescriptionTemplate, failure.StepName, failure.Cause)
}

// RunReport summarizes a runner execution.
type RunReport struct {
	Completed            []string
	FailedStep           string
	RolledBack           []string
	CompensationFailures []CompensationFailure
}

// Runner executes steps in order and compensates completed steps on failure.
type Runner struct {
	logger            *zap.Logger
	rollbackOnFailure bool
}

// NewRunner constructs a Runner.
func NewRunner(logger *zap.Logger, rollbackOnFailure bool) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, rollbackOnFailure: rollbackOnFailure}
}

type completedStep struct {
	name         string
	compensation Compensation
}

// Run executes the steps sequentially. The first failing step stops the run and triggers compensation.
func (runner *Runner) Run(executionContext context.Context, steps []Step) (RunReport, error) {
	report := RunReport{}
	completedSteps := make([]completedStep, 0, len(steps))

	for stepIndex := range steps {
		step := steps[stepIndex]
		if step.Action == nil {
			continue
		}

		runner.logger.Debug(stepStartedMessageConstant, zap.String(stepLogFieldConstant, step.Name))
		compensation, stepError := step.Action(executionContext)
		if stepError != nil {
			report.FailedStep = step.Name
			runner.logger.Error(stepFailedMessageConstant, zap.String(stepLogFieldConstant, step.Name), zap.Error(stepError))
			runner.compensate(context.WithoutCancel(executionContext), completedSteps, &report)
			return report, fmt.Errorf(stepExecutionErrorTemplateConstant, step.Name, stepError)
		}

		report.Completed = append(report.Completed, step.Name)
		completedSteps = append(completedSteps, completedStep{name: step.Name, compensation: compensation})
		runner.logger.Debug(stepCompletedMessageConstant, zap.String(stepLogFieldConstant, step.Name))
	}

	return report, nil
}

func (runner *Runner) compensate(executionContext context.Context, completedSteps []completedStep, report *RunReport) {
	pendingCompensations := 0
	for _, completed := range completedSteps {
		if completed.compensation != nil {
			pendingCompensations++
		}
	}
	if pendingCompensations == 0 {
		return
	}

	if !runner.rollbackOnFailure {
		runner.logger.Warn(rollbackSkippedMessageConstant,
			zap.Bool(rollbackEnabledLogFieldConstant, false),
			zap.Int(pendingCompensationsLogFieldConstant, pendingCompensations),
		)
		return
	}

	runner.logger.Info(rollbackStartedMessageConstant, zap.Int(pendingCompensationsLogFieldConstant, pendingCompensations))
	for completedIndex := len(completedSteps) - 1; completedIndex >= 0; completedIndex-- {
		completed := completedSteps[completedIndex]
		if completed.compensation == nil {
			continue
		}
		if compensationError := completed.compensation(executionContext); compensationError != nil {
			report.CompensationFailures = append(report.CompensationFailures, CompensationFailure{StepName: completed.name, Cause: compensationError})
			runner.logger.Error(compensationFailedMessageConstant,
				zap.String(stepLogFieldConstant, completed.name),
				zap.NamedError(compensationFailureLogFieldConstant, compensationError),
			)
			continue
		}
		report.RolledBack = append(report.RolledBack, completed.name)
		runner.logger.Info(compensationCompletedMessageConstant, zap.String(compensationTargetLogFieldConstant, completed.name))
	}
}
