package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/tman/internal/artifactory"
)

const (
	responsibleDescriptionPrefixConstant      = "Responsible: "
	serviceDependenciesMissingMessageConstant = "provisioning service requires repository, group, permission, and user managers"
	repositoryNameRequiredMessageConstant     = "repository name must be provided"
	repositoryStepNameConstant                = "repository"
	groupStepNameConstant                     = "group"
	permissionStepNameConstant                = "permission"
	userStepNameConstant                      = "user"
	membershipStepNameConstant                = "membership"
	apiKeyStepNameConstant                    = "api key"
	creationStartedMessageConstant            = "Provisioning local repository"
	creationCompletedMessageConstant          = "Local repository provisioned"
	creationFailedMessageConstant             = "Local repository provisioning failed"
	removalStartedMessageConstant             = "Removing local repository"
	removalCompletedMessageConstant           = "Local repository removed"
	removalFailedMessageConstant              = "Local repository removal failed"
	ciUserAlreadyPresentMessageConstant       = "CI user already exists, skipping membership and API key issuance"
	membershipIncompleteMessageConstant       = "Some participants were not added to the group"
	runIDLogFieldConstant                     = "run_id"
	repositoryLogFieldConstant                = "repository"
	repositoryTypeLogFieldConstant            = "repo_type"
	ciLogFieldConstant                        = "ci"
	userLogFieldConstant                      = "user"
	outcomesLogFieldConstant                  = "outcomes"
	completedStepsLogFieldConstant            = "completed_steps"
	rolledBackStepsLogFieldConstant           = "rolled_back"
	unresolvedParticipantsLogFieldConstant    = "unresolved"
	failedParticipantsLogFieldConstant        = "failed"
	resultRepositoryKeyConstant               = "Repo"
	resultGroupKeyConstant                    = "Group"
	resultPermissionKeyConstant               = "Permission"
	resultUserKeyConstant                     = "User"
	resultTokenKeyConstant                    = "Token"
	resourceOutcomeTemplateConstant           = "%s %s: %s"
)

// ErrRepositoryNameMissing indicates a workflow request without a repository name.
var ErrRepositoryNameMissing = errors.New(repositoryNameRequiredMessageConstant)

// RepositoryManager creates and removes repositories.
type RepositoryManager interface {
	Create(executionContext context.Context, definition artifactory.RepositoryDefinition) (artifactory.Outcome, error)
	Remove(executionContext context.Context, repositoryName string) (artifactory.Outcome, error)
}

// GroupManager creates and removes groups.
type GroupManager interface {
	Create(executionContext context.Context, groupName string) (artifactory.Outcome, error)
	Remove(executionContext context.Context, groupName string) (artifactory.Outcome, error)
}

// PermissionManager creates and removes permission targets.
type PermissionManager interface {
	Create(executionContext context.Context, permissionName string, repositoryName string) (artifactory.Outcome, error)
	Remove(executionContext context.Context, permissionName string) (artifactory.Outcome, error)
}

// UserManager provisions users and their credentials.
type UserManager interface {
	Create(executionContext context.Context, definition artifactory.UserDefinition) (string, artifactory.Outcome, error)
	Remove(executionContext context.Context, userName string) (artifactory.Outcome, error)
	AddToGroup(executionContext context.Context, userNames []string, groupName string) artifactory.MembershipReport
	CreateAPIKey(executionContext context.Context, userName string) (string, error)
}

// Dependencies wires the resource managers used by the workflows.
type Dependencies struct {
	Logger         *zap.Logger
	Repositories   RepositoryManager
	Groups         GroupManager
	Permissions    PermissionManager
	Users          UserManager
	RunIDGenerator func() string
}

// Options captures workflow behavior switches.
type Options struct {
	RollbackOnFailure bool
}

// Request describes the local repository to provision.
type Request struct {
	Name           string
	Participants   []string
	Responsible    string
	TicketID       string
	RepositoryType artifactory.RepositoryType
	CI             bool
}

// ResourceOutcome records what a workflow did to a single resource.
type ResourceOutcome struct {
	Kind    artifactory.ResourceKind
	Name    string
	Outcome artifactory.Outcome
}

// CreationResult describes the resources produced by a creation run, including partial progress on failure.
type CreationResult struct {
	RunID                string
	Repository           string
	Group                string
	Permission           string
	User                 string
	Token                string
	Outcomes             []ResourceOutcome
	Membership           artifactory.MembershipReport
	RolledBack           []string
	CompensationFailures []CompensationFailure
}

// Map renders the result in the Repo/Group/Permission[/User/Token] shape.
func (result CreationResult) Map() map[string]string {
	rendered := make(map[string]string)
	assignNonEmpty(rendered, resultRepositoryKeyConstant, result.Repository)
	assignNonEmpty(rendered, resultGroupKeyConstant, result.Group)
	assignNonEmpty(rendered, resultPermissionKeyConstant, result.Permission)
	assignNonEmpty(rendered, resultUserKeyConstant, result.User)
	assignNonEmpty(rendered, resultTokenKeyConstant, result.Token)
	return rendered
}

// RemovalResult describes the outcome of a removal run.
type RemovalResult struct {
	RunID    string
	Name     string
	Outcomes []ResourceOutcome
}

// Service runs the provisioning workflows.
type Service struct {
	logger            *zap.Logger
	repositories      RepositoryManager
	groups            GroupManager
	permissions       PermissionManager
	users             UserManager
	runIDGenerator    func() string
	rollbackOnFailure bool
}

// NewService constructs a Service from its dependencies.
func NewService(dependencies Dependencies, options Options) (*Service, error) {
	if dependencies.Repositories == nil || dependencies.Groups == nil || dependencies.Permissions == nil || dependencies.Users == nil {
		return nil, errors.New(serviceDependenciesMissingMessageConstant)
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	runIDGenerator := dependencies.RunIDGenerator
	if runIDGenerator == nil {
		runIDGenerator = uuid.NewString
	}

	return &Service{
		logger:            logger,
		repositories:      dependencies.Repositories,
		groups:            dependencies.Groups,
		permissions:       dependencies.Permissions,
		users:             dependencies.Users,
		runIDGenerator:    runIDGenerator,
		rollbackOnFailure: options.RollbackOnFailure,
	}, nil
}

// CreateLocalRepository provisions the repository, its group and permission target, and optionally a CI user with an API key.
func (service *Service) CreateLocalRepository(executionContext context.Context, request Request) (CreationResult, error) {
	result := CreationResult{RunID: service.runIDGenerator()}
	repositoryName := strings.TrimSpace(request.Name)
	if len(repositoryName) == 0 {
		return result, ErrRepositoryNameMissing
	}

	runLogger := service.logger.With(zap.String(runIDLogFieldConstant, result.RunID), zap.String(repositoryLogFieldConstant, repositoryName))
	runLogger.Info(creationStartedMessageConstant,
		zap.String(repositoryTypeLogFieldConstant, string(request.RepositoryType)),
		zap.Bool(ciLogFieldConstant, request.CI),
	)

	steps := []Step{
		{
			Name: repositoryStepNameConstant,
			Action: func(stepContext context.Context) (Compensation, error) {
				outcome, createError := service.repositories.Create(stepContext, artifactory.RepositoryDefinition{
					Name:        repositoryName,
					Type:        request.RepositoryType,
					Description: responsibleDescriptionPrefixConstant + strings.TrimSpace(request.Responsible),
					Notes:       strings.TrimSpace(request.TicketID),
				})
				if createError != nil {
					result.record(artifactory.ResourceKindRepository, repositoryName, artifactory.OutcomeFailed)
					return nil, createError
				}
				result.Repository = repositoryName
				result.record(artifactory.ResourceKindRepository, repositoryName, outcome)
				return compensationFor(outcome, repositoryName, service.repositories.Remove), nil
			},
		},
		{
			Name: groupStepNameConstant,
			Action: func(stepContext context.Context) (Compensation, error) {
				outcome, createError := service.groups.Create(stepContext, repositoryName)
				if createError != nil {
					result.record(artifactory.ResourceKindGroup, repositoryName, artifactory.OutcomeFailed)
					return nil, createError
				}
				result.Group = repositoryName
				result.record(artifactory.ResourceKindGroup, repositoryName, outcome)
				return compensationFor(outcome, repositoryName, service.groups.Remove), nil
			},
		},
		{
			Name: permissionStepNameConstant,
			Action: func(stepContext context.Context) (Compensation, error) {
				outcome, createError := service.permissions.Create(stepContext, repositoryName, repositoryName)
				if createError != nil {
					result.record(artifactory.ResourceKindPermission, repositoryName, artifactory.OutcomeFailed)
					return nil, createError
				}
				result.Permission = repositoryName
				result.record(artifactory.ResourceKindPermission, repositoryName, outcome)
				return compensationFor(outcome, repositoryName, service.permissions.Remove), nil
			},
		},
	}

	if request.CI {
		steps = append(steps, service.ciUserSteps(runLogger, repositoryName, request.Participants, &result)...)
	}

	runReport, runError := NewRunner(runLogger, service.rollbackOnFailure).Run(executionContext, steps)
	result.RolledBack = runReport.RolledBack
	result.CompensationFailures = runReport.CompensationFailures
	if runError != nil {
		runLogger.Error(creationFailedMessageConstant,
			zap.Strings(completedStepsLogFieldConstant, runReport.Completed),
			zap.Strings(rolledBackStepsLogFieldConstant, runReport.RolledBack),
			zap.Error(runError),
		)
		return result, runError
	}

	runLogger.Info(creationCompletedMessageConstant, zap.Strings(outcomesLogFieldConstant, describeOutcomes(result.Outcomes)))
	return result, nil
}

func (service *Service) ciUserSteps(runLogger *zap.Logger, repositoryName string, participants []string, result *CreationResult) []Step {
	ciUserCreated := false
	ciUserName := ""

	return []Step{
		{
			Name: userStepNameConstant,
			Action: func(stepContext context.Context) (Compensation, error) {
				createdName, outcome, createError := service.users.Create(stepContext, artifactory.UserDefinition{Name: repositoryName, CI: true})
				if createError != nil {
					result.record(artifactory.ResourceKindUser, createdName, artifactory.OutcomeFailed)
					return nil, createError
				}
				ciUserName = createdName
				result.record(artifactory.ResourceKindUser, createdName, outcome)
				if outcome != artifactory.OutcomeCreated {
					runLogger.Warn(ciUserAlreadyPresentMessageConstant, zap.String(userLogFieldConstant, createdName))
					return nil, nil
				}
				ciUserCreated = true
				result.User = createdName
				return compensationFor(outcome, createdName, service.users.Remove), nil
			},
		},
		{
			Name: membershipStepNameConstant,
			Action: func(stepContext context.Context) (Compensation, error) {
				if !ciUserCreated {
					return nil, nil
				}
				members := make([]string, 0, len(participants)+1)
				members = append(members, participants...)
				members = append(members, ciUserName)
				result.Membership = service.users.AddToGroup(stepContext, members, repositoryName)
				if len(result.Membership.Unresolved) > 0 || len(result.Membership.Failed) > 0 {
					runLogger.Warn(membershipIncompleteMessageConstant,
						zap.Strings(unresolvedParticipantsLogFieldConstant, result.Membership.Unresolved),
						zap.Int(failedParticipantsLogFieldConstant, len(result.Membership.Failed)),
					)
				}
				return nil, nil
			},
		},
		{
			Name: apiKeyStepNameConstant,
			Action: func(stepContext context.Context) (Compensation, error) {
				if !ciUserCreated {
					return nil, nil
				}
				apiKey, apiKeyError := service.users.CreateAPIKey(stepContext, ciUserName)
				if apiKeyError != nil {
					result.record(artifactory.ResourceKindAPIKey, ciUserName, artifactory.OutcomeFailed)
					return nil, apiKeyError
				}
				result.Token = apiKey
				return nil, nil
			},
		},
	}
}

// RemoveLocalRepository removes the permission target, group, and repository in that order, stopping at the first failure.
func (service *Service) RemoveLocalRepository(executionContext context.Context, repositoryName string) (RemovalResult, error) {
	result := RemovalResult{RunID: service.runIDGenerator(), Name: strings.TrimSpace(repositoryName)}
	if len(result.Name) == 0 {
		return result, ErrRepositoryNameMissing
	}

	runLogger := service.logger.With(zap.String(runIDLogFieldConstant, result.RunID), zap.String(repositoryLogFieldConstant, result.Name))
	runLogger.Info(removalStartedMessageConstant)

	removalStep := func(stepName string, kind artifactory.ResourceKind, remove func(context.Context, string) (artifactory.Outcome, error)) Step {
		return Step{
			Name: stepName,
			Action: func(stepContext context.Context) (Compensation, error) {
				outcome, removeError := remove(stepContext, result.Name)
				if removeError != nil {
					result.Outcomes = append(result.Outcomes, ResourceOutcome{Kind: kind, Name: result.Name, Outcome: artifactory.OutcomeFailed})
					return nil, removeError
				}
				result.Outcomes = append(result.Outcomes, ResourceOutcome{Kind: kind, Name: result.Name, Outcome: outcome})
				return nil, nil
			},
		}
	}

	steps := []Step{
		removalStep(permissionStepNameConstant, artifactory.ResourceKindPermission, service.permissions.Remove),
		removalStep(groupStepNameConstant, artifactory.ResourceKindGroup, service.groups.Remove),
		removalStep(repositoryStepNameConstant, artifactory.ResourceKindRepository, service.repositories.Remove),
	}

	runReport, runError := NewRunner(runLogger, false).Run(executionContext, steps)
	if runError != nil {
		runLogger.Error(removalFailedMessageConstant, zap.Strings(completedStepsLogFieldConstant, runReport.Completed), zap.Error(runError))
		return result, runError
	}

	runLogger.Info(removalCompletedMessageConstant, zap.Strings(outcomesLogFieldConstant, describeOutcomes(result.Outcomes)))
	return result, nil
}

func (result *CreationResult) record(kind artifactory.ResourceKind, name string, outcome artifactory.Outcome) {
	result.Outcomes = append(result.Outcomes, ResourceOutcome{Kind: kind, Name: name, Outcome: outcome})
}

// compensationFor returns a removal compensation only for resources created by the current run.
func compensationFor(outcome artifactory.Outcome, resourceName string, remove func(context.Context, string) (artifactory.Outcome, error)) Compensation {
	if outcome != artifactory.OutcomeCreated {
		return nil
	}
	return func(compensationContext context.Context) error {
		_, removeError := remove(compensationContext, resourceName)
		return removeError
	}
}

func describeOutcomes(outcomes []ResourceOutcome) []string {
	descriptions := make([]string, 0, len(outcomes))
	for _, resourceOutcome := range outcomes {
		descriptions = append(descriptions, resourceOutcome.String())
	}
	return descriptions
}

// String renders the outcome for logs and reports.
func (resourceOutcome ResourceOutcome) String() string {
	return fmt.Sprintf(resourceOutcomeTemplateConstant, resourceOutcome.Kind, resourceOutcome.Name, resourceOutcome.Outcome)
}

func assignNonEmpty(target map[string]string, key string, value string) {
	if len(value) == 0 {
		return
	}
	target[key] = value
}
