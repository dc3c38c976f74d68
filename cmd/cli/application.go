package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/tman/internal/artifactory"
	"github.com/temirov/tman/internal/credentials"
	"github.com/temirov/tman/internal/provisioning"
	"github.com/temirov/tman/internal/report"
	"github.com/temirov/tman/internal/settings"
	"github.com/temirov/tman/internal/utils"
)

const (
	applicationNameConstant                 = "tman"
	applicationShortDescriptionConstant     = "Provision local repositories, groups, permissions, and users in an artifact registry"
	applicationLongDescriptionConstant      = "tman creates and removes registry resources described by a YAML settings file and issues credentials for CI users."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	noRollbackFlagNameConstant              = "no-rollback"
	noRollbackFlagUsageConstant             = "Leave resources created by a failed run in place."
	newFlagNameConstant                     = "new"
	newFlagShorthandConstant                = "n"
	newFlagUsageConstant                    = "Create the repository described by the settings file."
	tokenFlagNameConstant                   = "token"
	tokenFlagShorthandConstant              = "t"
	tokenFlagUsageConstant                  = "Issue a new access token for an existing user."
	removeUserFlagNameConstant              = "remove_user"
	removeUserFlagShorthandConstant         = "r"
	removeUserFlagUsageConstant             = "Remove a user."
	removeRepositoryFlagNameConstant        = "remove_repo"
	removeRepositoryFlagShorthandConstant   = "R"
	removeRepositoryFlagUsageConstant       = "Remove the repository together with its group and permission target."
	settingsFlagNameConstant                = "settings"
	settingsFlagUsageConstant               = "Path to the repository settings file."
	environmentPrefixConstant               = "TMAN"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationSearchPathConstant     = "~/.config/tman"
	xdgConfigHomeEnvironmentConstant        = "XDG_CONFIG_HOME"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	dotenvFileFieldConstant                 = "dotenv_file"
	dotenvLoadedMessageConstant             = "dotenv file loaded"
	creationResultMessageConstant           = "repository creation result"
	tokenIssuedMessageConstant              = "access token issued"
	userRemovalMessageConstant              = "user removal result"
	removalResultMessageConstant            = "repository removal result"
	resultFieldConstant                     = "result"
	userFieldConstant                       = "user"
	outcomeFieldConstant                    = "outcome"
	settingsFileFieldConstant               = "settings_file"
	settingsLoadedMessageConstant           = "repository settings loaded"
	repositoryFieldConstant                 = "repository"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	tokenSourceErrorTemplateConstant        = "unable to resolve registry token: %w"
	dotenvErrorTemplateConstant             = "unable to load registry environment: %w"
	clientErrorTemplateConstant             = "unable to configure registry client: %w"
	settingsErrorTemplateConstant           = "unable to load repository settings: %w"
	userRemovalErrorTemplateConstant        = "unable to remove user %s: %w"
	tokenIssueErrorTemplateConstant         = "unable to issue token for %s: %w"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	redactedTokenKeyConstant                = "Token"
	redactedTokenValueConstant              = "[redacted]"
)

// ApplicationOptions overrides collaborators for embedding and tests.
type ApplicationOptions struct {
	HTTPClient        artifactory.HTTPClient
	Output            io.Writer
	LogOutput         io.Writer
	EnvironmentLookup credentials.EnvironmentLookup
	SkipDotenv        bool
	ColorEnabled      *bool
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	options               ApplicationOptions
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	noRollbackFlagValue   bool
	newFlagValue          bool
	tokenUserFlagValue    string
	removeUserFlagValue   string
	removeRepositoryValue string
	settingsFlagValue     string
}

type registryServices struct {
	repositories *artifactory.RepositoryService
	groups       *artifactory.GroupService
	permissions  *artifactory.PermissionService
	users        *artifactory.UserService
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return NewApplicationWithOptions(ApplicationOptions{})
}

// NewApplicationWithOptions assembles a CLI application using the provided collaborators.
func NewApplicationWithOptions(options ApplicationOptions) *Application {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	if options.HTTPClient == nil {
		options.HTTPClient = http.DefaultClient
	}

	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	loggerFactory := utils.NewLoggerFactory()
	if options.LogOutput != nil {
		loggerFactory = utils.NewLoggerFactoryWithOutput(options.LogOutput)
	}

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       loggerFactory,
		logger:              zap.NewNop(),
		options:             options,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetOut(options.Output)
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().BoolVar(&application.noRollbackFlagValue, noRollbackFlagNameConstant, false, noRollbackFlagUsageConstant)

	cobraCommand.Flags().BoolVarP(&application.newFlagValue, newFlagNameConstant, newFlagShorthandConstant, false, newFlagUsageConstant)
	cobraCommand.Flags().StringVarP(&application.tokenUserFlagValue, tokenFlagNameConstant, tokenFlagShorthandConstant, "", tokenFlagUsageConstant)
	cobraCommand.Flags().StringVarP(&application.removeUserFlagValue, removeUserFlagNameConstant, removeUserFlagShorthandConstant, "", removeUserFlagUsageConstant)
	cobraCommand.Flags().StringVarP(&application.removeRepositoryValue, removeRepositoryFlagNameConstant, removeRepositoryFlagShorthandConstant, "", removeRepositoryFlagUsageConstant)
	cobraCommand.Flags().StringVar(&application.settingsFlagValue, settingsFlagNameConstant, "", settingsFlagUsageConstant)

	application.rootCommand = cobraCommand

	return application
}

// SetArguments replaces the arguments parsed by the root command.
func (application *Application) SetArguments(arguments []string) {
	application.rootCommand.SetArgs(arguments)
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if xdgConfigHome := strings.TrimSpace(os.Getenv(xdgConfigHomeEnvironmentConstant)); len(xdgConfigHome) > 0 {
		searchPaths = append(searchPaths, filepath.Join(xdgConfigHome, applicationNameConstant))
	}
	return append(searchPaths, userConfigurationSearchPathConstant)
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, DefaultConfigurationValues(), &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.persistentFlagChanged(command, noRollbackFlagNameConstant) && application.noRollbackFlagValue {
		application.configuration.Provisioning.RollbackOnFailure = false
	}

	logLevel, logLevelError := utils.ParseLogLevel(application.configuration.Common.LogLevel)
	if logLevelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logLevelError)
	}
	logFormat, logFormatError := utils.ParseLogFormat(application.configuration.Common.LogFormat)
	if logFormatError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logFormatError)
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(logLevel, logFormat)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) runRootCommand(command *cobra.Command) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	actionRequested := application.newFlagValue ||
		len(application.tokenUserFlagValue) > 0 ||
		len(application.removeUserFlagValue) > 0 ||
		len(application.removeRepositoryValue) > 0
	if !actionRequested {
		return command.Help()
	}

	executionContext := command.Context()
	services, servicesError := application.buildRegistryServices()
	if servicesError != nil {
		return servicesError
	}
	printer := report.NewPrinter(application.options.Output, application.colorEnabled())

	if application.newFlagValue {
		if creationError := application.createRepository(executionContext, services, printer); creationError != nil {
			return creationError
		}
	}
	if len(application.tokenUserFlagValue) > 0 {
		if tokenError := application.issueToken(executionContext, services, printer); tokenError != nil {
			return tokenError
		}
	}
	if len(application.removeUserFlagValue) > 0 {
		if removalError := application.removeUser(executionContext, services, printer); removalError != nil {
			return removalError
		}
	}
	if len(application.removeRepositoryValue) > 0 {
		if removalError := application.removeRepository(executionContext, services, printer); removalError != nil {
			return removalError
		}
	}

	return nil
}

func (application *Application) createRepository(executionContext context.Context, services registryServices, printer *report.Printer) error {
	settingsFilePath := application.configuration.Provisioning.SettingsFile
	if len(strings.TrimSpace(application.settingsFlagValue)) > 0 {
		settingsFilePath = application.settingsFlagValue
	}
	settingsFilePath = utils.NewHomeExpander().Expand(strings.TrimSpace(settingsFilePath))

	repositorySettings, settingsError := settings.Load(settingsFilePath)
	if settingsError != nil {
		return fmt.Errorf(settingsErrorTemplateConstant, settingsError)
	}
	application.logger.Debug(settingsLoadedMessageConstant, zap.String(settingsFileFieldConstant, settingsFilePath), zap.String(repositoryFieldConstant, repositorySettings.Name))

	service, serviceError := application.provisioningService(services)
	if serviceError != nil {
		return serviceError
	}

	result, creationError := service.CreateLocalRepository(executionContext, provisioning.Request{
		Name:           repositorySettings.Name,
		Participants:   repositorySettings.Participants,
		Responsible:    repositorySettings.Responsible,
		TicketID:       repositorySettings.TicketID,
		RepositoryType: repositorySettings.RepositoryType,
		CI:             repositorySettings.CI,
	})
	printer.PrintCreation(result, creationError)
	if creationError != nil {
		return creationError
	}

	application.logger.Info(creationResultMessageConstant, zap.Any(resultFieldConstant, redactedResult(result.Map())))
	return nil
}

func (application *Application) issueToken(executionContext context.Context, services registryServices, printer *report.Printer) error {
	userName := strings.TrimSpace(application.tokenUserFlagValue)
	accessToken, tokenError := services.users.GetToken(executionContext, userName)
	if tokenError != nil {
		printer.PrintFailure(tokenError)
		return fmt.Errorf(tokenIssueErrorTemplateConstant, userName, tokenError)
	}

	printer.PrintToken(userName, accessToken)
	application.logger.Info(tokenIssuedMessageConstant, zap.String(userFieldConstant, userName))
	return nil
}

func (application *Application) removeUser(executionContext context.Context, services registryServices, printer *report.Printer) error {
	userName := strings.TrimSpace(application.removeUserFlagValue)
	outcome, removalError := services.users.Remove(executionContext, userName)
	printer.PrintOutcome(artifactory.ResourceKindUser, userName, outcome)
	if removalError != nil {
		printer.PrintFailure(removalError)
		return fmt.Errorf(userRemovalErrorTemplateConstant, userName, removalError)
	}

	application.logger.Info(userRemovalMessageConstant, zap.String(userFieldConstant, userName), zap.String(outcomeFieldConstant, string(outcome)))
	return nil
}

func (application *Application) removeRepository(executionContext context.Context, services registryServices, printer *report.Printer) error {
	service, serviceError := application.provisioningService(services)
	if serviceError != nil {
		return serviceError
	}

	result, removalError := service.RemoveLocalRepository(executionContext, application.removeRepositoryValue)
	printer.PrintRemoval(result, removalError)
	if removalError != nil {
		return removalError
	}

	application.logger.Info(removalResultMessageConstant, zap.Any(resultFieldConstant, result.Outcomes))
	return nil
}

func (application *Application) provisioningService(services registryServices) (*provisioning.Service, error) {
	return provisioning.NewService(provisioning.Dependencies{
		Logger:       application.logger,
		Repositories: services.repositories,
		Groups:       services.groups,
		Permissions:  services.permissions,
		Users:        services.users,
	}, provisioning.Options{RollbackOnFailure: application.configuration.Provisioning.RollbackOnFailure})
}

func (application *Application) buildRegistryServices() (registryServices, error) {
	registryConfiguration := application.configuration.Registry
	pathExpander := utils.NewHomeExpander()

	if !application.options.SkipDotenv {
		dotenvFilePath := pathExpander.Expand(strings.TrimSpace(registryConfiguration.DotenvFile))
		dotenvApplied, dotenvError := credentials.NewDotenvLoader().Load(dotenvFilePath)
		if dotenvError != nil {
			return registryServices{}, fmt.Errorf(dotenvErrorTemplateConstant, dotenvError)
		}
		if dotenvApplied {
			application.logger.Debug(dotenvLoadedMessageConstant, zap.String(dotenvFileFieldConstant, dotenvFilePath))
		}
	}

	tokenSource, tokenSourceError := credentials.ParseSource(registryConfiguration.TokenSource)
	if tokenSourceError != nil {
		return registryServices{}, fmt.Errorf(tokenSourceErrorTemplateConstant, tokenSourceError)
	}

	tokenResolver := credentials.NewResolver(credentials.ResolverOptions{
		LookupEnvironment: application.options.EnvironmentLookup,
		ExpandPath:        pathExpander.Expand,
	})
	token, tokenError := tokenResolver.Resolve(context.Background(), tokenSource)
	if tokenError != nil {
		return registryServices{}, fmt.Errorf(tokenSourceErrorTemplateConstant, tokenError)
	}

	client, clientError := artifactory.NewClient(application.logger, application.options.HTTPClient, artifactory.ClientConfiguration{
		BaseURL:        registryConfiguration.BaseURL,
		Token:          token,
		AuthHeaderName: registryConfiguration.AuthHeader,
	})
	if clientError != nil {
		return registryServices{}, fmt.Errorf(clientErrorTemplateConstant, clientError)
	}

	usersConfiguration := application.configuration.Users
	passwordGenerator, generatorError := artifactory.NewPasswordGenerator(usersConfiguration.PasswordLength, usersConfiguration.PasswordCharset)
	if generatorError != nil {
		return registryServices{}, fmt.Errorf(clientErrorTemplateConstant, generatorError)
	}

	userService, userServiceError := artifactory.NewUserService(client, artifactory.UserServiceConfiguration{
		DefaultGroup:      usersConfiguration.DefaultGroup,
		DefaultEmail:      usersConfiguration.DefaultEmail,
		CISuffix:          usersConfiguration.CISuffix,
		PasswordGenerator: passwordGenerator,
	})
	if userServiceError != nil {
		return registryServices{}, fmt.Errorf(clientErrorTemplateConstant, userServiceError)
	}

	return registryServices{
		repositories: artifactory.NewRepositoryService(client),
		groups:       artifactory.NewGroupService(client),
		permissions:  artifactory.NewPermissionService(client, application.configuration.Permissions.permissionActions()),
		users:        userService,
	}, nil
}

func (application *Application) colorEnabled() bool {
	if application.options.ColorEnabled != nil {
		return *application.options.ColorEnabled
	}
	return application.options.Output == os.Stdout && !color.NoColor
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}

// redactedResult hides the issued API key from log output.
func redactedResult(resultMap map[string]string) map[string]string {
	redacted := make(map[string]string, len(resultMap))
	for resultKey, resultValue := range resultMap {
		redacted[resultKey] = resultValue
	}
	if _, hasToken := redacted[redactedTokenKeyConstant]; hasToken {
		redacted[redactedTokenKeyConstant] = redactedTokenValueConstant
	}
	return redacted
}
