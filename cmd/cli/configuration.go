package cli

import (
	"github.com/temirov/tman/internal/artifactory"
	"github.com/temirov/tman/internal/credentials"
	"github.com/temirov/tman/internal/settings"
	"github.com/temirov/tman/internal/utils"
)

const (
	commonLogLevelConfigKeyConstant                = "common.log_level"
	commonLogFormatConfigKeyConstant               = "common.log_format"
	registryAuthHeaderConfigKeyConstant            = "registry.auth_header"
	registryTokenSourceConfigKeyConstant           = "registry.token_source"
	registryDotenvFileConfigKeyConstant            = "registry.dotenv_file"
	usersDefaultGroupConfigKeyConstant             = "users.default_group"
	usersDefaultEmailConfigKeyConstant             = "users.default_email"
	usersCISuffixConfigKeyConstant                 = "users.ci_suffix"
	usersPasswordLengthConfigKeyConstant           = "users.password_length"
	usersPasswordCharsetConfigKeyConstant          = "users.password_charset"
	provisioningSettingsFileConfigKeyConstant      = "provisioning.settings_file"
	provisioningRollbackOnFailureConfigKeyConstant = "provisioning.rollback_on_failure"
	defaultAuthHeaderNameConstant                  = "X-JFrog-Art-Api"
	defaultDotenvFileConstant                      = ".env"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common       ApplicationCommonConfiguration `mapstructure:"common"`
	Registry     RegistryConfiguration          `mapstructure:"registry"`
	Users        UsersConfiguration             `mapstructure:"users"`
	Permissions  PermissionsConfiguration       `mapstructure:"permissions"`
	Provisioning ProvisioningConfiguration      `mapstructure:"provisioning"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// RegistryConfiguration locates the registry management API and its credentials.
type RegistryConfiguration struct {
	BaseURL     string `mapstructure:"base_url"`
	AuthHeader  string `mapstructure:"auth_header"`
	TokenSource string `mapstructure:"token_source"`
	DotenvFile  string `mapstructure:"dotenv_file"`
}

// UsersConfiguration controls user provisioning.
type UsersConfiguration struct {
	DefaultGroup    string `mapstructure:"default_group"`
	DefaultEmail    string `mapstructure:"default_email"`
	CISuffix        string `mapstructure:"ci_suffix"`
	PasswordLength  int    `mapstructure:"password_length"`
	PasswordCharset string `mapstructure:"password_charset"`
}

// PermissionsConfiguration holds the action set granted to repository groups.
type PermissionsConfiguration struct {
	Actions []string `mapstructure:"actions"`
}

// ProvisioningConfiguration controls the repository workflows.
type ProvisioningConfiguration struct {
	SettingsFile      string `mapstructure:"settings_file"`
	RollbackOnFailure bool   `mapstructure:"rollback_on_failure"`
}

// DefaultConfigurationValues returns the fallback values applied beneath the embedded configuration.
func DefaultConfigurationValues() map[string]any {
	return map[string]any{
		commonLogLevelConfigKeyConstant:                string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:               string(utils.LogFormatConsole),
		registryAuthHeaderConfigKeyConstant:            defaultAuthHeaderNameConstant,
		registryTokenSourceConfigKeyConstant:           credentials.DefaultTokenSource,
		registryDotenvFileConfigKeyConstant:            defaultDotenvFileConstant,
		usersDefaultGroupConfigKeyConstant:             artifactory.DefaultUserGroup,
		usersDefaultEmailConfigKeyConstant:             artifactory.DefaultUserEmail,
		usersCISuffixConfigKeyConstant:                 artifactory.DefaultCIUserSuffix,
		usersPasswordLengthConfigKeyConstant:           artifactory.DefaultPasswordLength,
		usersPasswordCharsetConfigKeyConstant:          artifactory.DefaultPasswordCharset,
		provisioningSettingsFileConfigKeyConstant:      settings.DefaultSettingsFileName,
		provisioningRollbackOnFailureConfigKeyConstant: true,
	}
}

func (configuration PermissionsConfiguration) permissionActions() []artifactory.PermissionAction {
	actions := make([]artifactory.PermissionAction, 0, len(configuration.Actions))
	for _, action := range configuration.Actions {
		actions = append(actions, artifactory.PermissionAction(action))
	}
	return actions
}
