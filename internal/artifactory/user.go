package artifactory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Defaults applied to provisioned users.
const (
	DefaultUserGroup    = "readers"
	DefaultUserEmail    = "devnull@example.ru"
	DefaultCIUserSuffix = "-ci"
)

const (
	userNameFieldConstant                   = "user name"
	userGroupsFieldConstant                 = "groups"
	tokenUserNameFieldConstant              = "username"
	tokenExpiresInFieldConstant             = "expires_in"
	nonExpiringTokenLifetimeConstant        = 0
	userMissingErrorTemplateConstant        = "user %q: %w"
	passwordUnknownErrorTemplateConstant    = "no generated password is known for user %q"
	passwordGeneratorMissingMessageConstant = "password generator must be provided"
	userResolutionSkippedMessageConstant    = "user does not exist, skipping group membership"
	userResolutionFailedMessageConstant     = "unable to resolve user"
	userGroupsDecodingFailedMessageConstant = "unable to read user record"
	userGroupAddedMessageConstant           = "user added to group"
	userGroupAlreadyMemberMessageConstant   = "user already belongs to group"
	userGroupUpdateFailedMessageConstant    = "unable to add user to group"
	apiKeyIssuedMessageConstant             = "api key issued"
	accessTokenIssuedMessageConstant        = "access token issued"
	passwordGeneratorFieldConstant          = "password generator"
	logFieldErrorConstant                   = "error"
	logFieldExpiresInConstant               = "expires_in"
)

// UserServiceConfiguration controls how users are provisioned.
type UserServiceConfiguration struct {
	DefaultGroup      string
	DefaultEmail      string
	CISuffix          string
	PasswordGenerator *PasswordGenerator
}

// UserDefinition describes a user to create. CI users receive the configured suffix and no UI access.
type UserDefinition struct {
	Name  string
	CI    bool
	Email string
}

// AccessToken is the credential returned by the token endpoint.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
}

// MembershipFailure records a user whose group update did not succeed.
type MembershipFailure struct {
	UserName string
	Cause    error
}

// MembershipReport summarizes a best-effort group membership update.
type MembershipReport struct {
	Updated    []string
	Unchanged  []string
	Unresolved []string
	Failed     []MembershipFailure
}

type userPayload struct {
	Name                     string   `json:"name"`
	Email                    string   `json:"email"`
	DisableUIAccess          bool     `json:"disableUIAccess"`
	InternalPasswordDisabled bool     `json:"internalPasswordDisabled"`
	Groups                   []string `json:"groups"`
	Password                 string   `json:"password"`
	ProfileUpdatable         *bool    `json:"profileUpdatable,omitempty"`
}

type apiKeyResponse struct {
	APIKey string `json:"apiKey"`
}

// UserService manages users and the credentials derived from them.
type UserService struct {
	accessor          resourceAccessor
	defaultGroup      string
	defaultEmail      string
	ciSuffix          string
	passwordGenerator *PasswordGenerator
	passwordsByUser   map[string]string
}

// NewUserService constructs a UserService, applying defaults for empty configuration values.
func NewUserService(client *Client, configuration UserServiceConfiguration) (*UserService, error) {
	if configuration.PasswordGenerator == nil {
		return nil, &ConfigurationError{Field: passwordGeneratorFieldConstant, Cause: errors.New(passwordGeneratorMissingMessageConstant)}
	}

	return &UserService{
		accessor: resourceAccessor{
			client:         client,
			kind:           ResourceKindUser,
			collectionPath: securityUsersPathSegmentConstant,
			statusPolicy:   UserStatusPolicy,
		},
		defaultGroup:      selectNonEmpty(configuration.DefaultGroup, DefaultUserGroup),
		defaultEmail:      selectNonEmpty(configuration.DefaultEmail, DefaultUserEmail),
		ciSuffix:          selectNonEmpty(configuration.CISuffix, DefaultCIUserSuffix),
		passwordGenerator: configuration.PasswordGenerator,
		passwordsByUser:   make(map[string]string),
	}, nil
}

// ResolveName returns the user name the registry will store for the definition.
func (service *UserService) ResolveName(definition UserDefinition) string {
	userName := strings.TrimSpace(definition.Name)
	if definition.CI {
		return userName + service.ciSuffix
	}
	return userName
}

// Exists reports whether the user is present.
func (service *UserService) Exists(executionContext context.Context, userName string) (bool, error) {
	return service.accessor.exists(executionContext, userName)
}

// Create provisions the user with a freshly generated password and returns the stored user name.
func (service *UserService) Create(executionContext context.Context, definition UserDefinition) (string, Outcome, error) {
	if len(strings.TrimSpace(definition.Name)) == 0 {
		return "", OutcomeFailed, &ConfigurationError{Field: userNameFieldConstant, Cause: errors.New(resourceNameMissingErrorMessageConstant)}
	}

	userName := service.ResolveName(definition)
	password, generationError := service.passwordGenerator.Generate()
	if generationError != nil {
		return userName, OutcomeFailed, generationError
	}

	payload := userPayload{
		Name:                     userName,
		Email:                    selectNonEmpty(definition.Email, service.defaultEmail),
		DisableUIAccess:          definition.CI,
		InternalPasswordDisabled: false,
		Groups:                   []string{service.defaultGroup},
		Password:                 password,
	}
	if definition.CI {
		profileUpdatable := false
		payload.ProfileUpdatable = &profileUpdatable
	}

	outcome, creationError := service.accessor.create(executionContext, userName, payload)
	if creationError != nil {
		return userName, outcome, creationError
	}
	if outcome == OutcomeCreated {
		service.passwordsByUser[userName] = password
	}
	return userName, outcome, nil
}

// Remove deletes the user when present.
func (service *UserService) Remove(executionContext context.Context, userName string) (Outcome, error) {
	outcome, removalError := service.accessor.remove(executionContext, userName)
	if outcome == OutcomeRemoved {
		delete(service.passwordsByUser, userName)
	}
	return outcome, removalError
}

// AddToGroup appends the group to every resolvable user. Unresolvable users and failed updates are logged and reported, never returned as errors.
func (service *UserService) AddToGroup(executionContext context.Context, userNames []string, groupName string) MembershipReport {
	report := MembershipReport{}
	logger := service.accessor.client.logger

	for _, candidateUserName := range userNames {
		userName := strings.TrimSpace(candidateUserName)
		if len(userName) == 0 {
			continue
		}

		response, fetchError := service.accessor.fetch(executionContext, userName)
		if fetchError != nil {
			logger.Error(userResolutionFailedMessageConstant, zap.String(logFieldUserNameConstant, userName), zap.Error(fetchError))
			report.Failed = append(report.Failed, MembershipFailure{UserName: userName, Cause: fetchError})
			continue
		}
		if response.statusCode != service.accessor.statusPolicy.Exists {
			logger.Info(userResolutionSkippedMessageConstant, zap.String(logFieldUserNameConstant, userName), zap.Int(logFieldStatusCodeConstant, response.statusCode))
			report.Unresolved = append(report.Unresolved, userName)
			continue
		}

		userRecord := map[string]any{}
		if decodingError := decodeResponse(resourcePath(securityUsersPathSegmentConstant, userName), response, &userRecord); decodingError != nil {
			logger.Error(userGroupsDecodingFailedMessageConstant, zap.String(logFieldUserNameConstant, userName), zap.Error(decodingError))
			report.Failed = append(report.Failed, MembershipFailure{UserName: userName, Cause: decodingError})
			continue
		}

		updatedGroups, groupAdded := appendGroup(userRecord[userGroupsFieldConstant], groupName)
		if !groupAdded {
			logger.Info(userGroupAlreadyMemberMessageConstant, zap.String(logFieldUserNameConstant, userName), zap.String(logFieldGroupNameConstant, groupName))
			report.Unchanged = append(report.Unchanged, userName)
			continue
		}
		userRecord[userGroupsFieldConstant] = updatedGroups

		updateError := service.updateUser(executionContext, userName, userRecord)
		if updateError != nil {
			logger.Error(userGroupUpdateFailedMessageConstant, zap.String(logFieldUserNameConstant, userName), zap.String(logFieldGroupNameConstant, groupName), zap.Error(updateError))
			report.Failed = append(report.Failed, MembershipFailure{UserName: userName, Cause: updateError})
			continue
		}

		logger.Info(userGroupAddedMessageConstant, zap.String(logFieldUserNameConstant, userName), zap.String(logFieldGroupNameConstant, groupName))
		report.Updated = append(report.Updated, userName)
	}

	return report
}

// CreateAPIKey issues an API key for a user created through this service, authenticating as that user.
func (service *UserService) CreateAPIKey(executionContext context.Context, userName string) (string, error) {
	if existsError := service.requireUser(executionContext, userName); existsError != nil {
		return "", existsError
	}

	password, passwordKnown := service.passwordsByUser[userName]
	if !passwordKnown {
		return "", fmt.Errorf(passwordUnknownErrorTemplateConstant, userName)
	}

	response, executionError := service.accessor.client.execute(executionContext, registryRequest{
		method:           http.MethodPost,
		path:             securityAPIKeyPathConstant,
		basicCredentials: &basicCredentials{userName: userName, password: password},
	})
	if executionError != nil {
		return "", executionError
	}
	if response.statusCode != http.StatusCreated {
		return "", &RemoteError{Operation: OperationIssue, ResourceKind: ResourceKindAPIKey, ResourceName: userName, StatusCode: response.statusCode, Body: string(response.body)}
	}

	decodedResponse := apiKeyResponse{}
	if decodingError := decodeResponse(securityAPIKeyPathConstant, response, &decodedResponse); decodingError != nil {
		return "", decodingError
	}

	service.accessor.client.logger.Info(apiKeyIssuedMessageConstant, zap.String(logFieldUserNameConstant, userName))
	return decodedResponse.APIKey, nil
}

// GetToken requests a non-expiring access token for the user. Both 200 and 201 count as success.
func (service *UserService) GetToken(executionContext context.Context, userName string) (AccessToken, error) {
	if existsError := service.requireUser(executionContext, userName); existsError != nil {
		return AccessToken{}, existsError
	}

	formValues := url.Values{}
	formValues.Set(tokenUserNameFieldConstant, userName)
	formValues.Set(tokenExpiresInFieldConstant, strconv.Itoa(nonExpiringTokenLifetimeConstant))

	response, executionError := service.accessor.client.execute(executionContext, registryRequest{
		method:      http.MethodPost,
		path:        securityTokenPathConstant,
		body:        []byte(formValues.Encode()),
		contentType: formContentTypeConstant,
	})
	if executionError != nil {
		return AccessToken{}, executionError
	}
	if response.statusCode != http.StatusCreated && response.statusCode != http.StatusOK {
		return AccessToken{}, &RemoteError{Operation: OperationIssue, ResourceKind: ResourceKindToken, ResourceName: userName, StatusCode: response.statusCode, Body: string(response.body)}
	}

	accessToken := AccessToken{}
	if decodingError := decodeResponse(securityTokenPathConstant, response, &accessToken); decodingError != nil {
		return AccessToken{}, decodingError
	}

	service.accessor.client.logger.Info(accessTokenIssuedMessageConstant, zap.String(logFieldUserNameConstant, userName), zap.Int(logFieldExpiresInConstant, accessToken.ExpiresIn))
	return accessToken, nil
}

func (service *UserService) requireUser(executionContext context.Context, userName string) error {
	userExists, existsError := service.Exists(executionContext, userName)
	if existsError != nil {
		return existsError
	}
	if !userExists {
		return fmt.Errorf(userMissingErrorTemplateConstant, userName, ErrResourceNotFound)
	}
	return nil
}

func (service *UserService) updateUser(executionContext context.Context, userName string, userRecord map[string]any) error {
	response, executionError := service.accessor.client.executeJSON(executionContext, http.MethodPost, resourcePath(securityUsersPathSegmentConstant, userName), userRecord)
	if executionError != nil {
		return executionError
	}
	if response.statusCode != http.StatusOK {
		return service.accessor.remoteError(OperationUpdate, userName, response)
	}
	return nil
}

func appendGroup(existingGroups any, groupName string) ([]any, bool) {
	groupList, _ := existingGroups.([]any)
	updatedGroups := make([]any, 0, len(groupList)+1)
	for _, existingGroup := range groupList {
		if existingGroupName, isString := existingGroup.(string); isString && existingGroupName == groupName {
			return groupList, false
		}
		updatedGroups = append(updatedGroups, existingGroup)
	}
	return append(updatedGroups, groupName), true
}

func selectNonEmpty(candidateValue string, fallbackValue string) string {
	trimmedValue := strings.TrimSpace(candidateValue)
	if len(trimmedValue) > 0 {
		return trimmedValue
	}
	return fallbackValue
}
