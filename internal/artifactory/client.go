package artifactory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	baseURLFieldConstant                   = "registry.base_url"
	tokenFieldConstant                     = "registry.token"
	defaultAuthHeaderNameConstant          = "X-JFrog-Art-Api"
	acceptHeaderNameConstant               = "Accept"
	contentTypeHeaderNameConstant          = "Content-Type"
	jsonContentTypeConstant                = "application/json"
	formContentTypeConstant                = "application/x-www-form-urlencoded"
	pathSeparatorConstant                  = "/"
	baseURLMissingErrorMessageConstant     = "registry base URL must be provided"
	tokenMissingErrorMessageConstant       = "registry token must be provided"
	baseURLParseErrorTemplateConstant      = "invalid registry base URL %q: %w"
	requestCreationErrorTemplateConstant   = "unable to build %s request for %s: %w"
	requestExecutionErrorTemplateConstant  = "%s %s request failed: %w"
	responseReadErrorTemplateConstant      = "unable to read %s %s response: %w"
	payloadEncodingErrorTemplateConstant   = "unable to encode %s payload: %w"
	responseDecodingErrorTemplateConstant  = "unable to decode %s response: %w"
	requestCompletedMessageConstant        = "registry request completed"
	logFieldMethodConstant                 = "method"
	logFieldPathConstant                   = "path"
	logFieldStatusCodeConstant             = "status_code"
	logFieldResponseSizeConstant           = "response_bytes"
	logFieldResourceKindConstant           = "resource_kind"
	logFieldResourceNameConstant           = "resource_name"
	logFieldUserNameConstant               = "user_name"
	logFieldGroupNameConstant              = "group_name"
	repositoriesPathSegmentConstant        = "repositories"
	securityGroupsPathSegmentConstant      = "security/groups"
	securityPermissionsPathSegmentConstant = "security/permissions"
	securityUsersPathSegmentConstant       = "security/users"
	securityAPIKeyPathConstant             = "security/apiKey"
	securityTokenPathConstant              = "security/token"
)

// HTTPClient executes HTTP requests against the registry.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// ClientConfiguration describes how to reach and authenticate against the registry.
type ClientConfiguration struct {
	BaseURL        string
	Token          string
	AuthHeaderName string
}

// StatusPolicy records the HTTP status codes a resource type reports for successful calls.
type StatusPolicy struct {
	Exists int
	Create int
	Remove int
}

// Status policies per resource type. Repositories answer creation with 200, security entities with 201.
var (
	RepositoryStatusPolicy = StatusPolicy{Exists: http.StatusOK, Create: http.StatusOK, Remove: http.StatusOK}
	GroupStatusPolicy      = StatusPolicy{Exists: http.StatusOK, Create: http.StatusCreated, Remove: http.StatusOK}
	PermissionStatusPolicy = StatusPolicy{Exists: http.StatusOK, Create: http.StatusCreated, Remove: http.StatusOK}
	UserStatusPolicy       = StatusPolicy{Exists: http.StatusOK, Create: http.StatusCreated, Remove: http.StatusOK}
)

// Client holds the endpoint, credentials, and transport shared by every resource service.
type Client struct {
	logger         *zap.Logger
	httpClient     HTTPClient
	baseURL        string
	token          string
	authHeaderName string
}

type basicCredentials struct {
	userName string
	password string
}

type registryRequest struct {
	method           string
	path             string
	body             []byte
	contentType      string
	basicCredentials *basicCredentials
}

type registryResponse struct {
	statusCode int
	body       []byte
}

// NewClient validates the configuration and constructs a Client.
func NewClient(logger *zap.Logger, httpClient HTTPClient, configuration ClientConfiguration) (*Client, error) {
	trimmedBaseURL := strings.TrimSpace(configuration.BaseURL)
	if len(trimmedBaseURL) == 0 {
		return nil, &ConfigurationError{Field: baseURLFieldConstant, Cause: errors.New(baseURLMissingErrorMessageConstant)}
	}
	if _, parseError := url.ParseRequestURI(trimmedBaseURL); parseError != nil {
		return nil, &ConfigurationError{Field: baseURLFieldConstant, Cause: fmt.Errorf(baseURLParseErrorTemplateConstant, trimmedBaseURL, parseError)}
	}

	trimmedToken := strings.TrimSpace(configuration.Token)
	if len(trimmedToken) == 0 {
		return nil, &ConfigurationError{Field: tokenFieldConstant, Cause: errors.New(tokenMissingErrorMessageConstant)}
	}

	authHeaderName := strings.TrimSpace(configuration.AuthHeaderName)
	if len(authHeaderName) == 0 {
		authHeaderName = defaultAuthHeaderNameConstant
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		logger:         logger,
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(trimmedBaseURL, pathSeparatorConstant),
		token:          trimmedToken,
		authHeaderName: authHeaderName,
	}, nil
}

// Logger exposes the client logger to resource services.
func (client *Client) Logger() *zap.Logger {
	return client.logger
}

func (client *Client) execute(executionContext context.Context, request registryRequest) (registryResponse, error) {
	var bodyReader io.Reader
	if request.body != nil {
		bodyReader = bytes.NewReader(request.body)
	}

	httpRequest, requestError := http.NewRequestWithContext(executionContext, request.method, client.endpoint(request.path), bodyReader)
	if requestError != nil {
		return registryResponse{}, fmt.Errorf(requestCreationErrorTemplateConstant, request.method, request.path, requestError)
	}

	httpRequest.Header.Set(acceptHeaderNameConstant, jsonContentTypeConstant)
	if len(request.contentType) > 0 {
		httpRequest.Header.Set(contentTypeHeaderNameConstant, request.contentType)
	}
	if request.basicCredentials != nil {
		httpRequest.SetBasicAuth(request.basicCredentials.userName, request.basicCredentials.password)
	} else {
		httpRequest.Header.Set(client.authHeaderName, client.token)
	}

	httpResponse, executionError := client.httpClient.Do(httpRequest)
	if executionError != nil {
		return registryResponse{}, fmt.Errorf(requestExecutionErrorTemplateConstant, request.method, request.path, executionError)
	}
	defer httpResponse.Body.Close()

	responseBody, readError := io.ReadAll(httpResponse.Body)
	if readError != nil {
		return registryResponse{}, fmt.Errorf(responseReadErrorTemplateConstant, request.method, request.path, readError)
	}

	client.logger.Debug(
		requestCompletedMessageConstant,
		zap.String(logFieldMethodConstant, request.method),
		zap.String(logFieldPathConstant, request.path),
		zap.Int(logFieldStatusCodeConstant, httpResponse.StatusCode),
		zap.Int(logFieldResponseSizeConstant, len(responseBody)),
	)

	return registryResponse{statusCode: httpResponse.StatusCode, body: responseBody}, nil
}

func (client *Client) executeJSON(executionContext context.Context, method string, path string, payload any) (registryResponse, error) {
	encodedPayload, encodingError := json.Marshal(payload)
	if encodingError != nil {
		return registryResponse{}, fmt.Errorf(payloadEncodingErrorTemplateConstant, path, encodingError)
	}

	return client.execute(executionContext, registryRequest{
		method:      method,
		path:        path,
		body:        encodedPayload,
		contentType: jsonContentTypeConstant,
	})
}

func (client *Client) endpoint(path string) string {
	return client.baseURL + pathSeparatorConstant + strings.TrimLeft(path, pathSeparatorConstant)
}

func resourcePath(collectionPath string, resourceName string) string {
	return collectionPath + pathSeparatorConstant + url.PathEscape(resourceName)
}

func decodeResponse(path string, response registryResponse, target any) error {
	if decodingError := json.Unmarshal(response.body, target); decodingError != nil {
		return fmt.Errorf(responseDecodingErrorTemplateConstant, path, decodingError)
	}
	return nil
}
