// Package artifactorytest provides an in-memory registry server for exercising the artifactory clients.
package artifactorytest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

// Credentials the server accepts in the authentication header.
const (
	Token          = "test-registry-token"
	AuthHeaderName = "X-JFrog-Art-Api"
)

const (
	apiRootPathConstant           = "/artifactory/api"
	namePathVariableConstant      = "name"
	repositoryRouteConstant       = "/repositories/{name}"
	groupRouteConstant            = "/security/groups/{name}"
	permissionRouteConstant       = "/security/permissions/{name}"
	userRouteConstant             = "/security/users/{name}"
	apiKeyRouteConstant           = "/security/apiKey"
	tokenRouteConstant            = "/security/token"
	overrideKeyTemplateConstant   = "%s %s"
	apiKeyTemplateConstant        = "api-key-%s-%d"
	accessTokenTemplateConstant   = "access-token-%s-%d"
	passwordFieldConstant         = "password"
	groupsFieldConstant           = "groups"
	userNameFormFieldConstant     = "username"
	expiresInFormFieldConstant    = "expires_in"
	unauthorizedBodyConstant      = `{"errors":[{"status":401,"message":"Bad credentials"}]}`
	notFoundBodyTemplateConstant  = `{"errors":[{"status":404,"message":"%s not found"}]}`
	repositoryCreatedBodyConstant = "Successfully created repository"
	repositoryRemovedBodyConstant = "Repository has been removed successfully"
)

// RecordedRequest captures a request observed by the server.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type responseOverride struct {
	statusCode int
	body       string
}

// Server emulates the repository and security endpoints of the registry.
type Server struct {
	httpServer       *httptest.Server
	mutex            sync.Mutex
	repositories     map[string]map[string]any
	groups           map[string]map[string]any
	permissions      map[string]map[string]any
	users            map[string]map[string]any
	overrides        map[string]responseOverride
	requests         []RecordedRequest
	issuedCount      int
	TokenStatusCode  int
	APIKeyStatusCode int
}

// NewServer starts a server that is closed when the test finishes.
func NewServer(testInstance testing.TB) *Server {
	server := &Server{
		repositories:     map[string]map[string]any{},
		groups:           map[string]map[string]any{},
		permissions:      map[string]map[string]any{},
		users:            map[string]map[string]any{},
		overrides:        map[string]responseOverride{},
		TokenStatusCode:  http.StatusOK,
		APIKeyStatusCode: http.StatusCreated,
	}

	router := mux.NewRouter()
	apiRouter := router.PathPrefix(apiRootPathConstant).Subrouter()
	apiRouter.Use(server.recordingMiddleware)

	server.registerCollection(apiRouter, repositoryRouteConstant, server.repositories, http.StatusOK, repositoryCreatedBodyConstant, repositoryRemovedBodyConstant)
	server.registerCollection(apiRouter, groupRouteConstant, server.groups, http.StatusCreated, "", "")
	server.registerCollection(apiRouter, permissionRouteConstant, server.permissions, http.StatusCreated, "", "")
	server.registerCollection(apiRouter, userRouteConstant, server.users, http.StatusCreated, "", "")
	apiRouter.HandleFunc(userRouteConstant, server.handleUserUpdate).Methods(http.MethodPost)
	apiRouter.HandleFunc(apiKeyRouteConstant, server.handleAPIKey).Methods(http.MethodPost)
	apiRouter.HandleFunc(tokenRouteConstant, server.handleToken).Methods(http.MethodPost)

	server.httpServer = httptest.NewServer(router)
	testInstance.Cleanup(server.httpServer.Close)

	return server
}

// BaseURL returns the API root clients should be configured with.
func (server *Server) BaseURL() string {
	return server.httpServer.URL + apiRootPathConstant + "/"
}

// HTTPClient returns the client bound to the server.
func (server *Server) HTTPClient() *http.Client {
	return server.httpServer.Client()
}

// SeedRepository registers an existing repository.
func (server *Server) SeedRepository(repositoryName string) {
	server.seed(server.repositories, repositoryName, map[string]any{"key": repositoryName})
}

// SeedGroup registers an existing group.
func (server *Server) SeedGroup(groupName string) {
	server.seed(server.groups, groupName, map[string]any{"name": groupName})
}

// SeedPermission registers an existing permission target.
func (server *Server) SeedPermission(permissionName string) {
	server.seed(server.permissions, permissionName, map[string]any{"name": permissionName})
}

// SeedUser registers an existing user belonging to the provided groups.
func (server *Server) SeedUser(userName string, groups ...string) {
	groupValues := make([]any, 0, len(groups))
	for _, groupName := range groups {
		groupValues = append(groupValues, groupName)
	}
	server.seed(server.users, userName, map[string]any{"name": userName, "email": userName + "@example.com", groupsFieldConstant: groupValues})
}

// Override forces the response for a method and path relative to the API root, e.g. "PUT", "/security/groups/team".
func (server *Server) Override(method string, path string, statusCode int, body string) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.overrides[fmt.Sprintf(overrideKeyTemplateConstant, method, path)] = responseOverride{statusCode: statusCode, body: body}
}

// Requests returns a copy of the recorded requests.
func (server *Server) Requests() []RecordedRequest {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return append([]RecordedRequest{}, server.requests...)
}

// CountRequests counts recorded requests with the method whose path starts with the prefix.
func (server *Server) CountRequests(method string, pathPrefix string) int {
	matchingRequests := 0
	for _, recordedRequest := range server.Requests() {
		if recordedRequest.Method == method && strings.HasPrefix(recordedRequest.Path, pathPrefix) {
			matchingRequests++
		}
	}
	return matchingRequests
}

// Repository returns the stored repository record.
func (server *Server) Repository(repositoryName string) (map[string]any, bool) {
	return server.lookup(server.repositories, repositoryName)
}

// Group returns the stored group record.
func (server *Server) Group(groupName string) (map[string]any, bool) {
	return server.lookup(server.groups, groupName)
}

// Permission returns the stored permission record.
func (server *Server) Permission(permissionName string) (map[string]any, bool) {
	return server.lookup(server.permissions, permissionName)
}

// User returns the stored user record including its password.
func (server *Server) User(userName string) (map[string]any, bool) {
	return server.lookup(server.users, userName)
}

func (server *Server) seed(collection map[string]map[string]any, resourceName string, record map[string]any) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	collection[resourceName] = record
}

func (server *Server) lookup(collection map[string]map[string]any, resourceName string) (map[string]any, bool) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	record, found := collection[resourceName]
	if !found {
		return nil, false
	}
	duplicatedRecord := make(map[string]any, len(record))
	for recordKey, recordValue := range record {
		duplicatedRecord[recordKey] = recordValue
	}
	return duplicatedRecord, true
}

func (server *Server) recordingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		requestBody, _ := io.ReadAll(request.Body)
		request.Body = io.NopCloser(strings.NewReader(string(requestBody)))
		relativePath := strings.TrimPrefix(request.URL.Path, apiRootPathConstant)

		server.mutex.Lock()
		server.requests = append(server.requests, RecordedRequest{
			Method: request.Method,
			Path:   relativePath,
			Header: request.Header.Clone(),
			Body:   requestBody,
		})
		override, overridden := server.overrides[fmt.Sprintf(overrideKeyTemplateConstant, request.Method, relativePath)]
		server.mutex.Unlock()

		if overridden {
			writeBody(responseWriter, override.statusCode, override.body)
			return
		}

		if _, _, basicProvided := request.BasicAuth(); !basicProvided && request.Header.Get(AuthHeaderName) != Token {
			writeBody(responseWriter, http.StatusUnauthorized, unauthorizedBodyConstant)
			return
		}

		next.ServeHTTP(responseWriter, request)
	})
}

func (server *Server) registerCollection(router *mux.Router, route string, collection map[string]map[string]any, createdStatusCode int, createdBody string, removedBody string) {
	router.HandleFunc(route, func(responseWriter http.ResponseWriter, request *http.Request) {
		resourceName := mux.Vars(request)[namePathVariableConstant]
		record, found := server.lookup(collection, resourceName)
		if !found {
			writeBody(responseWriter, http.StatusNotFound, fmt.Sprintf(notFoundBodyTemplateConstant, resourceName))
			return
		}
		delete(record, passwordFieldConstant)
		writeJSON(responseWriter, http.StatusOK, record)
	}).Methods(http.MethodGet)

	router.HandleFunc(route, func(responseWriter http.ResponseWriter, request *http.Request) {
		resourceName := mux.Vars(request)[namePathVariableConstant]
		record := map[string]any{}
		if decodingError := json.NewDecoder(request.Body).Decode(&record); decodingError != nil {
			writeBody(responseWriter, http.StatusBadRequest, decodingError.Error())
			return
		}
		server.seed(collection, resourceName, record)
		writeBody(responseWriter, createdStatusCode, createdBody)
	}).Methods(http.MethodPut)

	router.HandleFunc(route, func(responseWriter http.ResponseWriter, request *http.Request) {
		resourceName := mux.Vars(request)[namePathVariableConstant]
		server.mutex.Lock()
		_, found := collection[resourceName]
		delete(collection, resourceName)
		server.mutex.Unlock()
		if !found {
			writeBody(responseWriter, http.StatusNotFound, fmt.Sprintf(notFoundBodyTemplateConstant, resourceName))
			return
		}
		writeBody(responseWriter, http.StatusOK, removedBody)
	}).Methods(http.MethodDelete)
}

func (server *Server) handleUserUpdate(responseWriter http.ResponseWriter, request *http.Request) {
	userName := mux.Vars(request)[namePathVariableConstant]
	existingRecord, found := server.lookup(server.users, userName)
	if !found {
		writeBody(responseWriter, http.StatusNotFound, fmt.Sprintf(notFoundBodyTemplateConstant, userName))
		return
	}

	updatedRecord := map[string]any{}
	if decodingError := json.NewDecoder(request.Body).Decode(&updatedRecord); decodingError != nil {
		writeBody(responseWriter, http.StatusBadRequest, decodingError.Error())
		return
	}
	if password, hasPassword := existingRecord[passwordFieldConstant]; hasPassword {
		updatedRecord[passwordFieldConstant] = password
	}
	server.seed(server.users, userName, updatedRecord)
	writeBody(responseWriter, http.StatusOK, "")
}

func (server *Server) handleAPIKey(responseWriter http.ResponseWriter, request *http.Request) {
	userName, password, basicProvided := request.BasicAuth()
	record, found := server.lookup(server.users, userName)
	if !basicProvided || !found || record[passwordFieldConstant] != password {
		writeBody(responseWriter, http.StatusUnauthorized, unauthorizedBodyConstant)
		return
	}
	writeJSON(responseWriter, server.APIKeyStatusCode, map[string]any{"apiKey": fmt.Sprintf(apiKeyTemplateConstant, userName, server.nextIssueIndex())})
}

func (server *Server) handleToken(responseWriter http.ResponseWriter, request *http.Request) {
	requestBody, _ := io.ReadAll(request.Body)
	formValues, parseError := url.ParseQuery(string(requestBody))
	if parseError != nil {
		writeBody(responseWriter, http.StatusBadRequest, parseError.Error())
		return
	}
	userName := formValues.Get(userNameFormFieldConstant)
	expiresIn, _ := strconv.Atoi(formValues.Get(expiresInFormFieldConstant))
	if _, found := server.lookup(server.users, userName); !found {
		writeBody(responseWriter, http.StatusNotFound, fmt.Sprintf(notFoundBodyTemplateConstant, userName))
		return
	}
	writeJSON(responseWriter, server.TokenStatusCode, map[string]any{
		"access_token": fmt.Sprintf(accessTokenTemplateConstant, userName, server.nextIssueIndex()),
		"expires_in":   expiresIn,
		"scope":        "member-of-groups:readers api:*",
		"token_type":   "Bearer",
	})
}

func (server *Server) nextIssueIndex() int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.issuedCount++
	return server.issuedCount
}

func writeJSON(responseWriter http.ResponseWriter, statusCode int, payload any) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(statusCode)
	_ = json.NewEncoder(responseWriter).Encode(payload)
}

func writeBody(responseWriter http.ResponseWriter, statusCode int, body string) {
	responseWriter.WriteHeader(statusCode)
	_, _ = io.WriteString(responseWriter, body)
}
