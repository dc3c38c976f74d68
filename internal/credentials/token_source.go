package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultTokenSource reads the registry token from the ART_TOKEN environment variable.
const DefaultTokenSource = "env:ART_TOKEN"

const (
	sourceKindSeparatorConstant         = ":"
	sourceEmptyReasonConstant           = "registry token source is empty"
	sourceLocationMissingReasonConstant = "%s source requires a location"
	sourceKindUnknownReasonConstant     = "unknown source kind %q"
	sourceErrorTemplateConstant         = "invalid registry token source %q: %s"
	variableUnsetTemplateConstant       = "%w: variable %s is unset or blank"
	tokenFileBlankTemplateConstant      = "%w: file %s holds no token"
	tokenFileReadTemplateConstant       = "registry token file %s: %w"
)

// ErrTokenUnavailable indicates the configured source produced no registry token.
var ErrTokenUnavailable = errors.New("registry token unavailable")

// SourceKind names where a registry token is read from.
type SourceKind string

const (
	// SourceKindEnvironment reads the token from an environment variable.
	SourceKindEnvironment SourceKind = "env"
	// SourceKindFile reads the token from a file, typically a mounted secret.
	SourceKindFile SourceKind = "file"
)

// Source points at a registry token.
type Source struct {
	Kind     SourceKind
	Location string
}

// String renders the source in the kind:location form accepted by ParseSource.
func (source Source) String() string {
	return string(source.Kind) + sourceKindSeparatorConstant + source.Location
}

// SourceError reports a token source declaration that cannot be used.
type SourceError struct {
	Value  string
	Reason string
}

func (sourceError *SourceError) Error() string {
	return fmt.Sprintf(sourceErrorTemplateConstant, sourceError.Value, sourceError.Reason)
}

// ParseSource interprets a kind:location declaration. A value without a kind names an environment variable.
func ParseSource(declaration string) (Source, error) {
	trimmedDeclaration := strings.TrimSpace(declaration)
	if len(trimmedDeclaration) == 0 {
		return Source{}, &SourceError{Value: declaration, Reason: sourceEmptyReasonConstant}
	}

	kindText, location, hasKind := strings.Cut(trimmedDeclaration, sourceKindSeparatorConstant)
	if !hasKind {
		return Source{Kind: SourceKindEnvironment, Location: trimmedDeclaration}, nil
	}

	kind := SourceKind(strings.ToLower(strings.TrimSpace(kindText)))
	if kind != SourceKindEnvironment && kind != SourceKindFile {
		return Source{}, &SourceError{Value: declaration, Reason: fmt.Sprintf(sourceKindUnknownReasonConstant, kindText)}
	}

	location = strings.TrimSpace(location)
	if len(location) == 0 {
		return Source{}, &SourceError{Value: declaration, Reason: fmt.Sprintf(sourceLocationMissingReasonConstant, kind)}
	}

	return Source{Kind: kind, Location: location}, nil
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// PathExpander rewrites a file location before it is read, for example to expand "~".
type PathExpander func(path string) string

// ResolverOptions overrides the process environment and filesystem used by a Resolver.
type ResolverOptions struct {
	LookupEnvironment EnvironmentLookup
	ReadFile          FileReader
	ExpandPath        PathExpander
}

// Resolver reads registry tokens from their sources.
type Resolver struct {
	lookupEnvironment EnvironmentLookup
	readFile          FileReader
	expandPath        PathExpander
}

// NewResolver builds a Resolver, falling back to the process environment and filesystem for unset options.
func NewResolver(options ResolverOptions) *Resolver {
	resolver := &Resolver{
		lookupEnvironment: options.LookupEnvironment,
		readFile:          options.ReadFile,
		expandPath:        options.ExpandPath,
	}
	if resolver.lookupEnvironment == nil {
		resolver.lookupEnvironment = os.LookupEnv
	}
	if resolver.readFile == nil {
		resolver.readFile = os.ReadFile
	}
	if resolver.expandPath == nil {
		resolver.expandPath = func(path string) string { return path }
	}
	return resolver
}

// Resolve returns the trimmed token held by source.
func (resolver *Resolver) Resolve(executionContext context.Context, source Source) (string, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return "", contextError
	}

	switch source.Kind {
	case SourceKindEnvironment:
		return resolver.fromEnvironment(source.Location)
	case SourceKindFile:
		return resolver.fromFile(resolver.expandPath(source.Location))
	default:
		return "", &SourceError{Value: source.String(), Reason: fmt.Sprintf(sourceKindUnknownReasonConstant, source.Kind)}
	}
}

func (resolver *Resolver) fromEnvironment(variableName string) (string, error) {
	value, _ := resolver.lookupEnvironment(variableName)
	token := strings.TrimSpace(value)
	if len(token) == 0 {
		return "", fmt.Errorf(variableUnsetTemplateConstant, ErrTokenUnavailable, variableName)
	}
	return token, nil
}

func (resolver *Resolver) fromFile(filePath string) (string, error) {
	contents, readError := resolver.readFile(filePath)
	if readError != nil {
		return "", fmt.Errorf(tokenFileReadTemplateConstant, filePath, readError)
	}
	token := strings.TrimSpace(string(contents))
	if len(token) == 0 {
		return "", fmt.Errorf(tokenFileBlankTemplateConstant, ErrTokenUnavailable, filePath)
	}
	return token, nil
}
