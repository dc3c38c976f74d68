package settings

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/temirov/tman/internal/artifactory"
)

// DefaultSettingsFileName is the settings file consulted when no path is configured.
const DefaultSettingsFileName = "settings.yaml"

const (
	settingsPathRequiredMessageConstant    = "settings file path must be provided"
	settingsEmptyDocumentTemplateConstant  = "settings file %s does not declare a repository"
	settingsNotMappingTemplateConstant     = "settings file %s must contain a mapping of repository names"
	settingsRepositoryNotMappingTemplate   = "settings for repository %s must be a mapping"
	settingsRepositoryNameMissingTemplate  = "settings file %s declares an empty repository name"
	settingsReadErrorTemplateConstant      = "failed to read settings file %s: %w"
	settingsParseErrorTemplateConstant     = "failed to parse settings file %s: %w"
	settingsDecodeErrorTemplateConstant    = "failed to decode settings for repository %s: %w"
	settingsRepositoryTypeRequiredTemplate = "settings for repository %s must define repo_type"
	settingsMapstructureTagNameConstant    = "mapstructure"
	settingsParticipantsSeparatorConstant  = ","
	settingsBooleanInvalidTemplateConstant = "%q is not a boolean value"
)

// ErrSettingsNotFound indicates the settings file does not exist.
var ErrSettingsNotFound = errors.New("settings file not found")

// RepositorySettings describes the repository declared by the settings file.
type RepositorySettings struct {
	Name           string                     `mapstructure:"-"`
	Participants   []string                   `mapstructure:"participants"`
	Responsible    string                     `mapstructure:"responsible"`
	TicketID       string                     `mapstructure:"ticket_id"`
	RepositoryType artifactory.RepositoryType `mapstructure:"repo_type"`
	CI             bool                       `mapstructure:"ci"`
}

// Load reads the settings file and returns the first repository declared in document order.
func Load(filePath string) (RepositorySettings, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return RepositorySettings{}, errors.New(settingsPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return RepositorySettings{}, fmt.Errorf(settingsReadErrorTemplateConstant, trimmedPath, ErrSettingsNotFound)
		}
		return RepositorySettings{}, fmt.Errorf(settingsReadErrorTemplateConstant, trimmedPath, readError)
	}

	return Parse(trimmedPath, contentBytes)
}

// Parse decodes settings content. The source name is used in error messages only.
func Parse(sourceName string, contentBytes []byte) (RepositorySettings, error) {
	var document yaml.Node
	if unmarshalError := yaml.Unmarshal(contentBytes, &document); unmarshalError != nil {
		return RepositorySettings{}, fmt.Errorf(settingsParseErrorTemplateConstant, sourceName, unmarshalError)
	}

	if document.Kind != yaml.DocumentNode || len(document.Content) == 0 {
		return RepositorySettings{}, fmt.Errorf(settingsEmptyDocumentTemplateConstant, sourceName)
	}

	rootNode := document.Content[0]
	if rootNode.Kind != yaml.MappingNode {
		return RepositorySettings{}, fmt.Errorf(settingsNotMappingTemplateConstant, sourceName)
	}
	if len(rootNode.Content) < 2 {
		return RepositorySettings{}, fmt.Errorf(settingsEmptyDocumentTemplateConstant, sourceName)
	}

	repositoryName := strings.TrimSpace(rootNode.Content[0].Value)
	if len(repositoryName) == 0 {
		return RepositorySettings{}, fmt.Errorf(settingsRepositoryNameMissingTemplate, sourceName)
	}

	valueNode := rootNode.Content[1]
	if valueNode.Kind != yaml.MappingNode {
		return RepositorySettings{}, fmt.Errorf(settingsRepositoryNotMappingTemplate, repositoryName)
	}

	var rawSettings map[string]any
	if decodeError := valueNode.Decode(&rawSettings); decodeError != nil {
		return RepositorySettings{}, fmt.Errorf(settingsDecodeErrorTemplateConstant, repositoryName, decodeError)
	}

	repositorySettings := RepositorySettings{}
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			booleanDecodeHook(),
			mapstructure.StringToSliceHookFunc(settingsParticipantsSeparatorConstant),
		),
		WeaklyTypedInput: true,
		Result:           &repositorySettings,
		TagName:          settingsMapstructureTagNameConstant,
	})
	if decoderError != nil {
		return RepositorySettings{}, fmt.Errorf(settingsDecodeErrorTemplateConstant, repositoryName, decoderError)
	}
	if decodeError := decoder.Decode(rawSettings); decodeError != nil {
		return RepositorySettings{}, fmt.Errorf(settingsDecodeErrorTemplateConstant, repositoryName, decodeError)
	}

	if len(strings.TrimSpace(string(repositorySettings.RepositoryType))) == 0 {
		return RepositorySettings{}, fmt.Errorf(settingsRepositoryTypeRequiredTemplate, repositoryName)
	}

	repositoryType, repositoryTypeError := artifactory.ParseRepositoryType(string(repositorySettings.RepositoryType))
	if repositoryTypeError != nil {
		return RepositorySettings{}, fmt.Errorf(settingsDecodeErrorTemplateConstant, repositoryName, repositoryTypeError)
	}

	repositorySettings.Name = repositoryName
	repositorySettings.RepositoryType = repositoryType
	repositorySettings.Participants = normalizeParticipants(repositorySettings.Participants)
	repositorySettings.Responsible = strings.TrimSpace(repositorySettings.Responsible)
	repositorySettings.TicketID = strings.TrimSpace(repositorySettings.TicketID)

	return repositorySettings, nil
}

// booleanDecodeHook accepts yes/no and on/off spellings in addition to the values understood by strconv.ParseBool.
func booleanDecodeHook() mapstructure.DecodeHookFuncType {
	return func(sourceType reflect.Type, targetType reflect.Type, data any) (any, error) {
		if sourceType == nil || sourceType.Kind() != reflect.String || targetType.Kind() != reflect.Bool {
			return data, nil
		}
		normalizedValue := strings.ToLower(strings.TrimSpace(data.(string)))
		switch normalizedValue {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off", "":
			return false, nil
		}
		parsedValue, parseError := strconv.ParseBool(normalizedValue)
		if parseError != nil {
			return nil, fmt.Errorf(settingsBooleanInvalidTemplateConstant, data)
		}
		return parsedValue, nil
	}
}

func normalizeParticipants(participants []string) []string {
	normalized := make([]string, 0, len(participants))
	for _, participant := range participants {
		trimmedParticipant := strings.TrimSpace(participant)
		if len(trimmedParticipant) == 0 {
			continue
		}
		normalized = append(normalized, trimmedParticipant)
	}
	return normalized
}
