package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

const dotenvLoadErrorTemplateConstant = "unable to load dotenv file %s: %w"

// DotenvLoader populates the process environment from a dotenv file without overriding variables that are already set.
type DotenvLoader struct {
	load func(filenames ...string) error
}

// NewDotenvLoader constructs a loader backed by godotenv.
func NewDotenvLoader() DotenvLoader {
	return DotenvLoader{load: godotenv.Load}
}

// Load reads the dotenv file. A missing file is not an error; it reports whether the file was applied.
func (loader DotenvLoader) Load(dotenvFilePath string) (bool, error) {
	trimmedPath := strings.TrimSpace(dotenvFilePath)
	if len(trimmedPath) == 0 {
		return false, nil
	}

	loadFunction := loader.load
	if loadFunction == nil {
		loadFunction = godotenv.Load
	}

	loadError := loadFunction(trimmedPath)
	if loadError == nil {
		return true, nil
	}
	if errors.Is(loadError, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf(dotenvLoadErrorTemplateConstant, trimmedPath, loadError)
}
