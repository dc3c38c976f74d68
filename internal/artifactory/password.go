package artifactory

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Defaults applied to generated user passwords.
const (
	DefaultPasswordLength  = 12
	DefaultPasswordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*()"
)

const (
	passwordLengthFieldConstant             = "users.password_length"
	passwordCharsetFieldConstant            = "users.password_charset"
	passwordLengthInvalidTemplateConstant   = "password length must be positive, got %d"
	passwordCharsetEmptyMessageConstant     = "password charset must not be empty"
	passwordGenerationErrorTemplateConstant = "unable to generate password: %w"
)

// PasswordGenerator produces random passwords of a fixed length from a fixed character set.
type PasswordGenerator struct {
	length       int
	charset      []rune
	randomSource io.Reader
}

// NewPasswordGenerator validates the length and character set and returns a generator backed by crypto/rand.
func NewPasswordGenerator(length int, charset string) (*PasswordGenerator, error) {
	return NewPasswordGeneratorWithSource(length, charset, rand.Reader)
}

// NewPasswordGeneratorWithSource builds a generator drawing randomness from the provided reader.
func NewPasswordGeneratorWithSource(length int, charset string, randomSource io.Reader) (*PasswordGenerator, error) {
	if length <= 0 {
		return nil, &ConfigurationError{Field: passwordLengthFieldConstant, Cause: fmt.Errorf(passwordLengthInvalidTemplateConstant, length)}
	}

	charsetRunes := uniqueRunes(charset)
	if len(charsetRunes) == 0 {
		return nil, &ConfigurationError{Field: passwordCharsetFieldConstant, Cause: errors.New(passwordCharsetEmptyMessageConstant)}
	}

	if randomSource == nil {
		randomSource = rand.Reader
	}

	return &PasswordGenerator{length: length, charset: charsetRunes, randomSource: randomSource}, nil
}

// Length returns the configured password length.
func (generator *PasswordGenerator) Length() int {
	return generator.length
}

// Generate returns a new password.
func (generator *PasswordGenerator) Generate() (string, error) {
	charsetSize := big.NewInt(int64(len(generator.charset)))
	passwordRunes := make([]rune, generator.length)
	for runeIndex := range passwordRunes {
		selectedIndex, selectionError := rand.Int(generator.randomSource, charsetSize)
		if selectionError != nil {
			return "", fmt.Errorf(passwordGenerationErrorTemplateConstant, selectionError)
		}
		passwordRunes[runeIndex] = generator.charset[selectedIndex.Int64()]
	}
	return string(passwordRunes), nil
}

func uniqueRunes(value string) []rune {
	observedRunes := make(map[rune]struct{}, len(value))
	orderedRunes := make([]rune, 0, len(value))
	for _, candidateRune := range value {
		if _, observed := observedRunes[candidateRune]; observed {
			continue
		}
		observedRunes[candidateRune] = struct{}{}
		orderedRunes = append(orderedRunes, candidateRune)
	}
	return orderedRunes
}
