package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sakif/chat-memo/internal/apperror"
)

// Validation limits. Lengths count characters, not bytes: names are often
// Japanese.
const (
	MaxTitleLength    = 200
	MaxTagNameLength  = 20
	MaxTagsPerUser    = 30
	MaxAINameLength   = 50
	MaxCustomAINames  = 20
	MaxUserNameLength = 50
)

// requiredText trims value and checks it is 1..max characters long.
func requiredText(field, label, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperror.ValidationFailed(field, label+" is required")
	}
	if utf8.RuneCountInString(value) > max {
		return "", apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", label, max))
	}
	return value, nil
}

// requiredID rejects blank ids before any query runs.
func requiredID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	return value, nil
}
