package favorites

import (
	"strings"

	"github.com/liubaotong/favsync/internal/apperr"
)

// ValidateText rejects blank or whitespace-only item text.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperr.EmptyField("text")
	}
	return nil
}

// ValidateName rejects blank category and tag names. It returns the trimmed
// name.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.EmptyField("name")
	}
	return name, nil
}
