package service

import (
	"fmt"
	"strings"

	"github.com/chainsocial/social-api/internal/core/domain"
)

// ValidateUsername checks the username rules. Every rule is evaluated; the
// first violation in rule order is returned.
func ValidateUsername(username string) error {
	var errs []error

	if username == "" {
		errs = append(errs, fmt.Errorf("%w: username must not be empty", domain.ErrInvalidUsername))
	}
	if strings.HasPrefix(username, "_") || strings.HasSuffix(username, "_") {
		errs = append(errs, fmt.Errorf("%w: username must not start or end with an underscore", domain.ErrInvalidUsername))
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			errs = append(errs, fmt.Errorf("%w: username may only contain lowercase letters, digits and underscores", domain.ErrInvalidUsername))
			break
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func isUsernameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}
