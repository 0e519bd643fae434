package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 256
	maxTenantName     = 128
)

var portalIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// normalizeEmail lowercases and validates a bare address ("a@b.c", no
// display name).
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", fmt.Errorf("%w: malformed email", domain.ErrInvalidInput)
	}
	return email, nil
}

func validatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return fmt.Errorf("%w: password shorter than %d characters", domain.ErrInvalidInput, MinPasswordLength)
	case len(password) > MaxPasswordLength:
		return fmt.Errorf("%w: password too long", domain.ErrInvalidInput)
	}
	return nil
}

func validateRole(role domain.Role) error {
	if _, ok := domain.ParseRole(string(role)); !ok {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	return nil
}

func validateTenantName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxTenantName {
		return "", fmt.Errorf("%w: tenant name must be 1-%d characters", domain.ErrInvalidInput, maxTenantName)
	}
	return name, nil
}

func validatePortalID(portalID string) error {
	if !portalIDPattern.MatchString(portalID) {
		return fmt.Errorf("%w: malformed portal id", domain.ErrInvalidInput)
	}
	return nil
}
