package authsdk

import (
	"net/mail"
	"regexp"
	"strings"
)

const (
	bootstrapRequiredReason = "required"
	bootstrapOnlyAlphanum   = "must only contain a-z, A-Z, 0-9, _, - or ."
)

var reTenantName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Validate checks if the bootstrap request fields are valid.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (b BootstrapRequest) Validate() map[string]string {
	errs := make(map[string]string)

	b.validateTenantName(errs)
	b.validateEmail(errs)
	b.validatePassword(errs)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (b BootstrapRequest) validateTenantName(errs map[string]string) {
	name := strings.TrimSpace(b.TenantName)
	switch {
	case name == "":
		errs["tenant_name"] = bootstrapRequiredReason
	case len(name) > 64:
		errs["tenant_name"] = "too long (max 64)"
	case !reTenantName.MatchString(name):
		errs["tenant_name"] = bootstrapOnlyAlphanum
	}
}

func (b BootstrapRequest) validateEmail(errs map[string]string) {
	email := strings.TrimSpace(b.AdminEmail)
	if email == "" {
		errs["admin_email"] = bootstrapRequiredReason
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs["admin_email"] = "must be a plain email address"
	}
}

func (b BootstrapRequest) validatePassword(errs map[string]string) {
	pw := b.AdminPassword
	switch {
	case pw == "":
		errs["admin_password"] = bootstrapRequiredReason
	case len(pw) < 8:
		errs["admin_password"] = "too short (min 8)"
	case len(pw) > 128:
		errs["admin_password"] = "too long (max 128)"
	}
}
