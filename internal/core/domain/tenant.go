package domain

import (
	"fmt"
	"regexp"
)

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

const DefaultCategory = "general"

func ValidateTenantID(id string) error {
	if !tenantIDPattern.MatchString(id) {
		return WrapError(ErrInvalidInput, "validate tenant id", fmt.Errorf("tenant id %q must match %s", id, tenantIDPattern))
	}
	return nil
}
