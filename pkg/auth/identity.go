// Package auth resolves the caller of a request to a short user handle.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"webui-dashboard-api/pkg/config"
	"webui-dashboard-api/pkg/utils"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidIdentity = errors.New("invalid identity")
	ErrNotImplemented  = errors.New("not implemented")
	handleRegex        = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// Identity is a verified caller.
type Identity struct {
	Handle string `json:"user"`
	Email  string `json:"email,omitempty"`
}

// IdentityProvider resolves a request to a verified Identity. Failures are
// *utils.APIError values wrapping one of the package sentinels.
type IdentityProvider interface {
	Resolve(r *http.Request) (Identity, error)
}

// NewProvider returns the provider selected by cfg.AuthMode.
func NewProvider(cfg *config.Config) IdentityProvider {
	if cfg.AuthMode == config.AuthModeToken {
		return NewTokenProvider(cfg.JWTSecret, cfg.AllowedEmailDomain)
	}
	return NewHeaderProvider(cfg.AllowedEmailDomain)
}

// handleFromEmail turns "local@domain" into "local" when domain is allowed.
// A value without "@" is taken as the handle itself.
func handleFromEmail(value, allowedDomain string) (Identity, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Identity{}, unauthenticated("Missing user identity")
	}

	local, domain, hasDomain := strings.Cut(value, "@")
	if hasDomain && !strings.EqualFold(domain, allowedDomain) {
		return Identity{}, utils.NewAPIError(http.StatusForbidden, utils.CodeForbidden,
			fmt.Sprintf("Only @%s accounts are allowed", allowedDomain), ErrForbidden)
	}
	if !handleRegex.MatchString(local) {
		return Identity{}, utils.NewAPIError(http.StatusBadRequest, utils.CodeBadRequest,
			fmt.Sprintf("Invalid user identity %q", value), ErrInvalidIdentity)
	}

	id := Identity{Handle: local}
	if hasDomain {
		id.Email = local + "@" + strings.ToLower(domain)
	}
	return id, nil
}

func unauthenticated(message string) error {
	return utils.NewAPIError(http.StatusUnauthorized, utils.CodeUnauthorized, message, ErrUnauthenticated)
}
