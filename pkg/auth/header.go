package auth

import "net/http"

// HeaderUser carries the caller identity in header mode.
const HeaderUser = "X-Auth-User"

// HeaderProvider trusts the X-Auth-User header set by the fronting proxy.
type HeaderProvider struct {
	allowedDomain string
}

func NewHeaderProvider(allowedDomain string) *HeaderProvider {
	return &HeaderProvider{allowedDomain: allowedDomain}
}

func (p *HeaderProvider) Resolve(r *http.Request) (Identity, error) {
	value := r.Header.Get(HeaderUser)
	if value == "" {
		return Identity{}, unauthenticated("Missing " + HeaderUser + " header")
	}
	return handleFromEmail(value, p.allowedDomain)
}
