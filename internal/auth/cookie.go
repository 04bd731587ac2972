package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrNoCredential means the request carried no usable token.
var ErrNoCredential = errors.New("no credential")

// TokenFromRequest returns the token from the named cookie, or from an
// "Authorization: Bearer" header when the cookie is absent.
// Cookies are selected by name; a malformed Cookie header counts as missing.
func TokenFromRequest(r *http.Request, cookieName string) (string, error) {
	if c, err := r.Cookie(cookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v, nil
		}
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoCredential
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", ErrNoCredential
	}
	return strings.TrimSpace(parts[1]), nil
}
