package auth

import "net/http"

// Authenticator checks bearer tokens against the admin key. The key may be
// configured in plain text or as a bcrypt hash produced by HashAPIKey.
type Authenticator struct {
	adminKey string
	hashed   bool
}

// NewAuthenticator creates an Authenticator for adminKey.
func NewAuthenticator(adminKey string) *Authenticator {
	return &Authenticator{adminKey: adminKey, hashed: IsHashed(adminKey)}
}

// AuthResult contains the result of an authentication attempt. Status is
// the HTTP status to reply with when Authenticated is false.
type AuthResult struct {
	Authenticated bool
	Status        int
	Error         string
}

// Authenticate checks the Authorization header of a request.
func (a *Authenticator) Authenticate(authHeader string) AuthResult {
	token := ExtractBearerToken(authHeader)
	if token == "" {
		return AuthResult{Status: http.StatusUnauthorized, Error: "missing bearer token"}
	}
	if a.adminKey == "" {
		return AuthResult{Status: http.StatusForbidden, Error: "write access is disabled"}
	}

	var ok bool
	if a.hashed {
		ok = VerifyAPIKey(token, a.adminKey)
	} else {
		ok = VerifyAPIKeyConstantTime(token, a.adminKey)
	}
	if !ok {
		return AuthResult{Status: http.StatusForbidden, Error: "invalid token"}
	}
	return AuthResult{Authenticated: true}
}
