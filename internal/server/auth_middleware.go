package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

// Authenticator decides whether a feed connection may be upgraded.
type Authenticator interface {
	Authenticate(r *http.Request) error
}

// TokenAuth accepts requests carrying Token as the token query parameter or
// as a bearer Authorization header. An empty Token accepts everything.
type TokenAuth struct {
	Token string
}

func (a TokenAuth) Authenticate(r *http.Request) error {
	if a.Token == "" {
		return nil
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.Token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
