package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

var bearerAuths map[string]string

const (
	// AuthorizationHeader is the header key to get the authorization token
	AuthorizationHeader = "authorization"
	tokenPrefix         = "Bearer "
)

// BearerAuthenticate rejects the requests without the token of the server, if any
func BearerAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			if err := authenticate("default", r.Header.Get(AuthorizationHeader)); err != nil {
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(err.Error())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate returns nil if no token is required for tokenKey or if token is valid
func authenticate(tokenKey, token string) error {
	if bearerAuths[tokenKey] == "" {
		return nil // No auth required
	}
	if token == "" {
		return fmt.Errorf("token not found")
	}
	if !strings.HasPrefix(token, tokenPrefix) {
		return fmt.Errorf(`missing "` + tokenPrefix + `" prefix`)
	}
	if strings.TrimPrefix(token, tokenPrefix) != bearerAuths[tokenKey] {
		return fmt.Errorf("invalid token")
	}
	return nil
}
