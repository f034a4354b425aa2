package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseFloats(t *testing.T) {
	v, err := parseFloats("10.0, 45.0,10.5,45.5")
	if err != nil {
		t.Fatal(err)
	}
	if v != [4]float64{10, 45, 10.5, 45.5} {
		t.Errorf("wrong values %v", v)
	}
	for _, s := range []string{"", "1,2,3", "1,2,3,4,5", "1,2,x,4"} {
		if _, err := parseFloats(s); err == nil {
			t.Errorf("%q: expecting an error", s)
		}
	}
}

func TestBearerAuthenticate(t *testing.T) {
	defer func() { bearerAuths = nil }()
	h := BearerAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	call := func(method, token string) int {
		req := httptest.NewRequest(method, "/catalog/profiles", nil)
		if token != "" {
			req.Header.Set(AuthorizationHeader, token)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if code := call("GET", ""); code != http.StatusOK {
		t.Errorf("no token required: expecting 200, got %d", code)
	}

	bearerAuths = map[string]string{"default": "secret"}
	tests := []struct {
		method string
		token  string
		status int
	}{
		{"GET", "Bearer secret", http.StatusOK},
		{"GET", "", http.StatusForbidden},
		{"GET", "secret", http.StatusForbidden},
		{"GET", "Bearer wrong", http.StatusForbidden},
		{"OPTIONS", "", http.StatusOK},
	}
	for _, tt := range tests {
		if code := call(tt.method, tt.token); code != tt.status {
			t.Errorf("%s %q: expecting %d, got %d", tt.method, tt.token, tt.status, code)
		}
	}
}
