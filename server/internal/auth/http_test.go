package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFromContext(r.Context())
		_, _ = w.Write([]byte(u))
	})
}

func testPolicy() HTTPPolicy {
	return HTTPPolicy{
		Mode:       "apikey",
		Header:     "x-api-key",
		Key:        "secret",
		RoleHeader: "x-user-role",
		UserHeader: "x-user-name",
	}
}

func serve(h http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHTTPPolicy_AllowsPermittedRole(t *testing.T) {
	h := testPolicy().Require(ReadRoles, echoUser())
	for _, role := range []string{"admin", "user", "Admin"} {
		rr := serve(h, map[string]string{"x-api-key": "secret", "x-user-role": role, "x-user-name": "alice"})
		if rr.Code != http.StatusOK {
			t.Errorf("role %q: status %d, want 200", role, rr.Code)
		}
		if rr.Body.String() != "alice" {
			t.Errorf("role %q: user %q, want alice", role, rr.Body.String())
		}
	}
}

func TestHTTPPolicy_RejectsOtherRole(t *testing.T) {
	h := testPolicy().Require([]Role{RoleAdmin}, echoUser())
	rr := serve(h, map[string]string{"x-api-key": "secret", "x-user-role": "user"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rr.Code)
	}
	rr = serve(h, map[string]string{"x-api-key": "secret"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("missing role: got %d, want 403", rr.Code)
	}
}

func TestHTTPPolicy_RejectsBadKey(t *testing.T) {
	h := testPolicy().Require(ReadRoles, echoUser())
	rr := serve(h, map[string]string{"x-api-key": "wrong", "x-user-role": "admin"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q", ct)
	}
}

func TestHTTPPolicy_DisabledPassesThrough(t *testing.T) {
	p := testPolicy()
	p.Mode = "none"
	h := p.Require(ReadRoles, echoUser())
	rr := serve(h, map[string]string{"x-user-name": "bob"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if rr.Body.String() != "bob" {
		t.Errorf("user: got %q, want bob", rr.Body.String())
	}
}

func TestUserFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserFromContext(req.Context()); ok {
		t.Error("expected no user in a bare context")
	}
}
