package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func authHandler(token string, nextCalled *bool) http.Handler {
	return Auth(token)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*nextCalled = true
	}))
}

func TestAuthRejectsMissingAndWrongTokens(t *testing.T) {
	cases := map[string]string{
		"no header":     "",
		"wrong scheme":  "Basic c2VjcmV0",
		"wrong token":   "Bearer not-the-token",
		"empty bearer":  "Bearer ",
		"prefix only":   "Bearer secre",
		"token trailer": "Bearer secretx",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			nextCalled := false
			request := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
			if header != "" {
				request.Header.Set("Authorization", header)
			}
			recorder := httptest.NewRecorder()
			authHandler("secret", &nextCalled).ServeHTTP(recorder, request)

			if nextCalled {
				t.Fatal("expected request to be rejected")
			}
			if recorder.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
			}
			if body := recorder.Body.String(); !strings.Contains(body, `"code":"unauthorized"`) || !strings.Contains(body, `"request_id"`) {
				t.Fatalf("unexpected error body %q", body)
			}
		})
	}
}

func TestAuthAcceptsValidToken(t *testing.T) {
	nextCalled := false
	request := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	request.Header.Set("Authorization", "Bearer secret")
	authHandler("secret", &nextCalled).ServeHTTP(httptest.NewRecorder(), request)

	if !nextCalled {
		t.Fatal("expected request to pass")
	}
}

func TestAuthSkipsHealthAndDisabledConfig(t *testing.T) {
	nextCalled := false
	authHandler("secret", &nextCalled).ServeHTTP(
		httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !nextCalled {
		t.Fatal("expected health to stay open without credentials")
	}

	nextCalled = false
	authHandler("", &nextCalled).ServeHTTP(
		httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/jobs", nil))
	if !nextCalled {
		t.Fatal("expected an empty configured token to disable the check")
	}
}
