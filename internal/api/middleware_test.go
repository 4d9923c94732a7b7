// internal/api/middleware_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oikos-server/internal/auth"
	"oikos-server/internal/common/config"
	"oikos-server/internal/common/logger"
)

func testIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(config.AuthConfig{
		JWTSecret: "test-secret-do-not-use",
		TokenTTL:  60,
		Issuer:    "oikos-server",
	})
}

func echoUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"user_id": UserID(r)})
	}
}

func newMiddlewareServer(t *testing.T, mw mux.MiddlewareFunc) *httptest.Server {
	t.Helper()
	router := mux.NewRouter()
	router.Use(mw)
	router.HandleFunc("/whoami", echoUserHandler()).Methods("GET")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url, authorization string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// ========================== Required Auth Tests

func TestAuthMiddleware_ValidToken(t *testing.T) {
	issuer := testIssuer()
	srv := newMiddlewareServer(t, AuthMiddleware(issuer, logger.NewTestLogger(t)))

	token, err := issuer.Generate("user-1", "seller")
	require.NoError(t, err)

	resp, body := get(t, srv.URL+"/whoami", "Bearer "+token)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-1", body["user_id"])
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	srv := newMiddlewareServer(t, AuthMiddleware(testIssuer(), logger.NewTestLogger(t)))

	resp, _ := get(t, srv.URL+"/whoami", "")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	issuer := testIssuer()
	srv := newMiddlewareServer(t, AuthMiddleware(issuer, logger.NewTestLogger(t)))
	token, err := issuer.Generate("user-1", "seller")
	require.NoError(t, err)

	for _, header := range []string{token, "Basic " + token, "Bearer"} {
		resp, _ := get(t, srv.URL+"/whoami", header)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestAuthMiddleware_ForgedToken(t *testing.T) {
	srv := newMiddlewareServer(t, AuthMiddleware(testIssuer(), logger.NewTestLogger(t)))

	forged := auth.NewTokenIssuer(config.AuthConfig{JWTSecret: "other-secret", TokenTTL: 60})
	token, err := forged.Generate("user-1", "seller")
	require.NoError(t, err)

	resp, _ := get(t, srv.URL+"/whoami", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ========================== Optional Auth Tests

func TestOptionalAuth_AnonymousAllowed(t *testing.T) {
	srv := newMiddlewareServer(t, OptionalAuth(testIssuer()))

	resp, body := get(t, srv.URL+"/whoami", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", body["user_id"])
}

func TestOptionalAuth_TokenAttached(t *testing.T) {
	issuer := testIssuer()
	srv := newMiddlewareServer(t, OptionalAuth(issuer))

	token, err := issuer.Generate("user-7", "buyer")
	require.NoError(t, err)

	resp, body := get(t, srv.URL+"/whoami", "Bearer "+token)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-7", body["user_id"])
}

func TestOptionalAuth_BadTokenTreatedAsAnonymous(t *testing.T) {
	srv := newMiddlewareServer(t, OptionalAuth(testIssuer()))

	resp, body := get(t, srv.URL+"/whoami", "Bearer garbage")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", body["user_id"])
}
