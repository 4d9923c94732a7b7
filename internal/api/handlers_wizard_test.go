// internal/api/handlers_wizard_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oikos-server/internal/common/database"
	stderrors "oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/flows"
	"oikos-server/internal/wizard"
	"oikos-server/pkg/registry"
)

func wizardTestRegistry() *registry.FlowRegistry {
	return &registry.FlowRegistry{
		Version: "test",
		Flows: []wizard.FlowDefinition{
			{
				Name:  "register",
				Title: "Create your account",
				Steps: []wizard.StepDefinition{
					{Name: "basic-info", Rules: []wizard.Rule{
						{Field: "email", Type: wizard.RuleRequired},
						{Field: "email", Type: wizard.RuleEmail},
					}},
					{Name: "confirm", Rules: []wizard.Rule{
						{Field: "agreeToTerms", Type: wizard.RuleRequireTrue},
					}},
				},
			},
		},
	}
}

// newWizardServer wires the wizard surface over miniredis with a stubbed
// submitter, mounted on the same route shapes the real router uses.
func newWizardServer(t *testing.T, submit wizard.SubmitFunc) *httptest.Server {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	store := wizard.NewSessionStore(rdb, time.Minute)
	mgr := flows.NewManager(
		wizardTestRegistry(),
		store,
		map[string]wizard.SubmitFunc{"register": submit},
		nil,
		nil,
		log,
	)
	h := NewWizardHandler(mgr, log)

	router := mux.NewRouter()
	wizards := router.PathPrefix("/wizards").Subrouter()
	wizards.HandleFunc("/{flow}", h.Open).Methods("POST")
	wizards.HandleFunc("/{id}", h.Get).Methods("GET")
	wizards.HandleFunc("/{id}/fields", h.SetFields).Methods("PATCH")
	wizards.HandleFunc("/{id}/next", h.Next).Methods("POST")
	wizards.HandleFunc("/{id}/prev", h.Prev).Methods("POST")
	wizards.HandleFunc("/{id}/jump", h.Jump).Methods("POST")
	wizards.HandleFunc("/{id}/banner", h.DismissBanner).Methods("DELETE")
	wizards.HandleFunc("/{id}/capture", h.AcquireCapture).Methods("POST")
	wizards.HandleFunc("/{id}", h.Close).Methods("DELETE")

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func openSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/wizards/register", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := body["session"].(map[string]interface{})
	return sess["id"].(string)
}

// ========================== Session Lifecycle Tests

func TestWizardAPI_OpenUnknownFlow(t *testing.T) {
	srv := newWizardServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/wizards/no-such-flow", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, string(stderrors.ErrCodeFlowNotFound), errBody["code"])
}

func TestWizardAPI_OpenAndGet(t *testing.T) {
	srv := newWizardServer(t, nil)
	id := openSession(t, srv)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/wizards/"+id, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := body["session"].(map[string]interface{})
	assert.Equal(t, "register", sess["flow"])
	assert.Equal(t, float64(1), sess["currentStep"])
	assert.Equal(t, "idle", sess["status"])
}

func TestWizardAPI_GetMissingSession(t *testing.T) {
	srv := newWizardServer(t, nil)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/wizards/ghost", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWizardAPI_CloseDiscardsSession(t *testing.T) {
	srv := newWizardServer(t, nil)
	id := openSession(t, srv)

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/wizards/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/wizards/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ========================== Navigation Tests

func TestWizardAPI_NextBlockedReturns422WithSession(t *testing.T) {
	srv := newWizardServer(t, nil)
	id := openSession(t, srv)

	// Set an invalid email, then try to advance.
	resp, _ := doJSON(t, http.MethodPatch, srv.URL+"/wizards/"+id+"/fields", map[string]interface{}{
		"fields": map[string]interface{}{
			"email": map[string]interface{}{"kind": "string", "str": "nope"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/wizards/"+id+"/next", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, string(stderrors.ErrCodeFieldValidationFailed), errBody["code"])
	assert.Contains(t, errBody["fields"], "email")

	// The session rides along so the client can render both data and errors.
	sess := body["session"].(map[string]interface{})
	assert.Equal(t, float64(1), sess["currentStep"])
	fields := sess["fields"].(map[string]interface{})
	assert.Equal(t, "nope", fields["email"].(map[string]interface{})["str"])
}

func TestWizardAPI_FullFlowToCompletion(t *testing.T) {
	var submitted *wizard.Session
	srv := newWizardServer(t, func(ctx context.Context, sess *wizard.Session) error {
		submitted = sess
		return nil
	})
	id := openSession(t, srv)

	doJSON(t, http.MethodPatch, srv.URL+"/wizards/"+id+"/fields", map[string]interface{}{
		"fields": map[string]interface{}{
			"email": map[string]interface{}{"kind": "string", "str": "jane@example.com"},
		},
	})
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/wizards/"+id+"/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := body["session"].(map[string]interface{})
	require.Equal(t, float64(2), sess["currentStep"])

	doJSON(t, http.MethodPatch, srv.URL+"/wizards/"+id+"/fields", map[string]interface{}{
		"fields": map[string]interface{}{
			"agreeToTerms": map[string]interface{}{"kind": "bool", "bool": true},
		},
	})
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/wizards/"+id+"/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess = body["session"].(map[string]interface{})
	assert.Equal(t, true, sess["completed"])
	assert.Equal(t, "success", sess["status"])

	require.NotNil(t, submitted)
	assert.Equal(t, "jane@example.com", submitted.Fields["email"].Str)
}

func TestWizardAPI_SubmitFailureSurfacesBanner(t *testing.T) {
	srv := newWizardServer(t, func(ctx context.Context, sess *wizard.Session) error {
		return stderrors.NewGatewayFailedError("register-submit", fmt.Errorf("backend down"))
	})
	id := openSession(t, srv)

	doJSON(t, http.MethodPatch, srv.URL+"/wizards/"+id+"/fields", map[string]interface{}{
		"fields": map[string]interface{}{
			"email": map[string]interface{}{"kind": "string", "str": "jane@example.com"},
		},
	})
	doJSON(t, http.MethodPost, srv.URL+"/wizards/"+id+"/next", nil)
	doJSON(t, http.MethodPatch, srv.URL+"/wizards/"+id+"/fields", map[string]interface{}{
		"fields": map[string]interface{}{
			"agreeToTerms": map[string]interface{}{"kind": "bool", "bool": true},
		},
	})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/wizards/"+id+"/next", nil)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	sess := body["session"].(map[string]interface{})
	assert.Equal(t, "failed", sess["status"])
	assert.Equal(t, false, sess["completed"])
	assert.NotEmpty(t, sess["banner"])
	assert.Equal(t, float64(2), sess["currentStep"])

	// The banner is dismissible without losing the step or data.
	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/wizards/"+id+"/banner", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess = body["session"].(map[string]interface{})
	_, hasBanner := sess["banner"]
	assert.False(t, hasBanner)
	assert.Equal(t, "idle", sess["status"])
}

func TestWizardAPI_PrevAndJump(t *testing.T) {
	srv := newWizardServer(t, nil)
	id := openSession(t, srv)

	doJSON(t, http.MethodPatch, srv.URL+"/wizards/"+id+"/fields", map[string]interface{}{
		"fields": map[string]interface{}{
			"email": map[string]interface{}{"kind": "string", "str": "jane@example.com"},
		},
	})
	doJSON(t, http.MethodPost, srv.URL+"/wizards/"+id+"/next", nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/wizards/"+id+"/prev", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := body["session"].(map[string]interface{})
	assert.Equal(t, float64(1), sess["currentStep"])

	// A forward jump past the frontier is rejected.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/wizards/"+id+"/jump", map[string]interface{}{"step": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWizardAPI_ToggleField(t *testing.T) {
	srv := newWizardServer(t, nil)
	id := openSession(t, srv)

	resp, body := doJSON(t, http.MethodPatch, srv.URL+"/wizards/"+id+"/fields", map[string]interface{}{
		"toggle": map[string]interface{}{"field": "amenities", "item": "pool"},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := body["session"].(map[string]interface{})
	amenities := sess["fields"].(map[string]interface{})["amenities"].(map[string]interface{})
	assert.Equal(t, []interface{}{"pool"}, amenities["list"])
}

// ========================== Capture Tests

func TestWizardAPI_CaptureWithoutDevice(t *testing.T) {
	srv := newWizardServer(t, nil)
	id := openSession(t, srv)

	// No stream provider is configured; clients fall back to file upload.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/wizards/"+id+"/capture", nil)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, string(stderrors.ErrCodeCaptureDenied), errBody["code"])
}
