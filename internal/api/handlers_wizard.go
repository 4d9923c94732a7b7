// internal/api/handlers_wizard.go
package api

import (
	"encoding/base64"
	"net/http"

	"github.com/gorilla/mux"

	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/flows"
	"oikos-server/internal/wizard"
)

// WizardHandler exposes the wizard session API. Every response carries the
// full session snapshot so clients render purely from server state.
type WizardHandler struct {
	mgr *flows.Manager
	log logger.Logger
}

func NewWizardHandler(mgr *flows.Manager, log logger.Logger) *WizardHandler {
	return &WizardHandler{mgr: mgr, log: log}
}

// sessionResponse is the wire shape of a session snapshot.
type sessionResponse struct {
	Session *wizard.Session `json:"session"`
}

func (h *WizardHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Open(r.Context(), mux.Vars(r)["flow"], UserID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess})
}

func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

type fieldsRequest struct {
	Fields map[string]wizard.FieldValue `json:"fields,omitempty"`
	Toggle *struct {
		Field string `json:"field"`
		Item  string `json:"item"`
	} `json:"toggle,omitempty"`
}

// SetFields applies field edits and/or a multi-select toggle.
func (h *WizardHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	id := mux.Vars(r)["id"]
	var sess *wizard.Session
	var err error

	if len(req.Fields) > 0 {
		sess, err = h.mgr.SetFields(r.Context(), id, req.Fields)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
	}
	if req.Toggle != nil {
		sess, err = h.mgr.ToggleField(r.Context(), id, req.Toggle.Field, req.Toggle.Item)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
	}
	if sess == nil {
		writeError(w, h.log, &errors.StandardError{
			Code:    errors.ErrCodeFieldValidationFailed,
			Message: "Provide fields or a toggle",
		})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

// Next advances the wizard. A validation block comes back as 422 with the
// field error map and the persisted session; entered data is never cleared.
func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Next(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if sess != nil {
			stdErr := errors.AsStandard(err)
			writeJSON(w, errors.HTTPStatus(stdErr.Code), map[string]interface{}{
				"session": sess,
				"error": map[string]interface{}{
					"code":    string(stdErr.Code),
					"message": stdErr.Message,
					"fields":  stdErr.Fields,
				},
			})
			return
		}
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

func (h *WizardHandler) Prev(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Prev(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

type jumpRequest struct {
	Step int `json:"step"`
}

func (h *WizardHandler) Jump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	sess, err := h.mgr.Jump(r.Context(), mux.Vars(r)["id"], req.Step)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

func (h *WizardHandler) DismissBanner(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.DismissBanner(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

// Close discards the session. Reopening the flow starts from step 1 with
// declared defaults.
func (h *WizardHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Close(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session closed"})
}

func (h *WizardHandler) AcquireCapture(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.AcquireCapture(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Capture stream acquired"})
}

func (h *WizardHandler) CaptureFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := h.mgr.CaptureFrame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"frame": base64.StdEncoding.EncodeToString(frame),
	})
}

func (h *WizardHandler) ReleaseCapture(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.ReleaseCapture(mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Capture stream released"})
}
