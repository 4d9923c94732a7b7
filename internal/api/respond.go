// internal/api/respond.go
package api

import (
	"encoding/json"
	"net/http"

	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
)

// errorBody is the snake_case wire shape of every error response.
type errorBody struct {
	Error struct {
		Code     string            `json:"code"`
		Message  string            `json:"message"`
		Category string            `json:"category"`
		Fields   map[string]string `json:"fields,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps an error to its HTTP status and wire body. Unexpected
// errors collapse to a generic 500; their detail is logged, never sent.
func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	stdErr := errors.AsStandard(err)
	status := errors.HTTPStatus(stdErr.Code)

	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
		})
	}

	var body errorBody
	body.Error.Code = string(stdErr.Code)
	body.Error.Message = stdErr.Message
	body.Error.Category = errors.GetErrorCategory(stdErr.Code)
	body.Error.Fields = stdErr.Fields

	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &errors.StandardError{
			Code:    errors.ErrCodeFieldValidationFailed,
			Message: "Request body is not valid JSON",
		}
	}
	return nil
}
