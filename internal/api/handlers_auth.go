// internal/api/handlers_auth.go
package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"oikos-server/internal/auth"
	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
)

// AuthHandler exposes the non-wizard auth surface. The registration wizard
// covers the multi-step path; these endpoints are the direct API equivalent.
type AuthHandler struct {
	svc      *auth.Service
	validate *validator.Validate
	log      logger.Logger
}

func NewAuthHandler(svc *auth.Service, log logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, validate: validator.New(), log: log}
}

type registerRequest struct {
	FullName    string `json:"full_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	// Length is enforced by the service against the configured minimum.
	Password    string `json:"password" validate:"required"`
	UserType    string `json:"user_type" validate:"required,oneof=buyer seller agent vendor"`
	PhoneNumber string `json:"phone_number"`
}

type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, validationError(err))
		return
	}

	user, err := h.svc.Register(r.Context(), auth.RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		UserType:    req.UserType,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message: "Account created, verification code sent",
		UserID:  user.ID,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, validationError(err))
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		Token:   token,
		UserID:  user.ID,
	})
}

type verifyRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, validationError(err))
		return
	}

	if err := h.svc.Verify(r.Context(), req.UserID, req.Code); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: "Account verified"})
}

type resendRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *AuthHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, validationError(err))
		return
	}

	if err := h.svc.ResendCode(r.Context(), req.UserID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: "Verification code sent"})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword sends a reset code. The response is the same whether the
// email holds an account or not.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, validationError(err))
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: "If the email holds an account, a reset code was sent"})
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, validationError(err))
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: "Password updated"})
}

// validationError converts validator.v10 output into the standard field map.
func validationError(err error) error {
	fields := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields[fe.Field()] = "failed " + fe.Tag() + " validation"
		}
	}
	return errors.NewFieldValidationError(fields)
}
