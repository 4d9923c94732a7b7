// internal/auth/service.go
package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"oikos-server/internal/common/database"
	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/models"
)

const (
	pendingPrefix = "registration:pending:"
	pendingTTL    = 30 * time.Minute
	resetPrefix   = "reset:"
)

// Service implements account registration, login, contact verification and
// password reset.
type Service struct {
	users          *UserRepository
	tokens         *TokenIssuer
	verifier       *CodeVerifier
	rdb            *database.RedisClient
	minPasswordLen int
	log            logger.Logger
}

func NewService(users *UserRepository, tokens *TokenIssuer, verifier *CodeVerifier, rdb *database.RedisClient, minPasswordLen int, log logger.Logger) *Service {
	if minPasswordLen <= 0 {
		minPasswordLen = 8
	}
	return &Service{
		users:          users,
		tokens:         tokens,
		verifier:       verifier,
		rdb:            rdb,
		minPasswordLen: minPasswordLen,
		log:            log,
	}
}

// RegisterInput is the collected output of the registration wizard.
type RegisterInput struct {
	FullName    string
	Email       string
	Password    string
	UserType    string
	PhoneNumber string
}

// Register creates an unverified account and issues a verification code.
// Field-shape validation has already happened in the wizard; this layer owns
// the uniqueness check and credential storage.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.checkPassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, errors.NewEmailTakenError(email)
	} else if err != sql.ErrNoRows {
		return nil, errors.NewQueryExecutionFailedError("auth.Register", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewAuthenticationError("failed to hash password")
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata: models.UserMetadata{
			FullName:    in.FullName,
			UserType:    in.UserType,
			PhoneNumber: in.PhoneNumber,
		},
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.verifier.Issue(ctx, user.ID, user.Email, user.Metadata.PhoneNumber); err != nil {
		// The account exists; the user can request a resend.
		s.log.WithError(err).WithFields(map[string]interface{}{
			"userId": user.ID,
		}).Warn("Initial verification code delivery failed", nil)
	}

	s.log.WithFields(map[string]interface{}{
		"userId":   user.ID,
		"userType": user.Metadata.UserType,
	}).Info("Account registered", nil)
	return user, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return "", nil, errors.NewAuthenticationError("unknown email or wrong password")
	}
	if err != nil {
		return "", nil, errors.NewQueryExecutionFailedError("auth.Login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, errors.NewAuthenticationError("unknown email or wrong password")
	}

	token, err := s.tokens.Generate(user.ID, user.Metadata.UserType)
	if err != nil {
		return "", nil, errors.NewAuthenticationError("failed to issue token")
	}
	return token, user, nil
}

// Verify checks a submitted code and marks the account verified.
func (s *Service) Verify(ctx context.Context, userID, code string) error {
	if err := s.verifier.Check(ctx, userID, code); err != nil {
		return err
	}
	return s.users.MarkVerified(ctx, userID)
}

// ResendCode issues a fresh verification code for an existing account.
func (s *Service) ResendCode(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err == sql.ErrNoRows {
		return errors.NewAuthenticationError("unknown user")
	}
	if err != nil {
		return errors.NewQueryExecutionFailedError("auth.ResendCode", err)
	}
	return s.verifier.Issue(ctx, user.ID, user.Email, user.Metadata.PhoneNumber)
}

// pendingRegistration is the not-yet-an-account state held in Redis while
// the contact is being verified. The password is hashed before it is stored.
type pendingRegistration struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	UserType     string `json:"userType"`
	PhoneNumber  string `json:"phoneNumber"`
}

func pendingKey(email string) string {
	return pendingPrefix + email
}

// pendingCodeID namespaces verifier keys so a pending registration cannot
// consume a code issued to an existing account.
func pendingCodeID(email string) string {
	return "pending:" + email
}

// StartRegistration records a pending registration and delivers a
// verification code to the given contact. No account row exists yet; the
// user is created only when CompleteRegistration passes the code check, so
// an abandoned or retried wizard never collides with itself on the email
// uniqueness constraint. Re-entry replaces the pending record, and a code
// that is still live from a previous entry counts as delivered.
func (s *Service) StartRegistration(ctx context.Context, in RegisterInput) error {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.checkPassword(in.Password); err != nil {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return errors.NewEmailTakenError(email)
	} else if err != sql.ErrNoRows {
		return errors.NewQueryExecutionFailedError("auth.StartRegistration", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.NewAuthenticationError("failed to hash password")
	}

	pending := pendingRegistration{
		FullName:     in.FullName,
		Email:        email,
		PasswordHash: string(hash),
		UserType:     in.UserType,
		PhoneNumber:  in.PhoneNumber,
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return errors.NewQueryExecutionFailedError("auth.StartRegistration", err)
	}
	if err := s.rdb.Set(ctx, pendingKey(email), data, pendingTTL); err != nil {
		return errors.NewQueryExecutionFailedError("auth.StartRegistration", err)
	}

	if err := s.verifier.Issue(ctx, pendingCodeID(email), email, in.PhoneNumber); err != nil {
		stdErr := errors.AsStandard(err)
		if stdErr.Code == errors.ErrCodeCodeDeliveryFailed && stdErr.Retryable {
			s.log.WithFields(map[string]interface{}{
				"email": email,
			}).Debug("Registration re-entered inside resend gap, keeping live code", nil)
			return nil
		}
		return err
	}

	s.log.WithFields(map[string]interface{}{"email": email}).Info("Registration started", nil)
	return nil
}

// CompleteRegistration checks the submitted code against the pending
// registration and only then creates the verified account. A wrong code
// leaves the pending record and stored code untouched, so the submit can be
// retried with the delivered code.
func (s *Service) CompleteRegistration(ctx context.Context, email, code string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	raw, err := s.rdb.Get(ctx, pendingKey(email))
	if err == redis.Nil {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeSessionExpired,
			Message:   "Registration expired, please start over",
			Timestamp: time.Now().UTC(),
		}
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("auth.CompleteRegistration", err)
	}
	var pending pendingRegistration
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, errors.NewQueryExecutionFailedError("auth.CompleteRegistration", err)
	}

	if err := s.verifier.Check(ctx, pendingCodeID(email), code); err != nil {
		return nil, err
	}

	// Backstop for an account created through the direct endpoint while
	// this registration was pending.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, errors.NewEmailTakenError(email)
	} else if err != sql.ErrNoRows {
		return nil, errors.NewQueryExecutionFailedError("auth.CompleteRegistration", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Verified:     true,
		Metadata: models.UserMetadata{
			FullName:    pending.FullName,
			UserType:    pending.UserType,
			PhoneNumber: pending.PhoneNumber,
		},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.rdb.Del(ctx, pendingKey(email)); err != nil {
		s.log.WithError(err).Warn("Failed to clear pending registration", nil)
	}

	s.log.WithFields(map[string]interface{}{
		"userId":   user.ID,
		"userType": user.Metadata.UserType,
	}).Info("Account registered and verified", nil)
	return user, nil
}

// RequestPasswordReset delivers a reset code to the account's contact.
// Unknown emails report success so the endpoint does not reveal which
// addresses hold accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err == sql.ErrNoRows {
		s.log.WithFields(map[string]interface{}{
			"email": email,
		}).Debug("Password reset requested for unknown email", nil)
		return nil
	}
	if err != nil {
		return errors.NewQueryExecutionFailedError("auth.RequestPasswordReset", err)
	}

	return s.verifier.Issue(ctx, resetPrefix+user.ID, user.Email, user.Metadata.PhoneNumber)
}

// ResetPassword checks the reset code and replaces the account's password.
// Unknown emails read as an invalid code.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.checkPassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return errors.NewCodeInvalidError()
	}
	if err != nil {
		return errors.NewQueryExecutionFailedError("auth.ResetPassword", err)
	}

	if err := s.verifier.Check(ctx, resetPrefix+user.ID, code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.NewAuthenticationError("failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	s.log.WithFields(map[string]interface{}{"userId": user.ID}).Info("Password reset", nil)
	return nil
}

func (s *Service) checkPassword(password string) error {
	if len(password) < s.minPasswordLen {
		return errors.NewFieldValidationError(map[string]string{
			"password": fmt.Sprintf("password must be at least %d characters long", s.minPasswordLen),
		})
	}
	return nil
}

// Tokens exposes the issuer for the HTTP middleware.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}
