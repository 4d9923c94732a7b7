// internal/auth/otp.go
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"oikos-server/internal/common/database"
	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
)

// EmailSender delivers a verification code over email.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, from, to, code string) error
}

// SMSSender delivers a verification code over SMS.
type SMSSender interface {
	SendVerificationSMS(ctx context.Context, phoneNumber, code string) error
}

// CodeVerifier issues, delivers and checks one-time verification codes.
// Codes live in Redis under the user id with a TTL; a consumed or expired
// code is gone, there is no reuse.
type CodeVerifier struct {
	rdb        *database.RedisClient
	email      EmailSender
	sms        SMSSender
	fromEmail  string
	codeLength int
	codeTTL    time.Duration
	resendGap  time.Duration
	// acceptAny skips the stored-code comparison for well-formed codes.
	// Demo environments only.
	acceptAny bool
	log       logger.Logger
}

type CodeVerifierOptions struct {
	Email      EmailSender
	SMS        SMSSender
	FromEmail  string
	CodeLength int
	CodeTTL    time.Duration
	ResendGap  time.Duration
	AcceptAny  bool
}

func NewCodeVerifier(rdb *database.RedisClient, opts CodeVerifierOptions, log logger.Logger) *CodeVerifier {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 6
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	return &CodeVerifier{
		rdb:        rdb,
		email:      opts.Email,
		sms:        opts.SMS,
		fromEmail:  opts.FromEmail,
		codeLength: opts.CodeLength,
		codeTTL:    opts.CodeTTL,
		resendGap:  opts.ResendGap,
		acceptAny:  opts.AcceptAny,
		log:        log,
	}
}

func codeKey(userID string) string {
	return "verification:code:" + userID
}

func resendKey(userID string) string {
	return "verification:resend:" + userID
}

// Issue generates a fresh code, stores it and delivers it to the user's email
// and, when a phone number is known, by SMS. Reissuing replaces any previous
// code for the user.
func (v *CodeVerifier) Issue(ctx context.Context, userID, email, phoneNumber string) error {
	if v.resendGap > 0 {
		if _, err := v.rdb.Get(ctx, resendKey(userID)); err == nil {
			return &errors.StandardError{
				Code:      errors.ErrCodeCodeDeliveryFailed,
				Message:   "A code was sent recently, wait before requesting another",
				Retryable: true,
				Timestamp: time.Now().UTC(),
			}
		}
	}

	code, err := v.generate()
	if err != nil {
		return errors.NewCodeDeliveryFailedError("generate", err)
	}

	if err := v.rdb.Set(ctx, codeKey(userID), code, v.codeTTL); err != nil {
		return errors.NewCodeDeliveryFailedError("store", err)
	}
	if v.resendGap > 0 {
		if err := v.rdb.Set(ctx, resendKey(userID), "1", v.resendGap); err != nil {
			v.log.WithError(err).Warn("Failed to record resend gap", nil)
		}
	}

	delivered := false
	if v.email != nil && email != "" {
		if err := v.email.SendVerificationEmail(ctx, v.fromEmail, email, code); err != nil {
			v.log.WithError(err).WithFields(map[string]interface{}{
				"userId": userID,
			}).Error("Verification email delivery failed", nil)
		} else {
			delivered = true
		}
	}
	if v.sms != nil && phoneNumber != "" {
		if err := v.sms.SendVerificationSMS(ctx, phoneNumber, code); err != nil {
			v.log.WithError(err).WithFields(map[string]interface{}{
				"userId": userID,
			}).Error("Verification SMS delivery failed", nil)
		} else {
			delivered = true
		}
	}

	if !delivered && (v.email != nil || v.sms != nil) {
		return errors.NewCodeDeliveryFailedError("all-channels", fmt.Errorf("no channel accepted the message"))
	}

	v.log.WithFields(map[string]interface{}{"userId": userID}).Info("Verification code issued", nil)
	return nil
}

// Check compares a submitted code against the stored one and consumes it on
// success. Expiry and absence are indistinguishable to the caller; both read
// as expired.
func (v *CodeVerifier) Check(ctx context.Context, userID, submitted string) error {
	if len(submitted) != v.codeLength || !allDigits(submitted) {
		return errors.NewCodeInvalidError()
	}

	if v.acceptAny {
		v.rdb.Del(ctx, codeKey(userID))
		return nil
	}

	stored, err := v.rdb.Get(ctx, codeKey(userID))
	if err == redis.Nil {
		return errors.NewCodeExpiredError()
	}
	if err != nil {
		return errors.NewCodeDeliveryFailedError("lookup", err)
	}

	if stored != submitted {
		return errors.NewCodeInvalidError()
	}

	if err := v.rdb.Del(ctx, codeKey(userID)); err != nil {
		v.log.WithError(err).Warn("Failed to consume verification code", nil)
	}
	return nil
}

func (v *CodeVerifier) generate() (string, error) {
	digits := make([]byte, v.codeLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
