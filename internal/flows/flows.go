// internal/flows/flows.go

// Package flows binds the generic wizard engine to the domain services: each
// registered flow gets the submit function that runs when its final step
// passes validation. Submits go through the gateway so the tri-state
// lifecycle and dropped-response guard apply to every terminal operation.
package flows

import (
	"context"
	"strings"

	"oikos-server/internal/auth"
	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/gateway"
	"oikos-server/internal/models"
	"oikos-server/internal/property"
	"oikos-server/internal/vendor"
	"oikos-server/internal/verification"
	"oikos-server/internal/wizard"
)

// Flow names as registered in flows.json.
const (
	FlowRegister             = "register"
	FlowPropertyListing      = "property-listing"
	FlowAIListing            = "ai-listing"
	FlowVendorRegistration   = "vendor-registration"
	FlowIdentityVerification = "identity-verification"
)

// stepVerifyContact is the shared name of the code-entry step; its entry
// hook is what puts a code in the user's inbox before the field asks for it.
const stepVerifyContact = "verify-contact"

// Services are the domain backends the submitters dispatch into.
type Services struct {
	Auth         *auth.Service
	Property     *property.Service
	Vendor       *vendor.Service
	Verification *verification.Service
}

// Submitters returns the submit function for every known flow.
func Submitters(svc Services, log logger.Logger) map[string]wizard.SubmitFunc {
	return map[string]wizard.SubmitFunc{
		FlowRegister:             submitRegister(svc.Auth, log),
		FlowPropertyListing:      submitPropertyListing(svc.Property, log),
		FlowAIListing:            submitPropertyListing(svc.Property, log),
		FlowVendorRegistration:   submitVendorRegistration(svc.Vendor, log),
		FlowIdentityVerification: submitIdentityVerification(svc.Verification, log),
	}
}

// EnterHooks returns the per-step entry hooks, keyed by flow then step name.
// Code-entry steps issue their verification code here, so the code is
// delivered when the user reaches the field that asks for it, not after.
func EnterHooks(svc Services, log logger.Logger) map[string]map[string]wizard.EnterFunc {
	return map[string]map[string]wizard.EnterFunc{
		FlowRegister: {
			stepVerifyContact: func(ctx context.Context, sess *wizard.Session, store *wizard.FieldStore) error {
				return svc.Auth.StartRegistration(ctx, auth.RegisterInput{
					FullName:    store.GetString("fullName"),
					Email:       store.GetString("email"),
					Password:    store.GetString("password"),
					UserType:    store.GetString("userType"),
					PhoneNumber: store.GetString("phoneNumber"),
				})
			},
		},
		FlowVendorRegistration: {
			stepVerifyContact: func(ctx context.Context, sess *wizard.Session, store *wizard.FieldStore) error {
				if sess.UserID == "" {
					return errors.NewAuthenticationError("vendor registration requires a signed-in account")
				}
				return tolerateLiveCode(svc.Auth.ResendCode(ctx, sess.UserID))
			},
		},
		FlowAIListing: {
			"review": func(ctx context.Context, sess *wizard.Session, store *wizard.FieldStore) error {
				draftListingFromPrompt(store)
				return nil
			},
		},
	}
}

// tolerateLiveCode swallows the resend-gap error: re-entering the step while
// the previous code is still deliverable is not a failure.
func tolerateLiveCode(err error) error {
	if err == nil {
		return nil
	}
	stdErr := errors.AsStandard(err)
	if stdErr.Code == errors.ErrCodeCodeDeliveryFailed && stdErr.Retryable {
		return nil
	}
	return stdErr
}

// draftListingFromPrompt seeds the review step of the assisted flow from the
// freeform prompt. Only blank fields are filled; user edits win.
func draftListingFromPrompt(store *wizard.FieldStore) {
	prompt := strings.TrimSpace(store.GetString("prompt"))
	if prompt == "" {
		return
	}
	if store.GetString("description") == "" {
		store.SetField("description", wizard.StringValue(prompt))
	}
	if store.GetString("title") == "" {
		title := prompt
		if idx := strings.IndexAny(title, ".!?\n"); idx > 0 {
			title = title[:idx]
		}
		if len(title) > 80 {
			title = title[:80]
		}
		store.SetField("title", wizard.StringValue(strings.TrimSpace(title)))
	}
}

func submitRegister(svc *auth.Service, log logger.Logger) wizard.SubmitFunc {
	return func(ctx context.Context, sess *wizard.Session) error {
		gw := gateway.New("register-submit", log)
		_, err := gw.Invoke(ctx, func(ctx context.Context) (interface{}, error) {
			user, err := svc.CompleteRegistration(ctx,
				str(sess, "email"),
				str(sess, "verificationCode"),
			)
			if err != nil {
				return nil, err
			}
			sess.UserID = user.ID
			return user, nil
		})
		return err
	}
}

func submitPropertyListing(svc *property.Service, log logger.Logger) wizard.SubmitFunc {
	return func(ctx context.Context, sess *wizard.Session) error {
		if sess.UserID == "" {
			return errors.NewAuthenticationError("listing a property requires a signed-in seller")
		}

		prop := &models.Property{
			Title:        str(sess, "title"),
			Description:  str(sess, "description"),
			Price:        str(sess, "price"),
			PropertyType: str(sess, "propertyType"),
			Bedrooms:     int(num(sess, "bedrooms")),
			Bathrooms:    num(sess, "bathrooms"),
			Area:         int(num(sess, "squareFeet")),
			YearBuilt:    int(num(sess, "yearBuilt")),
			Address:      str(sess, "address"),
			City:         str(sess, "city"),
			State:        str(sess, "state"),
			ZipCode:      str(sess, "zipCode"),
			Amenities:    list(sess, "amenities"),
			// Upload order is preserved; the featured image stays at
			// element 0.
			Images:       list(sess, "images"),
			ContactName:  str(sess, "contactName"),
			ContactEmail: str(sess, "contactEmail"),
			ContactPhone: str(sess, "contactPhone"),
		}

		gw := gateway.New("property-listing-submit", log)
		_, err := gw.Invoke(ctx, func(ctx context.Context) (interface{}, error) {
			return svc.Create(ctx, sess.UserID, prop)
		})
		return err
	}
}

func submitVendorRegistration(svc *vendor.Service, log logger.Logger) wizard.SubmitFunc {
	return func(ctx context.Context, sess *wizard.Session) error {
		if sess.UserID == "" {
			return errors.NewAuthenticationError("vendor registration requires a signed-in account")
		}

		gw := gateway.New("vendor-registration-submit", log)
		_, err := gw.Invoke(ctx, func(ctx context.Context) (interface{}, error) {
			return svc.Register(ctx, sess.UserID, vendor.RegisterInput{
				BusinessName:     str(sess, "businessName"),
				ServiceCategory:  str(sess, "serviceCategory"),
				Description:      str(sess, "description"),
				ContactName:      str(sess, "contactName"),
				ContactEmail:     str(sess, "contactEmail"),
				ContactPhone:     str(sess, "contactPhone"),
				VerificationCode: str(sess, "verificationCode"),
			})
		})
		return err
	}
}

func submitIdentityVerification(svc *verification.Service, log logger.Logger) wizard.SubmitFunc {
	return func(ctx context.Context, sess *wizard.Session) error {
		if sess.UserID == "" {
			return errors.NewAuthenticationError("identity verification requires a signed-in account")
		}

		gw := gateway.New("identity-verification-submit", log)
		_, err := gw.Invoke(ctx, func(ctx context.Context) (interface{}, error) {
			return svc.Submit(ctx,
				sess.UserID,
				str(sess, "documentType"),
				str(sess, "documentImage"),
				str(sess, "selfieImage"),
			)
		})
		return err
	}
}

func str(sess *wizard.Session, name string) string {
	return sess.Fields[name].Str
}

func num(sess *wizard.Session, name string) float64 {
	return sess.Fields[name].Num
}

func list(sess *wizard.Session, name string) []string {
	return sess.Fields[name].List
}
