// internal/wizard/validator_test.go
package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ========================== Rule Evaluation Tests

func TestValidateStep_Rules(t *testing.T) {
	tests := []struct {
		name    string
		rules   []Rule
		fields  map[string]FieldValue
		wantErr map[string]string
	}{
		{
			name:    "required rejects missing field",
			rules:   []Rule{{Field: "fullName", Type: RuleRequired}},
			fields:  map[string]FieldValue{},
			wantErr: map[string]string{"fullName": "full name is required"},
		},
		{
			name:    "required rejects empty string",
			rules:   []Rule{{Field: "fullName", Type: RuleRequired}},
			fields:  map[string]FieldValue{"fullName": StringValue("")},
			wantErr: map[string]string{"fullName": "full name is required"},
		},
		{
			name:    "required accepts zero number",
			rules:   []Rule{{Field: "bedrooms", Type: RuleRequired}},
			fields:  map[string]FieldValue{"bedrooms": NumberValue(0)},
			wantErr: map[string]string{},
		},
		{
			name:    "min_length rejects short password",
			rules:   []Rule{{Field: "password", Type: RuleMinLength, Param: "8"}},
			fields:  map[string]FieldValue{"password": StringValue("short")},
			wantErr: map[string]string{"password": "password must be at least 8 characters long"},
		},
		{
			name:    "min_length accepts boundary length",
			rules:   []Rule{{Field: "password", Type: RuleMinLength, Param: "8"}},
			fields:  map[string]FieldValue{"password": StringValue("12345678")},
			wantErr: map[string]string{},
		},
		{
			name:    "min_length skips blank field",
			rules:   []Rule{{Field: "password", Type: RuleMinLength, Param: "8"}},
			fields:  map[string]FieldValue{"password": StringValue("")},
			wantErr: map[string]string{},
		},
		{
			name:    "email rejects malformed address",
			rules:   []Rule{{Field: "email", Type: RuleEmail}},
			fields:  map[string]FieldValue{"email": StringValue("not-an-email")},
			wantErr: map[string]string{"email": "Please enter a valid email address"},
		},
		{
			name:    "email accepts plausible address",
			rules:   []Rule{{Field: "email", Type: RuleEmail}},
			fields:  map[string]FieldValue{"email": StringValue("jane@example.com")},
			wantErr: map[string]string{},
		},
		{
			name:  "matches_field rejects mismatch",
			rules: []Rule{{Field: "confirmPassword", Type: RuleMatchesField, Param: "password"}},
			fields: map[string]FieldValue{
				"password":        StringValue("hunter2hunter2"),
				"confirmPassword": StringValue("hunter2"),
			},
			wantErr: map[string]string{"confirmPassword": "confirm password does not match password"},
		},
		{
			name:  "matches_field accepts matching pair",
			rules: []Rule{{Field: "confirmPassword", Type: RuleMatchesField, Param: "password"}},
			fields: map[string]FieldValue{
				"password":        StringValue("hunter2hunter2"),
				"confirmPassword": StringValue("hunter2hunter2"),
			},
			wantErr: map[string]string{},
		},
		{
			name:    "require_true rejects unchecked box",
			rules:   []Rule{{Field: "agreeToTerms", Type: RuleRequireTrue, Message: "You must accept the terms"}},
			fields:  map[string]FieldValue{"agreeToTerms": BoolValue(false)},
			wantErr: map[string]string{"agreeToTerms": "You must accept the terms"},
		},
		{
			name:    "digits rejects wrong length",
			rules:   []Rule{{Field: "verificationCode", Type: RuleDigits, Param: "6"}},
			fields:  map[string]FieldValue{"verificationCode": StringValue("1234")},
			wantErr: map[string]string{"verificationCode": "verification code must be 6 digits"},
		},
		{
			name:    "digits rejects letters",
			rules:   []Rule{{Field: "verificationCode", Type: RuleDigits, Param: "6"}},
			fields:  map[string]FieldValue{"verificationCode": StringValue("12a456")},
			wantErr: map[string]string{"verificationCode": "verification code must be 6 digits"},
		},
		{
			name:    "digits accepts exact code",
			rules:   []Rule{{Field: "verificationCode", Type: RuleDigits, Param: "6"}},
			fields:  map[string]FieldValue{"verificationCode": StringValue("042917")},
			wantErr: map[string]string{},
		},
		{
			name:    "min_value rejects below threshold",
			rules:   []Rule{{Field: "squareFeet", Type: RuleMinValue, Param: "1"}},
			fields:  map[string]FieldValue{"squareFeet": NumberValue(0)},
			wantErr: map[string]string{"squareFeet": "square feet must be at least 1"},
		},
		{
			name:  "lte_field rejects inverted range",
			rules: []Rule{{Field: "minPrice", Type: RuleLTEField, Param: "maxPrice"}},
			fields: map[string]FieldValue{
				"minPrice": NumberValue(500000),
				"maxPrice": NumberValue(200000),
			},
			wantErr: map[string]string{"minPrice": "min price must not exceed max price"},
		},
		{
			name: "first failing rule per field wins",
			rules: []Rule{
				{Field: "email", Type: RuleRequired},
				{Field: "email", Type: RuleEmail},
			},
			fields:  map[string]FieldValue{},
			wantErr: map[string]string{"email": "email is required"},
		},
		{
			name:    "custom message overrides default",
			rules:   []Rule{{Field: "images", Type: RuleRequired, Message: "Add at least one photo"}},
			fields:  map[string]FieldValue{"images": ListValue()},
			wantErr: map[string]string{"images": "Add at least one photo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewFieldStore(nil)
			for k, v := range tt.fields {
				store.SetField(k, v)
			}
			got := ValidateStep(StepDefinition{Name: "s", Rules: tt.rules}, store)
			assert.Equal(t, tt.wantErr, got)
		})
	}
}

func TestValidateStep_DoesNotMutateStore(t *testing.T) {
	store := NewFieldStore(nil)
	step := StepDefinition{Name: "s", Rules: []Rule{{Field: "title", Type: RuleRequired}}}

	errs := ValidateStep(step, store)

	assert.NotEmpty(t, errs)
	assert.Empty(t, store.Errors(), "the validator is pure; the controller applies its result")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "confirm password", label("confirmPassword"))
	assert.Equal(t, "email", label("email"))
	assert.Equal(t, "zip code", label("zipCode"))
}
