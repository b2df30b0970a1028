// AngelaMos | 2026
// validation.go

package core

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

var (
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	httpURLPattern  = regexp.MustCompile(`(?i)^(https?:)//([\w.-]+)(:[0-9]+)?(/.*)?$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,30}$`)
)

// SocialHosts are the domains accepted for social profile links.
var SocialHosts = []string{
	"linkedin.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"facebook.com",
	"wa.me",
	"whatsapp.com",
}

// NewValidator returns a validator that reports json field names and knows
// the card-specific tags: username, phone, http_url and social_url.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // tags are static and valid
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return IsValidUsername(fl.Field().String())
	})
	//nolint:errcheck // tags are static and valid
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
	//nolint:errcheck // tags are static and valid
	_ = v.RegisterValidation("http_url", func(fl validator.FieldLevel) bool {
		return IsValidHTTPURL(fl.Field().String())
	})
	//nolint:errcheck // tags are static and valid
	_ = v.RegisterValidation("social_url", func(fl validator.FieldLevel) bool {
		return IsValidSocialURL(fl.Field().String())
	})

	return v
}

func IsValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// IsValidPhone accepts international numbers with or without the leading
// plus sign, as long as libphonenumber considers them possible.
func IsValidPhone(s string) bool {
	cleaned := strings.TrimSpace(s)
	if !phonePattern.MatchString(cleaned) {
		return false
	}

	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}

	num, err := phonenumbers.Parse(cleaned, "")
	if err != nil {
		return false
	}

	return phonenumbers.IsPossibleNumber(num)
}

func IsValidHTTPURL(s string) bool {
	if !httpURLPattern.MatchString(s) {
		return false
	}
	_, err := url.Parse(s)
	return err == nil
}

func IsValidSocialURL(s string) bool {
	if !IsValidHTTPURL(s) {
		return false
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	for _, domain := range SocialHosts {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	return false
}

func FormatValidationError(err error) string {
	fields := FieldErrors(err)
	if len(fields) == 0 {
		return "invalid request"
	}

	parts := make([]string, 0, len(fields))
	for field, msg := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}

	return strings.Join(parts, "; ")
}

// FieldErrors maps each failing field to a message suitable for inline display.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}

	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "eqfield":
		return fmt.Sprintf("must match %s", fe.Param())
	case "username":
		return "must be 3-30 characters of letters, digits, '.', '_' or '-' with no spaces"
	case "phone":
		return "enter a valid phone in international format (e.g. +919876543210)"
	case "http_url":
		return "enter a valid URL starting with http:// or https://"
	case "social_url":
		return "enter a valid link on " + strings.Join(SocialHosts, ", ")
	default:
		return "is invalid"
	}
}
