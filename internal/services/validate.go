package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"dayly-backend/internal/apperr"
)

var (
	phoneRE = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	otpRE   = regexp.MustCompile(`^\d{6}$`)
)

const maxGroupNameLen = 50

// ValidatePhone checks E.164 format: "+" followed by 2-15 digits, first
// digit non-zero.
func ValidatePhone(phone string) error {
	if !phoneRE.MatchString(phone) {
		return apperr.Newf(apperr.InvalidInput, "invalid phone number %q", phone)
	}
	return nil
}

// ValidateGroupName trims the name and checks length bounds, returning
// the trimmed name.
func ValidateGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.New(apperr.InvalidInput, "group name is required")
	}
	if utf8.RuneCountInString(name) > maxGroupNameLen {
		return "", apperr.Newf(apperr.InvalidInput, "group name exceeds %d characters", maxGroupNameLen)
	}
	return name, nil
}

func validateOTP(code string) error {
	if !otpRE.MatchString(code) {
		return apperr.New(apperr.InvalidInput, "verification code must be 6 digits")
	}
	return nil
}
