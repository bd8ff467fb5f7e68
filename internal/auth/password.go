// internal/auth/password.go
package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/uracles/mini-wallet-application/internal/apperr"
)

const minPasswordLength = 8

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "failed to hash password", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the registration password policy: minimum
// length plus at least one upper-case letter, one lower-case letter and one
// digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.Newf(apperr.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return apperr.New(apperr.CodeValidation, "password must contain upper-case, lower-case and digit characters")
	}
	return nil
}
