package auth

import (
	ierr "github.com/kewsys/registry/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to created, reset and changed passwords
const MinPasswordLength = 6

// HashPassword is the pre-persist transform applied to every stored password
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ierr.NewErrorf("password must be at least %d characters", MinPasswordLength).
			WithHintf("Password must be at least %d characters", MinPasswordLength).
			WithReportableDetails(map[string]any{
				"violations": []map[string]string{{"field": "password", "message": "password is too short"}},
			}).
			Mark(ierr.ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to hash password").
			Mark(ierr.ErrSystem)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
