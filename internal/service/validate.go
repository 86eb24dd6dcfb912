package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xxxsen/icec/internal/model"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

var validate = validator.New()

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegisterInput(in *RegisterInput) error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	if in.FullName == "" || in.Email == "" || in.Password == "" {
		return appErr.Invalid("all fields are required")
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	return validatePassword(in.Password)
}

func validateEmail(email string) error {
	if email == "" {
		return appErr.Invalid("email is required")
	}
	if err := validate.Var(email, "email,max=255"); err != nil {
		return appErr.Invalid("email is malformed")
	}
	return nil
}

func validatePassword(plain string) error {
	if plain == "" {
		return appErr.Invalid("password is required")
	}
	if len(plain) > maxPasswordBytes {
		return appErr.Invalid("password is too long")
	}
	return nil
}

func validateUserPatch(patch *model.UserPatch) error {
	if patch.FullName == nil && patch.IsAdmin == nil {
		return appErr.Invalid("nothing to update")
	}
	if patch.FullName != nil {
		name := strings.TrimSpace(*patch.FullName)
		if err := validate.Var(name, "required,max=255"); err != nil {
			return appErr.Invalid("fullName must be 1 to 255 characters")
		}
		patch.FullName = &name
	}
	return nil
}
