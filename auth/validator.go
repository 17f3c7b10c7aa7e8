package auth

import (
	"bubble-relay/errors"
	"fmt"
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	validate        = newValidator()
	usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("complex", func(fl validator.FieldLevel) bool {
		return isPasswordComplex(fl.Field().String())
	})
	return v
}

type RegisterRequest struct {
	Username    string `validate:"required,min=3,max=32,username"`
	Email       string `validate:"required,email,max=254"`
	Password    string `validate:"required,min=12,max=72,complex"`
	Name        string `validate:"max=128"`
	IdentityKey []byte `validate:"omitempty,len=32"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fe := range fieldErrors {
				if fe.Field() == "Password" {
					return fmt.Errorf("%w (%s)", errors.ErrInvalidPassword, fe.Tag())
				}
			}
			return fmt.Errorf("%w: %s failed on %s", errors.ErrInvalidRequest, fieldErrors[0].Field(), fieldErrors[0].Tag())
		}
		return fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
