package main

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/example/userauth/internal/token"
)

var validate = validator.New()

type signUpRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=255"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signInResponse struct {
	Token string `json:"token"`
}

// updateUserRequest carries only the fields the caller wants to change.
type updateUserRequest struct {
	Name  *string     `json:"name" validate:"omitempty,min=1,max=255"`
	Email *string     `json:"email" validate:"omitempty,email,max=255"`
	Role  *token.Role `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// validationMessages maps "Field.tag" to the message returned to clients.
var validationMessages = map[string]string{
	"Name.required":     "Name is required",
	"Name.min":          "Name must be between 1 and 255 characters",
	"Name.max":          "Name must be between 1 and 255 characters",
	"Email.required":    "Email is required",
	"Email.email":       "Invalid email format",
	"Email.max":         "Email must not exceed 255 characters",
	"Password.required": "Password is required",
	"Password.min":      "Password must be between 8 and 255 characters",
	"Password.max":      "Password must be between 8 and 255 characters",
	"Role.oneof":        "Role must be USER or ADMIN",
}

// validationError is a client-facing validation failure.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

// validateRequest checks v against its validate tags and returns the first failure as a
// *validationError.
func validateRequest(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	if msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]; ok {
		return &validationError{msg: msg}
	}
	return &validationError{msg: fe.Field() + " is invalid"}
}
