package main

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/example/userauth/internal/credential"
	"github.com/example/userauth/internal/gate"
	"github.com/example/userauth/internal/policy"
	"github.com/example/userauth/internal/respond"
)

const (
	msgInvalidBody     = "Invalid request body"
	msgInvalidID       = "Invalid ID format"
	msgUserNotFound    = "User not found"
	msgEmailTaken      = "Email already exists"
	msgPayloadTooLarge = "Payload too large"
	msgInternal        = "An unexpected error occurred"
)

// writeAppError translates err into its HTTP status and body. Anything unrecognised is
// logged and reported as a 500 without detail.
func (a *App) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		authErr    *credential.AuthError
		validErr   *validationError
		maxBytesEr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &validErr):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, validErr.msg)
	case errors.As(err, &authErr):
		a.Logger.WithFields(logrus.Fields{"path": r.URL.Path, "reason": authErr.Kind.String()}).Info("sign-in rejected")
		respond.Error(w, http.StatusUnauthorized, respond.CodeInvalidCredentials, credential.InvalidCredentialsMessage)
	case errors.Is(err, gate.ErrUnauthorized), errors.Is(err, gate.ErrTokenInvalid):
		gate.WriteRejection(w, err)
	case errors.Is(err, policy.ErrForbidden):
		respond.Error(w, http.StatusForbidden, respond.CodeForbidden, policy.ErrForbidden.Error())
	case errors.Is(err, credential.ErrDuplicateEmail):
		respond.Error(w, http.StatusConflict, respond.CodeConflict, msgEmailTaken)
	case errors.Is(err, credential.ErrPayloadTooLarge), errors.As(err, &maxBytesEr):
		respond.Error(w, http.StatusRequestEntityTooLarge, respond.CodePayloadTooLarge, msgPayloadTooLarge)
	case errors.Is(err, errUserNotFound):
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, msgUserNotFound)
	default:
		a.Logger.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Error("unhandled error")
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, msgInternal)
	}
}
