package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/userauth/internal/credential"
	"github.com/example/userauth/internal/respond"
)

// decodeBody reads a JSON body into dst. An oversized body keeps its *http.MaxBytesError;
// any other failure becomes a 400.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return &validationError{msg: msgInvalidBody}
	}
	return nil
}

func (a *App) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(a.Config.MaxPayloadBytes))

	var req signUpRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		a.writeAppError(w, r, err)
		return
	}

	profile, err := a.Verifier.CreateUser(r.Context(), credential.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.writeAppError(w, r, err)
		return
	}
	a.Logger.WithField("sub", profile.ID).Info("user registered")
	respond.JSON(w, http.StatusCreated, profile)
}

func (a *App) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		a.writeAppError(w, r, err)
		return
	}

	tok, err := a.Verifier.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeAppError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, signInResponse{Token: tok})
}

func (a *App) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := a.Gate.SignOut(r.Header.Get("Authorization")); err != nil {
		a.writeAppError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Message{Message: "Signed out successfully."})
}

func (a *App) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.DB.Ping(r.Context()); err != nil {
		a.Logger.WithError(err).Warn("readiness check failed")
		respond.JSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"ready": true})
}
