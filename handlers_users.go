package main

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/example/userauth/internal/credential"
	"github.com/example/userauth/internal/gate"
	"github.com/example/userauth/internal/policy"
	"github.com/example/userauth/internal/respond"
	"github.com/example/userauth/internal/token"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 10000
)

// pathUserID returns the {id} route variable if it is a UUID.
func pathUserID(r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (a *App) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	page, okPage := queryInt(r, "page", 1)
	limit, okLimit := queryInt(r, "limit", defaultPageLimit)
	if !okPage || !okLimit {
		a.writeAppError(w, r, &validationError{msg: "Invalid pagination parameters"})
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	users, err := a.DB.ListUsers(r.Context(), (page-1)*limit, limit)
	if err != nil {
		a.writeAppError(w, r, err)
		return
	}
	profiles := make([]*credential.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, credential.ProfileOf(u))
	}
	respond.JSON(w, http.StatusOK, profiles)
}

func (a *App) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(r)
	if !ok {
		a.writeAppError(w, r, &validationError{msg: msgInvalidID})
		return
	}
	u, err := a.DB.GetUserByID(r.Context(), id)
	if err != nil {
		a.writeAppError(w, r, err)
		return
	}
	if u == nil {
		a.writeAppError(w, r, errUserNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, credential.ProfileOf(u))
}

func (a *App) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(r)
	if !ok {
		a.writeAppError(w, r, &validationError{msg: msgInvalidID})
		return
	}
	caller, _ := gate.FromContext(r.Context())
	if !policy.SelfOrAdmin(caller, id) {
		a.writeAppError(w, r, policy.ErrForbidden)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(a.Config.MaxPayloadBytes))
	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		a.writeAppError(w, r, err)
		return
	}

	u, err := a.DB.GetUserByID(r.Context(), id)
	if err != nil {
		a.writeAppError(w, r, err)
		return
	}
	if u == nil {
		a.writeAppError(w, r, errUserNotFound)
		return
	}

	if req.Role != nil && *req.Role != u.Role {
		if caller.Role != token.RoleAdmin {
			a.writeAppError(w, r, policy.ErrForbidden)
			return
		}
		u.Role = *req.Role
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = *req.Email
	}

	saved, err := a.DB.Save(r.Context(), u)
	if err != nil {
		a.writeAppError(w, r, err)
		return
	}
	a.Logger.WithFields(logrus.Fields{"sub": caller.Subject, "target": id}).Info("user updated")
	respond.JSON(w, http.StatusOK, credential.ProfileOf(saved))
}

func (a *App) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(r)
	if !ok {
		a.writeAppError(w, r, &validationError{msg: msgInvalidID})
		return
	}
	caller, _ := gate.FromContext(r.Context())
	if !policy.SelfOrAdmin(caller, id) {
		a.writeAppError(w, r, policy.ErrForbidden)
		return
	}

	deleted, err := a.DB.DeleteUser(r.Context(), id)
	if err != nil {
		a.writeAppError(w, r, err)
		return
	}
	if !deleted {
		a.writeAppError(w, r, errUserNotFound)
		return
	}
	a.Logger.WithFields(logrus.Fields{"sub": caller.Subject, "target": id}).Info("user deleted")
	w.WriteHeader(http.StatusNoContent)
}
