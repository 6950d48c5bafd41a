package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoptracker/shoptracker-backend/api/middleware"
	"github.com/shoptracker/shoptracker-backend/api/responses"
	"github.com/shoptracker/shoptracker-backend/api/validators"
	"github.com/shoptracker/shoptracker-backend/internal/access"
	"github.com/shoptracker/shoptracker-backend/internal/accounts"
	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/enums"
	pkgerrors "github.com/shoptracker/shoptracker-backend/pkg/errors"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
)

type UserPayload struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func toUserPayload(acct *models.Account) UserPayload {
	return UserPayload{
		Username:  acct.Username,
		FullName:  acct.FullName,
		Email:     acct.Email,
		Role:      string(acct.Role),
		IsActive:  acct.IsActive,
		CreatedAt: acct.CreatedAt.Format(time.RFC3339),
	}
}

func toUserPayloads(list []*models.Account) []UserPayload {
	out := make([]UserPayload, 0, len(list))
	for _, acct := range list {
		out = append(out, toUserPayload(acct))
	}
	return out
}

// UsersList returns the directory, filtered by the q parameter when
// present. Credentials never leave the service.
func UsersList(svc *accounts.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageUsers(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage users"))
			return
		}

		if q := r.URL.Query().Get("q"); q != "" {
			responses.WriteSuccess(w, toUserPayloads(svc.SearchUsers(q)))
			return
		}
		responses.WriteSuccess(w, toUserPayloads(svc.ListUsers()))
	}
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=admin manager user"`
}

func UsersCreate(svc *accounts.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageUsers(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage users"))
			return
		}

		var body CreateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		acct := &models.Account{
			Username: body.Username,
			Password: body.Password,
			FullName: body.FullName,
			Email:    body.Email,
			Role:     role,
			IsActive: true,
		}
		if !svc.CreateUser(r.Context(), actor, acct) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "username already taken"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toUserPayload(acct))
	}
}

func UsersDelete(svc *accounts.Service, policy *access.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !policy.CanManageUsers(actor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage users"))
			return
		}

		username := chi.URLParam(r, "username")
		if !svc.DeleteUser(r.Context(), actor, username) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"username": username, "status": "deleted"})
	}
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin manager user"`
}

// UsersChangeRole relies on the service's typed failures: the response
// distinguishes a forbidden caller from a missing target.
func UsersChangeRole(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		username := chi.URLParam(r, "username")

		var body ChangeRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		if err := svc.ChangeUserRole(r.Context(), actor, username, role); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"username": username, "role": string(role)})
	}
}
