package controllers

import (
	"net/http"
	"time"

	"github.com/shoptracker/shoptracker-backend/api/responses"
	"github.com/shoptracker/shoptracker-backend/api/validators"
	"github.com/shoptracker/shoptracker-backend/internal/accounts"
	pkgauth "github.com/shoptracker/shoptracker-backend/pkg/auth"
	"github.com/shoptracker/shoptracker-backend/pkg/config"
	pkgerrors "github.com/shoptracker/shoptracker-backend/pkg/errors"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
}

// AuthLogin checks the credentials against the directory and mints an
// access token carrying the username and role.
func AuthLogin(svc *accounts.Service, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "directory service unavailable"))
			return
		}

		var body LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		acct, err := svc.Authenticate(r.Context(), body.Username, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := pkgauth.MintAccessToken(jwtCfg, time.Now(), pkgauth.AccessTokenPayload{
			Username: acct.Username,
			Role:     acct.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token"))
			return
		}

		responses.WriteSuccess(w, LoginResponse{
			AccessToken: token,
			Username:    acct.Username,
			FullName:    acct.FullName,
			Role:        string(acct.Role),
		})
	}
}

type ForgotPasswordRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

type ForgotPasswordResponse struct {
	TemporaryPassword string `json:"temporary_password"`
}

// AuthForgotPassword resets the credential when the submitted email
// matches the stored one. The temporary credential is returned in the
// response body exactly once; it is never logged.
func AuthForgotPassword(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "directory service unavailable"))
			return
		}

		var body ForgotPasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		temp, err := svc.ResetPassword(r.Context(), body.Username, body.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ForgotPasswordResponse{TemporaryPassword: temp})
	}
}
