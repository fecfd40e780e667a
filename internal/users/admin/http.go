// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/parseadmin/internal/platform/request"
	"github.com/taibuivan/parseadmin/internal/platform/respond"
	"github.com/taibuivan/parseadmin/internal/platform/sec"
	"github.com/taibuivan/parseadmin/internal/platform/validate"
	"github.com/taibuivan/parseadmin/internal/rest"
)

// # Definitions & Constructors

// Handler exposes admin signup and the public email link endpoints.
type Handler struct {
	controller *Controller
	appID      string
}

// NewHandler constructs a new [Handler]. appID guards the public link routes.
func NewHandler(controller *Controller, appID string) *Handler {
	return &Handler{controller: controller, appID: appID}
}

// Routes returns the admin user router.
//
// # Endpoints
//   - POST /users                                : Create an admin (admins only, open for the first one)
//   - GET  /apps/{appId}/verify_email            : Consume an email verification link
//   - GET  /apps/{appId}/request_password_reset  : Check a password reset link
//   - POST /apps/{appId}/request_password_reset  : Reset the password with a reset link
//   - POST /requestPasswordReset                 : Email a password reset link
//   - POST /verificationEmailRequest             : Email a new verification link
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/users", handler.signUp)

	router.Route("/apps/{appId}", func(r chi.Router) {
		r.Use(handler.requireApp)
		r.Get("/verify_email", handler.verifyEmail)
		r.Get("/request_password_reset", handler.checkResetToken)
		r.Post("/request_password_reset", handler.resetPassword)
	})

	router.Post("/requestPasswordReset", handler.requestPasswordReset)
	router.Post("/verificationEmailRequest", handler.verificationEmailRequest)

	return router
}

// requireApp rejects link routes addressed to another application id.
func (handler *Handler) requireApp(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if requestutil.Param(request, "appId") != handler.appID {
			respond.Error(writer, request, apperr.NotFound("App"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// # Request Payloads

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type resetPasswordRequest struct {
	Username    string `json:"username"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

/*
signUp creates an admin account.

POST /api/v1/admin/users

Description: Requires an authenticated admin, except while no admin exists
yet: the very first account can be created anonymously and is always an admin.

Response:
  - 201: the created user without internal fields
  - 400: VALIDATION_ERROR
  - 401/403: caller may not create admins
  - 409: CONFLICT on a taken username or email
*/
func (handler *Handler) signUp(writer http.ResponseWriter, request *http.Request) {
	var input signUpRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength)
	if input.Email != "" {
		validator.Email(FieldEmail, input.Email)
	}
	if input.Role != "" {
		validator.OneOf(FieldRole, input.Role, string(sec.RoleAdmin), string(sec.RoleViewer))
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	signUp := SignUpInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		Role:     sec.ParseRole(input.Role),
	}

	var (
		created rest.Record
		err     error
	)
	switch {
	case requestutil.Claims(request) == nil:
		created, err = handler.controller.BootstrapAdmin(request.Context(), signUp)
	case !ctxutil.HasRole(request.Context(), sec.RoleAdmin):
		err = apperr.Forbidden("Insufficient permissions")
	default:
		created, err = handler.controller.SignUp(request.Context(), signUp)
	}
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, PublicView(created))
}

func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	username := request.URL.Query().Get(FieldUsername)
	token := request.URL.Query().Get("token")

	if username == "" || token == "" {
		respond.Error(writer, request, apperr.InvalidToken("Invalid verification link"))
		return
	}

	result, err := handler.controller.VerifyEmail(request.Context(), username, token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if result.User == nil {
		respond.Error(writer, request, apperr.InvalidToken("Invalid verification link"))
		return
	}

	status := "verified"
	if result.AlreadyVerified {
		status = "already_verified"
	}

	respond.OK(writer, map[string]any{
		"status":   status,
		"username": username,
	})
}

func (handler *Handler) checkResetToken(writer http.ResponseWriter, request *http.Request) {
	username := request.URL.Query().Get(FieldUsername)
	token := request.URL.Query().Get("token")

	if _, err := handler.controller.CheckResetTokenValidity(request.Context(), username, token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"valid":    true,
		"username": username,
	})
}

func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required("token", input.Token).
		Required("new_password", input.NewPassword).
		MinLen("new_password", input.NewPassword, MinPasswordLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.controller.UpdatePassword(request.Context(), input.Username, input.Token, input.NewPassword)
	if failure, ok := IsResetFailure(err); ok {
		respond.Error(writer, request, apperr.ValidationError(failure.Message))
		return
	}
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	ctxutil.GetLogger(request.Context()).Info("password_reset_via_link", "username", input.Username)
	respond.OK(writer, map[string]any{"status": "password_changed"})
}

func (handler *Handler) requestPasswordReset(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.controller.SendPasswordResetEmail(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{})
}

func (handler *Handler) verificationEmailRequest(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.controller.ResendVerificationEmail(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{})
}
