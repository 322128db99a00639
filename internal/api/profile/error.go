package profile

import (
	"net/http"

	"PanoGuard/pkg/response"
)

var (
	ErrEmailAlreadyInUse  = response.NewError(http.StatusConflict, "email already in use")
	ErrInvalidCredentials = response.NewError(http.StatusBadRequest, "email or password is wrong")
	ErrProfileNotFound    = response.NewError(http.StatusNotFound, "profile not found")
	ErrCreateProfile      = response.NewError(http.StatusInternalServerError, "failed to create profile")
	ErrUpdateProfile      = response.NewError(http.StatusInternalServerError, "failed to update profile")
)
