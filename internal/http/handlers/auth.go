package handlers

import (
	"fmt"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/event-booking/internal/errors"
	"github.com/pribylovaa/event-booking/internal/models"
)

// Login — вход роли. Токены уходят только в HttpOnly cookie, в теле ответа их нет.
func (h *Handlers) Login(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.LoginRequest
		if err := decodeStrict(r, &in); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		in.Email = strings.TrimSpace(in.Email)
		if in.Email == "" || in.Password == "" {
			apierrors.WriteError(w, r, fmt.Errorf("email and password are required: %w", apierrors.ErrInvalidArgument))
			return
		}

		store, err := storeFrom(r)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		if err := h.role(role).Session.Login(r.Context(), store, in.Email, in.Password); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, models.OKResponse{Ok: true})
	}
}

func (h *Handlers) ForgotPassword(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.ForgotPasswordRequest
		if err := decodeStrict(r, &in); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		in.Email = strings.TrimSpace(in.Email)
		if in.Email == "" {
			apierrors.WriteError(w, r, fmt.Errorf("email is required: %w", apierrors.ErrInvalidArgument))
			return
		}

		if err := h.role(role).Session.ForgotPassword(r.Context(), in.Email); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, models.OKResponse{Ok: true})
	}
}

// Session — текущий пользователь роли. Всегда 200: анонимность и завершённая
// сессия передаются полями ответа.
func (h *Handlers) Session(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFrom(r)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		res := h.role(role).Session.LoggedIn(r.Context(), store)
		writeJSON(w, http.StatusOK, models.SessionResponse{
			Authenticated: res.Profile != nil,
			Profile:       res.Profile,
			Redirect:      res.Redirect,
		})
	}
}

// Logout — выход роли. Идемпотентен.
func (h *Handlers) Logout(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFrom(r)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		nav := h.role(role).Session.Logout(r.Context(), store)
		writeJSON(w, http.StatusOK, models.LogoutResponse{Redirect: nav.Redirect})
	}
}
