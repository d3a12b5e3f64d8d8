// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nagaralert/hub/internal/auth"
	"github.com/nagaralert/hub/internal/models"
	"github.com/nagaralert/hub/internal/store"
)

// activeWindow is how recent a user's last activity must be to count as
// active.
const activeWindow = 15 * time.Minute

type registerRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name"`
	Mobile    string  `json:"mobile" validate:"required,numeric,min=10,max=15"`
	Password  string  `json:"password" validate:"required,min=8"`
	Area      string  `json:"area"`
	Lat       float64 `json:"lat" validate:"omitempty,latitude"`
	Lng       float64 `json:"lng" validate:"omitempty,longitude"`
}

type loginRequest struct {
	Mobile   string `json:"mobile" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateLocationRequest struct {
	Mobile string  `json:"mobile" validate:"required"`
	Area   string  `json:"area"`
	Lat    float64 `json:"lat" validate:"omitempty,latitude"`
	Lng    float64 `json:"lng" validate:"omitempty,longitude"`
}

type patchUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Area      string `json:"area"`
	Role      string `json:"role" validate:"omitempty,oneof=user admin"`
}

// profileSummary is the user shape returned by account endpoints; it never
// includes the password hash.
func profileSummary(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"mobile":     u.Mobile,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       u.Role,
		"area":       u.Area,
		"location":   u.Location,
	}
}

// RegisterUser handles POST /api/v1/users/register.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if _, err := h.store.GetUser(r.Context(), req.Mobile); err == nil {
		respondError(w, http.StatusConflict, "ALREADY_EXISTS", "A user with this mobile number already exists", nil)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to check existing user", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process password", err)
		return
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Mobile:       req.Mobile,
		PasswordHash: hash,
		Role:         "user",
		Area:         req.Area,
		LastActive:   time.Now().UTC(),
	}
	if req.Lat != 0 || req.Lng != 0 {
		user.Location = &models.Location{Latitude: req.Lat, Longitude: req.Lng}
	}

	if err := h.store.SaveUser(r.Context(), user); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to save user", err)
		return
	}

	respondData(w, http.StatusCreated, profileSummary(user))
}

// Login handles POST /api/v1/users/login. A successful login returns a JWT
// with the user's role claim.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	user, err := h.store.GetUser(r.Context(), req.Mobile)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		// Same answer for unknown user and wrong password.
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Mobile number or password is incorrect", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load user", err)
		return
	}

	token, err := h.jwt.GenerateToken(user.Mobile, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token", err)
		return
	}

	user.LastActive = time.Now().UTC()
	if err := h.store.SaveUser(r.Context(), user); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to update user", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  profileSummary(user),
	})
}

// UpdateLocation handles POST /api/v1/users/update-location.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	user, err := h.store.GetUser(r.Context(), req.Mobile)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load user", err)
		return
	}

	if req.Area != "" {
		user.Area = req.Area
	}
	if req.Lat != 0 || req.Lng != 0 {
		user.Location = &models.Location{Latitude: req.Lat, Longitude: req.Lng}
	}
	user.LastActive = time.Now().UTC()

	if err := h.store.SaveUser(r.Context(), user); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to save user", err)
		return
	}
	respondData(w, http.StatusOK, profileSummary(user))
}

// ActiveUsers handles GET /api/v1/users/active.
func (h *Handler) ActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.GetUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list users", err)
		return
	}

	cutoff := time.Now().UTC().Add(-activeWindow)
	active := make([]map[string]interface{}, 0)
	for _, user := range users {
		if user.LastActive.After(cutoff) {
			active = append(active, profileSummary(&user))
		}
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"count": len(active),
		"users": active,
	})
}

// GetUser handles GET /api/v1/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.store.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load user", err)
		return
	}
	respondData(w, http.StatusOK, profileSummary(user))
}

// PatchUser handles PATCH /api/v1/users/{id}. Role changes require the
// admin role, enforced by routing.
func (h *Handler) PatchUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req patchUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load user", err)
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Area != "" {
		user.Area = req.Area
	}
	if req.Role != "" {
		user.Role = req.Role
	}

	if err := h.store.SaveUser(r.Context(), user); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to save user", err)
		return
	}
	respondData(w, http.StatusOK, profileSummary(user))
}
