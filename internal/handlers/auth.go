package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicbook/clinicbook/internal/auth"
	"github.com/clinicbook/clinicbook/internal/model"
	"github.com/clinicbook/clinicbook/internal/storage"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// Register creates a patient account. Doctors are provisioned by admins
// through the doctors endpoint.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "name, email and password required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         model.RolePatient,
	}
	patient := model.Patient{ID: uuid.NewString(), UserID: user.ID}

	if err := h.repo.CreatePatient(r.Context(), user, patient); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		h.logger.Error("patient registration failed", "err", err)
		http.Error(w, "failed to create account", http.StatusInternalServerError)
		return
	}

	h.logger.Info("patient registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":    user.ID,
		"patient_id": patient.ID,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	user, err := h.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.Error("login lookup failed", "err", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	claims := auth.Claims{
		Sub:  user.ID,
		Role: string(user.Role),
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(h.tokenTTL).Unix(),
	}
	switch user.Role {
	case model.RoleDoctor:
		doctor, err := h.repo.GetDoctorByUser(r.Context(), user.ID)
		if err != nil {
			h.logger.Error("doctor profile lookup failed", "user_id", user.ID, "err", err)
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		claims.DoctorID = doctor.ID
	case model.RolePatient:
		patient, err := h.repo.GetPatientByUser(r.Context(), user.ID)
		if err != nil {
			h.logger.Error("patient profile lookup failed", "user_id", user.ID, "err", err)
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		claims.PatientID = patient.ID
	}

	token, err := auth.SignHS256(claims, h.jwtSecret)
	if err != nil {
		http.Error(w, "failed to sign token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Role:        string(user.Role),
	})
}
