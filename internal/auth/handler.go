package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

const stateCookie = "oauth_state"

type Handler struct {
	Service      *Service
	OAuth2Config *oauth2.Config
}

func NewHandler(svc *Service) *Handler {
	redirectURL := fmt.Sprintf("%s/api/auth/google/callback", svc.Config.Host)
	oauth2Config := &oauth2.Config{
		ClientID:     svc.Config.GoogleClientID,
		ClientSecret: svc.Config.GoogleClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
	return &Handler{Service: svc, OAuth2Config: oauth2Config}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	usr, err := h.Service.Register(r.Context(), req)
	if err != nil {
		wallet.WriteError(w, err, "Failed to register")
		return
	}

	h.respondWithToken(w, http.StatusCreated, "Registration successful", *usr)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	usr, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			utils.BuildErrorResponse(w, http.StatusUnauthorized, err.Error(), nil)
			return
		}
		wallet.WriteError(w, err, "Failed to log in")
		return
	}

	h.respondWithToken(w, http.StatusOK, "Login successful", *usr)
}

func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to start login", nil)
		return
	}
	state := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.OAuth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid OAuth state", nil)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Code not found", nil)
		return
	}

	token, err := h.OAuth2Config.Exchange(r.Context(), code)
	if err != nil {
		logger.Warn("Google token exchange failed", logger.WithError(err))
		utils.BuildErrorResponse(w, http.StatusBadGateway, "Failed to exchange token", nil)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		utils.BuildErrorResponse(w, http.StatusBadGateway, "No id_token field in oauth2 token", nil)
		return
	}

	payload, err := idtoken.Validate(r.Context(), rawIDToken, h.Service.Config.GoogleClientID)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Failed to validate ID token", nil)
		return
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Google account has no email", nil)
		return
	}
	if name == "" {
		name = email
	}

	usr, err := h.Service.LoginWithGoogle(r.Context(), payload.Subject, email, name)
	if err != nil {
		wallet.WriteError(w, err, "Failed to sign in with Google")
		return
	}

	h.respondWithToken(w, http.StatusOK, "Login successful", *usr)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, status int, message string, usr user.User) {
	token, expiresAt, err := h.Service.IssueToken(usr)
	if err != nil {
		logger.Error("Failed to generate token", logger.WithError(err))
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to generate token", nil)
		return
	}

	utils.BuildSuccessResponse(w, status, message, map[string]interface{}{
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
		"user":      usr,
	})
}
