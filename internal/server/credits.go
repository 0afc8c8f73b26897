package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/verse91/clipy/internal/shared"
)

// CreditStore reads and changes credit balances.
type CreditStore interface {
	Credits(userID string) (int, error)
	SetCredits(userID string, credits int) error
	AddCredits(userID string, credits int) (int, error)
}

// CreditsHandler serves the credits API under /api/v1/user/{userID}/credits.
type CreditsHandler struct {
	store  CreditStore
	logger *log.Logger
	mux    chi.Router
}

// NewCreditsHandler creates a handler reading balances with a bearer token signed by jwtSecret
// and changing them with adminKey.
func NewCreditsHandler(store CreditStore, jwtSecret, adminKey string, logger *log.Logger) *CreditsHandler {
	h := &CreditsHandler{store: store, logger: logger}

	mux := chi.NewRouter()
	mux.With(UserAuth(jwtSecret)).Get("/api/v1/user/{userID}/credits", h.get)
	mux.With(AdminOnly(adminKey)).Post("/api/v1/user/{userID}/credits/update", h.update)
	mux.With(AdminOnly(adminKey)).Post("/api/v1/user/{userID}/credits/add", h.add)
	h.mux = mux

	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *CreditsHandler) Routes() []string {
	return []string{
		"/api/v1/user/{userID}/credits",
		"/api/v1/user/{userID}/credits/update",
		"/api/v1/user/{userID}/credits/add",
	}
}

// ServeHTTP dispatches to the balance, update and add endpoints.
func (h *CreditsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *CreditsHandler) get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	credits, err := h.store.Credits(userID)
	if errors.Is(err, shared.ErrUserNotFound) {
		credits, err = 0, nil
	}
	if err != nil {
		h.logger.Error("failed to get user credits", "user_id", userID, "error", err)
		Fail(w, r, http.StatusInternalServerError, "Failed to get user credits")
		return
	}

	Success(w, r, map[string]any{
		"user_id": userID,
		"credits": credits,
	})
}

func (h *CreditsHandler) update(w http.ResponseWriter, r *http.Request) {
	userID, credits, ok := creditsParams(w, r)
	if !ok {
		return
	}
	if credits < 0 {
		Fail(w, r, http.StatusBadRequest, "Credits cannot be negative")
		return
	}

	if err := h.store.SetCredits(userID, credits); err != nil {
		h.logger.Error("failed to update user credits", "user_id", userID, "error", err)
		Fail(w, r, http.StatusInternalServerError, "Failed to update user credits")
		return
	}

	h.logger.Info("credits updated", "user_id", userID, "credits", credits)
	Success(w, r, map[string]any{
		"user_id": userID,
		"credits": credits,
		"message": "Credits updated successfully",
	})
}

func (h *CreditsHandler) add(w http.ResponseWriter, r *http.Request) {
	userID, credits, ok := creditsParams(w, r)
	if !ok {
		return
	}
	if credits <= 0 {
		Fail(w, r, http.StatusBadRequest, "Credits must be positive")
		return
	}

	total, err := h.store.AddCredits(userID, credits)
	if err != nil {
		h.logger.Error("failed to add user credits", "user_id", userID, "error", err)
		Fail(w, r, http.StatusInternalServerError, "Failed to add user credits")
		return
	}

	h.logger.Info("credits added", "user_id", userID, "added", credits, "total", total)
	Success(w, r, map[string]any{
		"user_id":       userID,
		"credits_added": credits,
		"credits":       total,
		"message":       "Credits added successfully",
	})
}

func creditsParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		Fail(w, r, http.StatusBadRequest, "User ID is required")
		return "", 0, false
	}

	credits, err := strconv.Atoi(r.FormValue("credits"))
	if err != nil {
		Fail(w, r, http.StatusBadRequest, "Invalid credits value")
		return "", 0, false
	}
	return userID, credits, true
}

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	Success(w, r, map[string]string{"status": "ok"})
}
