package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verse91/clipy/internal/repositories"
	"github.com/verse91/clipy/internal/shared"
)

type failingStore struct{}

func (failingStore) Credits(string) (int, error)         { return 0, errors.New("db down") }
func (failingStore) SetCredits(string, int) error        { return errors.New("db down") }
func (failingStore) AddCredits(string, int) (int, error) { return 0, errors.New("db down") }

func setupCreditsRouter(t *testing.T, store CreditStore) *BasicRouter {
	t.Helper()
	if store == nil {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create test database: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		store = repositories.NewProfileRepository(db)
	}

	router := NewBasicRouter()
	router.Handler(NewCreditsHandler(store, testSecret, "admin", shared.NewLogger(&bytes.Buffer{})))
	return router
}

func postCredits(router http.Handler, path, value, key string) *httptest.ResponseRecorder {
	form := url.Values{"credits": {value}}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getCredits(t *testing.T, router http.Handler, userID string) *httptest.ResponseRecorder {
	t.Helper()
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": userID})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/"+userID+"/credits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreditsHandler(t *testing.T) {
	t.Run("Get New User", func(t *testing.T) {
		router := setupCreditsRouter(t, nil)
		w := getCredits(t, router, "u1")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		env := decodeEnvelope(t, w.Body.Bytes())
		data := env.Data.(map[string]any)
		if env.Code != SuccessCode || data["user_id"] != "u1" || data["credits"] != float64(0) {
			t.Errorf("unexpected envelope %+v", env)
		}
	})

	t.Run("Add Then Get", func(t *testing.T) {
		router := setupCreditsRouter(t, nil)

		w := postCredits(router, "/api/v1/user/u1/credits/add", "60", "admin")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		data := decodeEnvelope(t, w.Body.Bytes()).Data.(map[string]any)
		if data["credits_added"] != float64(60) || data["message"] != "Credits added successfully" {
			t.Errorf("unexpected add response %v", data)
		}

		postCredits(router, "/api/v1/user/u1/credits/add", "250", "admin")

		data = decodeEnvelope(t, getCredits(t, router, "u1").Body.Bytes()).Data.(map[string]any)
		if data["credits"] != float64(310) {
			t.Errorf("expected 310 credits, got %v", data["credits"])
		}
	})

	t.Run("Update", func(t *testing.T) {
		router := setupCreditsRouter(t, nil)
		postCredits(router, "/api/v1/user/u1/credits/add", "60", "admin")

		w := postCredits(router, "/api/v1/user/u1/credits/update", "5", "admin")
		data := decodeEnvelope(t, w.Body.Bytes()).Data.(map[string]any)
		if data["credits"] != float64(5) || data["message"] != "Credits updated successfully" {
			t.Errorf("unexpected update response %v", data)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		router := setupCreditsRouter(t, nil)
		tc := []struct {
			path    string
			value   string
			key     string
			status  int
			message string
		}{
			{"/api/v1/user/u1/credits/update", "abc", "admin", http.StatusBadRequest, "Invalid credits value"},
			{"/api/v1/user/u1/credits/update", "-1", "admin", http.StatusBadRequest, "Credits cannot be negative"},
			{"/api/v1/user/u1/credits/add", "0", "admin", http.StatusBadRequest, "Credits must be positive"},
			{"/api/v1/user/u1/credits/add", "5", "", http.StatusUnauthorized, "Admin authentication required"},
			{"/api/v1/user/u1/credits/add", "5", "wrong", http.StatusForbidden, "Invalid admin credentials"},
		}

		for _, tt := range tc {
			w := postCredits(router, tt.path, tt.value, tt.key)
			if w.Code != tt.status {
				t.Errorf("%s %s: expected %d, got %d", tt.path, tt.value, tt.status, w.Code)
			}
			if env := decodeEnvelope(t, w.Body.Bytes()); env.Message != tt.message {
				t.Errorf("%s %s: expected %q, got %q", tt.path, tt.value, tt.message, env.Message)
			}
		}
	})

	t.Run("Store Failure", func(t *testing.T) {
		router := setupCreditsRouter(t, failingStore{})

		w := getCredits(t, router, "u1")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
		if env := decodeEnvelope(t, w.Body.Bytes()); env.Message != "Failed to get user credits" {
			t.Errorf("unexpected message %q", env.Message)
		}

		if w := postCredits(router, "/api/v1/user/u1/credits/add", "1", "admin"); w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500 on add, got %d", w.Code)
		}
	})

	t.Run("Wrong Method", func(t *testing.T) {
		router := setupCreditsRouter(t, nil)
		w := postCredits(router, "/api/v1/user/u1/credits", "1", "admin")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	env := decodeEnvelope(t, w.Body.Bytes())
	if env.Code != SuccessCode || env.Data.(map[string]any)["status"] != "ok" {
		t.Errorf("unexpected health envelope %+v", env)
	}
}
