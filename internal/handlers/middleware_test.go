package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"familystars/internal/database"
	"familystars/internal/models"
	"familystars/internal/repository"
	"familystars/internal/security"
	"familystars/internal/service"
)

func testMiddleware() *Middleware {
	return NewMiddleware(nil, nil, security.NewCSRFGenerator("test-secret"), security.NewRateLimiter(2, time.Minute))
}

func withAuth(r *http.Request, auth *Auth) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), AuthContextKey, auth))
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	mw := testMiddleware()
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without a session")
	})

	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest("GET", "/api/tasks", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthRejectsProfilelessSession(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "middleware_test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	authService := service.NewAuthService(userRepo, familyRepo, profileRepo, invitationRepo, time.Hour)
	familyService := service.NewFamilyService(familyRepo, profileRepo, invitationRepo)
	mw := NewMiddleware(authService, familyService, security.NewCSRFGenerator("test-secret"), security.NewRateLimiter(100, time.Minute))

	// A credential row without a profile must never reach a handler,
	// even with a live session cookie
	result, err := db.Exec("INSERT INTO users (email, password_hash, name) VALUES (?, ?, ?)", "ghost@example.com", "x", "Ghost")
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	userID, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get user id: %v", err)
	}
	sessionID := security.GenerateSessionID()
	if _, err := userRepo.CreateSession(sessionID, userID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		auth := GetAuth(r.Context())
		t.Errorf("handler ran with auth %+v", auth)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
	handler(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
}

func TestGetAuth(t *testing.T) {
	auth := &Auth{Profile: &models.Profile{ID: 7, Role: models.RoleChild}, SessionID: "s1", IsChild: true}
	req := withAuth(httptest.NewRequest("GET", "/api/tasks", nil), auth)

	got := GetAuth(req.Context())
	if got == nil || got.Profile.ID != 7 || !got.IsChild {
		t.Errorf("GetAuth = %+v, want the stored auth", got)
	}

	if GetAuth(context.Background()) != nil {
		t.Error("GetAuth on empty context should return nil")
	}
}

func TestCSRFProtect(t *testing.T) {
	mw := testMiddleware()
	csrf := security.NewCSRFGenerator("test-secret")

	auth := &Auth{Profile: &models.Profile{ID: 1, Role: models.RoleParent}, SessionID: "session-abc"}
	token, err := csrf.GenerateToken(auth.SessionID)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	called := false
	handler := mw.CSRFProtect(func(w http.ResponseWriter, r *http.Request) { called = true })

	t.Run("valid token passes", func(t *testing.T) {
		called = false
		req := withAuth(httptest.NewRequest("POST", "/api/tasks", nil), auth)
		req.Header.Set("X-CSRF-Token", token)
		handler(httptest.NewRecorder(), req)
		if !called {
			t.Error("expected handler to run with a valid token")
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		called = false
		recorder := httptest.NewRecorder()
		handler(recorder, withAuth(httptest.NewRequest("POST", "/api/tasks", nil), auth))
		if called {
			t.Error("handler ran without a token")
		}
		if recorder.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", recorder.Code, http.StatusForbidden)
		}
	})

	t.Run("token bound to other session rejected", func(t *testing.T) {
		called = false
		otherToken, err := csrf.GenerateToken("different-session")
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		recorder := httptest.NewRecorder()
		req := withAuth(httptest.NewRequest("POST", "/api/tasks", nil), auth)
		req.Header.Set("X-CSRF-Token", otherToken)
		handler(recorder, req)
		if called {
			t.Error("handler ran with a foreign token")
		}
		if recorder.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", recorder.Code, http.StatusForbidden)
		}
	})

	t.Run("GET skips the check", func(t *testing.T) {
		called = false
		handler(httptest.NewRecorder(), withAuth(httptest.NewRequest("GET", "/api/tasks", nil), auth))
		if !called {
			t.Error("expected GET to bypass CSRF validation")
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	mw := testMiddleware()
	handler := mw.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, recorder.Code, http.StatusOK)
		}
	}

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler(recorder, req)
	if recorder.Code != http.StatusTooManyRequests {
		t.Errorf("status after limit = %d, want %d", recorder.Code, http.StatusTooManyRequests)
	}

	// A different client is unaffected
	recorder = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	handler(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("other client status = %d, want %d", recorder.Code, http.StatusOK)
	}
}
