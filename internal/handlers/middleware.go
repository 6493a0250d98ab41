package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"familystars/internal/models"
	"familystars/internal/security"
	"familystars/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const AuthContextKey ContextKey = "auth"

// Auth is the resolved identity of the request: the profile acting, plus
// the backing user when the session is a parent login. Child sessions have
// no user.
type Auth struct {
	User      *models.User
	Profile   *models.Profile
	SessionID string
	IsChild   bool
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService   *service.AuthService
	familyService *service.FamilyService
	csrf          *security.CSRFGenerator
	limiter       *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, familyService *service.FamilyService, csrf *security.CSRFGenerator, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService:   authService,
		familyService: familyService,
		csrf:          csrf,
		limiter:       limiter,
	}
}

// RequireAuth requires a valid parent or child session and puts the
// resolved Auth on the request context
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := m.resolveAuth(w, r)
		if auth == nil {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), AuthContextKey, auth)
		next(w, r.WithContext(ctx))
	}
}

// RequireParent requires an authenticated parent (admin included)
func (m *Middleware) RequireParent(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		auth := GetAuth(r.Context())
		if auth.Profile == nil || !auth.Profile.IsParent() {
			respondWithError(w, http.StatusForbidden, "Parents only", "", nil)
			return
		}
		next(w, r)
	})
}

// RequireAdmin requires the family's admin parent
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		auth := GetAuth(r.Context())
		if auth.Profile == nil || auth.Profile.Role != models.RoleAdminParent {
			respondWithError(w, http.StatusForbidden, "Family admin only", "", nil)
			return
		}
		next(w, r)
	})
}

func (m *Middleware) resolveAuth(w http.ResponseWriter, r *http.Request) *Auth {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		user, profile, err := m.authService.ValidateSession(cookie.Value)
		if err == nil {
			return &Auth{User: user, Profile: profile, SessionID: cookie.Value}
		}
		http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	}

	if cookie, err := r.Cookie(ChildSessionCookieName); err == nil {
		profile, err := m.familyService.ValidateChildSession(cookie.Value)
		if err == nil {
			return &Auth{Profile: profile, SessionID: cookie.Value, IsChild: true}
		}
		http.SetCookie(w, security.CreateDeleteCookie(r, ChildSessionCookieName))
	}

	return nil
}

// CSRFProtect validates the CSRF token on state-changing requests. The
// token is bound to the session via HMAC, so there is nothing to store.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		auth := GetAuth(r.Context())
		if auth == nil {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			token = r.FormValue("csrf_token")
		}
		if !m.csrf.ValidateToken(auth.SessionID, token) {
			respondWithError(w, http.StatusForbidden, "Invalid CSRF token", "", nil)
			return
		}

		next(w, r)
	}
}

// RateLimit rejects clients that exceed the per-IP request budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			respondWithError(w, http.StatusTooManyRequests, "Too many requests", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetAuth retrieves the resolved identity from the request context
func GetAuth(ctx context.Context) *Auth {
	auth, ok := ctx.Value(AuthContextKey).(*Auth)
	if !ok {
		return nil
	}
	return auth
}
