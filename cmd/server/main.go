package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"familystars/internal/config"
	"familystars/internal/database"
	"familystars/internal/handlers"
	"familystars/internal/realtime"
	"familystars/internal/repository"
	"familystars/internal/security"
	"familystars/internal/service"
	"familystars/internal/storage"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	// Realtime hub for balance updates
	hub := realtime.NewHub()

	// Initialize services
	authService := service.NewAuthService(userRepo, familyRepo, profileRepo, invitationRepo, cfg.SessionDuration)
	familyService := service.NewFamilyService(familyRepo, profileRepo, invitationRepo)
	taskService := service.NewTaskService(taskRepo, profileRepo, hub)
	rewardService := service.NewRewardService(rewardRepo, profileRepo, hub)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	if !emailService.IsEnabled() {
		log.Println("Email sending disabled (SES_FROM_EMAIL not set)")
	}

	uploads, err := newUploadStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
		"apple": {
			Name:  "apple",
			Label: "Apple",
			Config: &oauth2.Config{
				ClientID:     cfg.AppleClientID,
				ClientSecret: cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
	}

	// Initialize handlers
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	limiter := security.NewRateLimiter(10, time.Minute)
	mw := handlers.NewMiddleware(authService, familyService, csrf, limiter)
	authHandler := handlers.NewAuthHandler(authService, emailService, csrf, oauthProviders, cfg.OAuthRedirectBaseURL)
	familyHandler := handlers.NewFamilyHandler(familyService, emailService, uploads, cfg.UploadMaxSize)
	childHandler := handlers.NewChildHandler(familyService)
	taskHandler := handlers.NewTaskHandler(taskService)
	rewardHandler := handlers.NewRewardHandler(rewardService)
	wsHandler := handlers.NewWSHandler(familyService, hub)

	// Setup routes
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))

	// Auth
	mux.HandleFunc("POST /api/auth/register", mw.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/auth/login", mw.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", mw.RequireAuth(authHandler.Logout))
	mux.HandleFunc("GET /api/auth/me", mw.RequireAuth(authHandler.Me))
	mux.HandleFunc("POST /api/auth/forgot-password", mw.RateLimit(authHandler.ForgotPassword))
	mux.HandleFunc("GET /api/auth/reset-password/validate", authHandler.ValidateResetToken)
	mux.HandleFunc("POST /api/auth/reset-password", mw.RateLimit(authHandler.ResetPassword))
	mux.HandleFunc("GET /api/auth/providers", authHandler.OAuthProviders)
	mux.HandleFunc("GET /auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", authHandler.OAuthCallback)

	// Child sign-in with generated credentials
	mux.HandleFunc("POST /api/child/login", mw.RateLimit(childHandler.Login))
	mux.HandleFunc("POST /api/child/logout", childHandler.Logout)

	// Family and profiles
	mux.HandleFunc("GET /api/family", mw.RequireAuth(familyHandler.GetFamily))
	mux.HandleFunc("PUT /api/family", mw.RequireAdmin(mw.CSRFProtect(familyHandler.UpdateFamily)))
	mux.HandleFunc("POST /api/family/logo", mw.RequireAdmin(mw.CSRFProtect(familyHandler.UploadFamilyLogo)))
	mux.HandleFunc("GET /api/family/members", mw.RequireAuth(familyHandler.GetMembers))
	mux.HandleFunc("GET /api/profiles/{id}", mw.RequireAuth(familyHandler.GetProfile))
	mux.HandleFunc("PUT /api/profiles/{id}", mw.RequireAuth(mw.CSRFProtect(familyHandler.UpdateProfile)))
	mux.HandleFunc("POST /api/profiles/{id}/avatar", mw.RequireAuth(mw.CSRFProtect(familyHandler.UploadAvatar)))
	mux.HandleFunc("GET /api/profiles/{id}/tasks", mw.RequireAuth(taskHandler.GetProfileTasks))
	mux.HandleFunc("GET /api/profiles/{id}/redemptions", mw.RequireAuth(rewardHandler.GetProfileRedemptions))

	// Managed child profiles
	mux.HandleFunc("POST /api/children", mw.RequireAdmin(mw.CSRFProtect(childHandler.CreateChild)))
	mux.HandleFunc("POST /api/children/{id}/regenerate-password", mw.RequireAdmin(mw.CSRFProtect(childHandler.RegeneratePassword)))

	// Invitations
	mux.HandleFunc("POST /api/invitations", mw.RequireParent(mw.CSRFProtect(familyHandler.CreateInvitation)))
	mux.HandleFunc("GET /api/invitations", mw.RequireParent(familyHandler.GetInvitations))
	mux.HandleFunc("GET /api/invitations/preview", familyHandler.PreviewInvitation)
	mux.HandleFunc("DELETE /api/invitations/{id}", mw.RequireParent(mw.CSRFProtect(familyHandler.RevokeInvitation)))

	// Tasks
	mux.HandleFunc("POST /api/tasks", mw.RequireParent(mw.CSRFProtect(taskHandler.CreateTask)))
	mux.HandleFunc("GET /api/tasks", mw.RequireAuth(taskHandler.GetTasks))
	mux.HandleFunc("GET /api/tasks/calendar", mw.RequireAuth(taskHandler.GetCalendar))
	mux.HandleFunc("GET /api/tasks/approvals", mw.RequireParent(taskHandler.GetApprovalQueue))
	mux.HandleFunc("GET /api/tasks/{id}", mw.RequireAuth(taskHandler.GetTask))
	mux.HandleFunc("PUT /api/tasks/{id}", mw.RequireParent(mw.CSRFProtect(taskHandler.UpdateTask)))
	mux.HandleFunc("DELETE /api/tasks/{id}", mw.RequireParent(mw.CSRFProtect(taskHandler.DeleteTask)))
	mux.HandleFunc("POST /api/tasks/{id}/complete", mw.RequireAuth(mw.CSRFProtect(taskHandler.CompleteTask)))
	mux.HandleFunc("POST /api/tasks/{id}/approve", mw.RequireParent(mw.CSRFProtect(taskHandler.ApproveTask)))
	mux.HandleFunc("POST /api/tasks/{id}/reject", mw.RequireParent(mw.CSRFProtect(taskHandler.RejectTask)))

	// Rewards
	mux.HandleFunc("POST /api/rewards", mw.RequireParent(mw.CSRFProtect(rewardHandler.CreateReward)))
	mux.HandleFunc("GET /api/rewards", mw.RequireAuth(rewardHandler.GetCatalog))
	mux.HandleFunc("GET /api/rewards/{id}", mw.RequireAuth(rewardHandler.GetReward))
	mux.HandleFunc("PUT /api/rewards/{id}", mw.RequireParent(mw.CSRFProtect(rewardHandler.UpdateReward)))
	mux.HandleFunc("DELETE /api/rewards/{id}", mw.RequireParent(mw.CSRFProtect(rewardHandler.DeleteReward)))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", mw.RequireAuth(mw.CSRFProtect(rewardHandler.Redeem)))
	mux.HandleFunc("GET /api/redemptions", mw.RequireAuth(rewardHandler.GetRedemptions))

	// Live balance updates
	mux.HandleFunc("GET /ws/balance", mw.RequireAuth(wsHandler.SubscribeBalance))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(authService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// newUploadStorage selects S3 when a bucket is configured, local disk otherwise
func newUploadStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.S3Bucket != "" {
		return storage.NewS3Storage(cfg.AWSRegion, cfg.S3Bucket, cfg.S3PublicURL)
	}
	return storage.NewLocalStorage(filepath.Join(cfg.StaticFilesPath, "uploads"), cfg.AppBaseURL+"/static/uploads")
}

// cleanupExpiredSessions periodically removes expired sessions and reset tokens
func cleanupExpiredSessions(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		}
		if err := authService.CleanupExpiredPasswordResetTokens(); err != nil {
			log.Printf("Error cleaning up expired password reset tokens: %v", err)
		}
	}
}
