package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/trimooo/SecurePasskey/internal/app"
	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/controllers"
	"github.com/trimooo/SecurePasskey/internal/middleware"
	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/services"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

func main() {
	utils.InitLogger("securepasskey")
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	userRepo := repositories.NewUserRepository(application.DB)
	credentialRepo := repositories.NewCredentialRepository(application.DB)
	challengeRepo := repositories.NewChallengeRepository(application.DB)
	recoveryCodeRepo := repositories.NewRecoveryCodeRepository(application.DB)
	savedPasswordRepo := repositories.NewSavedPasswordRepository(application.DB)
	tokenRepo := repositories.NewTokenRepository(application.DB)

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	jwtService := services.NewJWTService(cfg, tokenRepo)
	challengeService := services.NewChallengeService(cfg, challengeRepo)
	webauthnService := services.NewWebAuthnService(cfg, userRepo, credentialRepo, challengeService)
	mfaService := services.NewMFAService(cfg, userRepo, recoveryCodeRepo)
	passwordAuthService := services.NewPasswordAuthService(cfg, userRepo, mfaService)
	qrLoginService := services.NewQRLoginService(cfg, userRepo, challengeRepo, challengeService)
	vaultService := services.NewVaultService(cfg, savedPasswordRepo)

	challengeCleanupService := services.NewChallengeCleanupService(challengeRepo)
	tokenCleanupService := services.NewTokenCleanupService(tokenRepo)

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	webauthnController := controllers.NewWebAuthnController(webauthnService, jwtService, cfg)
	mfaController := controllers.NewMFAController(mfaService, jwtService, cfg)
	passwordController := controllers.NewPasswordAuthController(passwordAuthService, jwtService, cfg)
	qrController := controllers.NewQRController(qrLoginService, jwtService, cfg)
	vaultController := controllers.NewVaultController(vaultService)
	healthController := controllers.NewHealthController(application)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	router := mux.NewRouter()

	// Health
	router.HandleFunc("/health", healthController.HealthCheckHandler).Methods("GET")

	// /auth/v1
	authRouter := router.PathPrefix("/auth").Subrouter()
	v1Router := authRouter.PathPrefix("/v1").Subrouter()

	// Passkey ceremonies
	v1Router.HandleFunc("/webauthn/register/begin", webauthnController.BeginRegistration).Methods("POST")
	v1Router.HandleFunc("/webauthn/register/finish", webauthnController.FinishRegistration).Methods("POST")
	v1Router.HandleFunc("/webauthn/login/begin", webauthnController.BeginLogin).Methods("POST")
	v1Router.HandleFunc("/webauthn/login/finish", webauthnController.FinishLogin).Methods("POST")

	// Password fallback
	v1Router.HandleFunc("/password/register", passwordController.Register).Methods("POST")
	v1Router.HandleFunc("/password/login", passwordController.Login).Methods("POST")

	// Session lifecycle
	v1Router.HandleFunc("/refresh", passwordController.Refresh).Methods("POST")
	v1Router.HandleFunc("/logout", passwordController.Logout).Methods("POST")

	// Login-time MFA step
	v1Router.HandleFunc("/mfa/login/request_code", mfaController.RequestLoginCode).Methods("POST")
	v1Router.HandleFunc("/mfa/login/verify", mfaController.VerifyLogin).Methods("POST")

	// QR cross-device login (initiating device is unauthenticated)
	v1Router.HandleFunc("/qr/start", qrController.Start).Methods("POST")
	v1Router.HandleFunc("/qr/{challengeId}/status", qrController.Status).Methods("GET")
	v1Router.HandleFunc("/qr/complete", qrController.Complete).Methods("POST")

	// Protected endpoints require a valid token
	protected := v1Router.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))
	protected.HandleFunc("/qr/claim", qrController.Claim).Methods("POST")
	protected.HandleFunc("/account/phone", passwordController.UpdatePhone).Methods("PUT")

	protected.HandleFunc("/mfa/totp/setup", mfaController.SetupTOTP).Methods("POST")
	protected.HandleFunc("/mfa/request_code", mfaController.RequestCode).Methods("POST")
	protected.HandleFunc("/mfa/enable", mfaController.Enable).Methods("POST")
	protected.HandleFunc("/mfa/disable", mfaController.Disable).Methods("POST")
	protected.HandleFunc("/mfa/recovery_codes/rotate", mfaController.RotateRecoveryCodes).Methods("POST")

	protected.HandleFunc("/vault/passwords", vaultController.Create).Methods("POST")
	protected.HandleFunc("/vault/passwords", vaultController.List).Methods("GET")
	protected.HandleFunc("/vault/passwords/report", vaultController.Report).Methods("GET")
	protected.HandleFunc("/vault/passwords/{id}", vaultController.Get).Methods("GET")
	protected.HandleFunc("/vault/passwords/{id}", vaultController.Update).Methods("PUT")
	protected.HandleFunc("/vault/passwords/{id}", vaultController.Delete).Methods("DELETE")

	//----------------------------------------------------------------------
	// Scheduled cleanup via cron
	//----------------------------------------------------------------------
	c := cron.New()

	// expired challenges, every minute
	sweepSpec := fmt.Sprintf("@every %s", cfg.SweepInterval)
	if _, schErr := c.AddFunc(sweepSpec, func() {
		if e := challengeCleanupService.Sweep(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled challenge sweep failed")
		}
	}); schErr != nil {
		utils.Logger.WithError(schErr).Fatal("Failed to schedule challenge sweep job")
	}

	// token cleanup, nightly
	if _, schErr := c.AddFunc("5 3 * * *", func() {
		if e := tokenCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled token cleanup failed")
		}
	}); schErr != nil {
		utils.Logger.WithError(schErr).Fatal("Failed to schedule token cleanup job")
	}

	c.Start()

	allowedOrigins := []string{cfg.AppUrl, cfg.ExpectedOrigin}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000")
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
