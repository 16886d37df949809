package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dayly-backend/internal/blob"
	"dayly-backend/internal/config"
	"dayly-backend/internal/handlers"
	"dayly-backend/internal/middleware"
	"dayly-backend/internal/push"
	"dayly-backend/internal/repository"
	"dayly-backend/internal/services"
	"dayly-backend/internal/sms"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const smsTimeout = 10 * time.Second

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Apply schema migrations
	if err := repository.Migrate(cfg.Database.URL()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	memberRepo := repository.NewMembershipRepository(db)
	dailyRepo := repository.NewDailySendRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	otpRepo := repository.NewOTPRepository(db)

	// Initialize external capabilities
	blobStore, err := blob.NewS3Store(context.Background(), blob.Options{
		Region:    cfg.AWS.Region,
		Bucket:    cfg.AWS.S3Bucket,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Endpoint:  cfg.AWS.Endpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create blob store")
	}
	smsSender := newSMSSender(cfg)
	pushSender := newPushSender(cfg)

	// Initialize services
	ledger := services.NewLedger(dailyRepo)
	authService := services.NewAuthService(userRepo, otpRepo, smsSender, cfg.JWT.Secret)
	inviteService := services.NewInviteService(inviteRepo, memberRepo, userRepo, smsSender)
	groupService := services.NewGroupService(groupRepo, memberRepo, ledger, photoRepo, inviteService)
	notifyService := services.NewNotificationService(photoRepo, groupRepo, deviceRepo, pushSender)
	photoService := services.NewPhotoService(photoRepo, memberRepo, ledger, blobStore, notifyService)
	deviceService := services.NewDeviceService(deviceRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	groupHandler := handlers.NewGroupHandler(groupService)
	photoHandler := handlers.NewPhotoHandler(photoService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/request-verification", authHandler.RequestVerification)
		r.Post("/auth/verify", authHandler.Verify)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))

			r.Post("/groups", groupHandler.CreateGroup)
			r.Get("/groups", groupHandler.ListGroups)
			r.Get("/groups/{group_id}", groupHandler.GetGroup)
			r.Patch("/groups/{group_id}", groupHandler.RenameGroup)
			r.Post("/groups/{group_id}/leave", groupHandler.LeaveGroup)

			r.Post("/groups/{group_id}/photos", photoHandler.SubmitPhoto)
			r.Get("/groups/{group_id}/photos", photoHandler.ListPhotos)

			r.Post("/groups/{group_id}/invites", inviteHandler.SendInvites)
			r.Get("/groups/{group_id}/invites", inviteHandler.ListPendingInvites)
			r.Post("/invites/redeem", inviteHandler.RedeemInvite)

			r.Post("/devices", deviceHandler.Register)
			r.Delete("/devices", deviceHandler.Unregister)
			r.Get("/devices", deviceHandler.List)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown HTTP server first so no new side effects get scheduled
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Give in-flight notification and SMS dispatches a bounded grace
	// period; committed domain state does not depend on them.
	if err := notifyService.Drain(ctx); err != nil {
		log.Warn().Err(err).Msg("Notification dispatches still in flight at shutdown")
	}
	notifyService.Close()
	if err := inviteService.Drain(ctx); err != nil {
		log.Warn().Err(err).Msg("Invite dispatches still in flight at shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// newSMSSender returns the Twilio sender when configured, otherwise a
// log-only sender. Business logic receives one or the other and never
// checks which.
func newSMSSender(cfg *config.Config) sms.Sender {
	if cfg.Twilio.AccountSID == "" {
		log.Warn().Msg("Twilio not configured, SMS delivery disabled")
		return sms.NopSender{}
	}
	log.Info().Msg("Twilio SMS sender initialized")
	return sms.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, smsTimeout)
}

// newPushSender builds the per-platform push router, falling back to
// log-only delivery for unconfigured platforms.
func newPushSender(cfg *config.Config) push.Sender {
	var ios, android push.Sender

	if cfg.Push.APNSKeyFile != "" {
		apns, err := push.NewAPNSSender(
			cfg.Push.APNSKeyFile,
			cfg.Push.APNSKeyID,
			cfg.Push.APNSTeamID,
			cfg.Push.APNSTopic,
			cfg.Push.APNSProduction,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize APNs sender")
		}
		ios = apns
		log.Info().Msg("APNs push sender initialized")
	} else {
		log.Warn().Msg("APNs not configured, iOS push disabled")
	}

	if cfg.Push.FCMCredentials != "" {
		fcm, err := push.NewFCMSender(context.Background(), cfg.Push.FCMCredentials)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize FCM sender")
		}
		android = fcm
		log.Info().Msg("FCM push sender initialized")
	} else {
		log.Warn().Msg("FCM not configured, Android push disabled")
	}

	return push.NewPlatformSender(ios, android)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
