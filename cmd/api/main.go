package main

import (
	"fmt"
	"log"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/pataid/backend/internal/config"
	"github.com/pataid/backend/internal/database"
	"github.com/pataid/backend/internal/database/migrations"
	"github.com/pataid/backend/internal/jobs"
	"github.com/pataid/backend/internal/middleware"
	"github.com/pataid/backend/internal/queue"
	"github.com/pataid/backend/internal/routes"
	"github.com/pataid/backend/internal/security/audit"
	"github.com/pataid/backend/internal/services/notification"
	"github.com/pataid/backend/internal/services/report"
	"github.com/pataid/backend/internal/services/upload"
	"github.com/pataid/backend/internal/services/verification"
)

func main() {
	cfg := config.LoadConfig()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			log.Printf("Sentry initialization failed: %v", err)
		}
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Invalid redis URL: %v", err)
	}
	if cfg.Redis.Password != "" {
		redisOpts.Password = cfg.Redis.Password
	}
	redisOpts.DB = cfg.Redis.DB
	broker := queue.NewRedisClient(redis.NewClient(redisOpts))

	jobQueue := queue.NewQueue(db, broker)
	emailService := notification.NewEmailService()
	smsService := notification.NewSMSService()
	jobs.RegisterAllJobHandlers(jobQueue, emailService, smsService)

	worker := queue.NewWorker(jobQueue, 4)
	if err := jobs.ScheduleRecurringJobs(worker, db); err != nil {
		log.Fatalf("Failed to schedule recurring jobs: %v", err)
	}
	worker.Start()
	defer worker.Stop()

	auditLogger := audit.NewLogger(db)
	notifier := notification.NewQueueDispatcher(jobQueue)
	uploadService := upload.NewUploadService(cfg.Uploads.BaseDir, cfg.Uploads.BaseURL)
	reportService := report.NewReportService(db, notifier, auditLogger)
	verificationService := verification.NewVerificationService(db, reportService, notifier, auditLogger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	rateLimiter := middleware.NewRateLimiter(
		cfg.RateLimit.IPPerSecond,
		cfg.RateLimit.VerifyPerMinute,
		cfg.RateLimit.IPBurst,
		cfg.RateLimit.VerifyBurst,
	)
	defer rateLimiter.Stop()

	routes.RegisterRoutes(router, routes.Dependencies{
		DB:            db,
		Config:        cfg,
		Reports:       reportService,
		Verifications: verificationService,
		Uploads:       uploadService,
		Audit:         auditLogger,
		RateLimiter:   rateLimiter,
	})

	fmt.Printf("PataID API server running on port %s\n", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
