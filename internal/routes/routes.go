package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pataid/backend/internal/config"
	"github.com/pataid/backend/internal/handlers"
	"github.com/pataid/backend/internal/middleware"
	"github.com/pataid/backend/internal/models"
	"github.com/pataid/backend/internal/security/audit"
	"github.com/pataid/backend/internal/services/report"
	"github.com/pataid/backend/internal/services/upload"
	"github.com/pataid/backend/internal/services/verification"
)

// Dependencies bundles the services the routes need.
type Dependencies struct {
	DB            *gorm.DB
	Config        *config.Config
	Reports       *report.ReportService
	Verifications *verification.VerificationService
	Uploads       *upload.UploadService
	Audit         *audit.Logger
	RateLimiter   *middleware.RateLimiter
}

// RegisterRoutes wires every API route onto the router.
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.DB)
	reportHandler := handlers.NewReportHandler(deps.DB, deps.Reports, deps.Uploads)
	verificationHandler := handlers.NewVerificationHandler(deps.DB, deps.Verifications, deps.Uploads)
	adminHandler := handlers.NewAdminHandler(deps.DB, deps.Audit)

	router.Static(deps.Config.Uploads.BaseURL, deps.Config.Uploads.BaseDir)

	api := router.Group("/api")
	api.Use(deps.RateLimiter.IPRateLimiterMiddleware())

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.GET("/me", middleware.AuthMiddleware(), authHandler.Me)
		authGroup.PATCH("/notifications", middleware.AuthMiddleware(), authHandler.UpdateNotifications)
	}

	// Report browsing and guest submissions work without an account.
	reportGroup := api.Group("/reports")
	reportGroup.Use(middleware.OptionalAuthMiddleware())
	{
		reportGroup.POST("", reportHandler.Create)
		reportGroup.GET("", reportHandler.Search)
		reportGroup.GET("/:id", reportHandler.Get)
	}

	reportAuthGroup := api.Group("/reports")
	reportAuthGroup.Use(middleware.AuthMiddleware())
	{
		reportAuthGroup.POST("/photos", reportHandler.UploadPhoto)
		reportAuthGroup.PATCH("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSecurity), reportHandler.Update)
		reportAuthGroup.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), reportHandler.Delete)
		reportAuthGroup.GET("/:id/verifications", middleware.RequireRoles(models.RoleAdmin, models.RoleSecurity), verificationHandler.ListForReport)
		reportAuthGroup.POST("/:id/claim", verificationHandler.Start)
	}

	api.GET("/me/reports", middleware.AuthMiddleware(), reportHandler.MyReports)
	api.GET("/stats", middleware.AuthMiddleware(),
		middleware.RequireRoles(models.RoleAdmin, models.RoleSecurity), reportHandler.Stats)

	verifyGroup := api.Group("/verifications")
	verifyGroup.Use(middleware.AuthMiddleware())
	{
		verifyGroup.GET("/:id", verificationHandler.Get)
		verifyGroup.POST("/:id/documents", verificationHandler.UploadDocuments)
		verifyGroup.POST("/:id/review",
			middleware.RequireRoles(models.RoleSecurity), verificationHandler.SecurityVerify)

		// Attempt submissions get the tighter per-verification limiter on top
		// of the stored attempt budget.
		attempts := verifyGroup.Group("")
		attempts.Use(deps.RateLimiter.VerifyRateLimiterMiddleware())
		{
			attempts.POST("/:id/id-number", verificationHandler.VerifyIDNumber)
			attempts.POST("/:id/otp", verificationHandler.VerifyOTP)
			attempts.POST("/:id/otp/resend", verificationHandler.ResendOTP)
			attempts.POST("/:id/answers", verificationHandler.VerifyAnswers)
		}
	}

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.RoleAdmin))
	{
		adminGroup.POST("/staff", adminHandler.CreateStaff)
		adminGroup.GET("/users", adminHandler.ListUsers)
		adminGroup.GET("/audit", adminHandler.AuditTrail)
		adminGroup.GET("/audit/:id", adminHandler.ResourceAudit)
	}
}
