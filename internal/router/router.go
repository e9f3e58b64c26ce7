// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nulldental/license-server/internal/config"
	"github.com/nulldental/license-server/internal/handlers"
	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/middleware"
	"github.com/nulldental/license-server/internal/services"
	"github.com/nulldental/license-server/internal/store"
	"github.com/nulldental/license-server/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, codec *licensing.TokenCodec) *gin.Engine {
	// Initialize services
	settingsService := services.NewSettingsService(db)
	notificationService := services.NewNotificationService(db, cfg, settingsService)
	clinicService := services.NewClinicService(db, notificationService)
	licenseStore := store.NewLicenseStore(db)
	licenseService := services.NewLicenseService(licenseStore, clinicService, codec, notificationService)
	authService := services.NewAuthService(db, cfg)
	pricingService := services.NewPricingService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	licenseHandler := handlers.NewLicenseHandler(licenseService)
	clinicHandler := handlers.NewClinicHandler(clinicService)
	verificationHandler := handlers.NewVerificationHandler(licenseService)
	adminHandler := handlers.NewAdminHandler(settingsService, pricingService)

	// Set JWT secret
	utils.SetSessionSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware. CORS stays wide open: the validation endpoint is
	// called from arbitrary clinic deployments we do not enumerate.
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Public verification routes, consumed by deployed clinic apps
		v1.PUT("/validate", middleware.ValidationRateLimit(), verificationHandler.ValidateLicense)
		v1.GET("/licenses/status", middleware.ValidationRateLimit(), verificationHandler.CheckStatus)

		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// License management routes
		licenses := v1.Group("/licenses")
		licenses.Use(middleware.AuthRequired())
		{
			licenses.POST("", licenseHandler.IssueLicense)
			licenses.GET("", licenseHandler.GetLicenses)
			licenses.GET("/:id", licenseHandler.GetLicense)
			licenses.GET("/:id/token", licenseHandler.GetLicenseToken)
			licenses.PUT("/:id/renew", licenseHandler.RenewLicense)
			licenses.PUT("/:id/revoke", licenseHandler.RevokeLicense)
			licenses.PUT("/:id/transfer", licenseHandler.TransferLicense)
			licenses.DELETE("/:id", middleware.SuperAdminRequired(), licenseHandler.DeleteLicense)
		}

		// Clinic management routes
		clinics := v1.Group("/clinics")
		clinics.Use(middleware.AuthRequired())
		{
			clinics.GET("", clinicHandler.GetClinics)
			clinics.GET("/:id", clinicHandler.GetClinic)
			clinics.POST("", clinicHandler.CreateClinic)
			clinics.PUT("/:id", clinicHandler.UpdateClinic)
			clinics.DELETE("/:id", middleware.SuperAdminRequired(), clinicHandler.DeleteClinic)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired())
		{
			adminSettings := admin.Group("/settings")
			{
				adminSettings.GET("", adminHandler.GetSettings)
				adminSettings.PUT("", adminHandler.UpdateSettings)
			}

			adminPlans := admin.Group("/pricing-plans")
			{
				adminPlans.GET("", adminHandler.GetPricingPlans)
				adminPlans.POST("", adminHandler.CreatePricingPlan)
				adminPlans.PUT("/:id", adminHandler.UpdatePricingPlan)
				adminPlans.DELETE("/:id", adminHandler.DeletePricingPlan)
			}
		}
	}

	return r
}
